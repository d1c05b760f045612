package filesystem

import (
	"context"

	"go.temporal.io/sdk/activity"
)

// PruneInput selects which run directories to keep under Base.
type PruneInput struct {
	Base   string
	Prefix string
	Keep   int
}

// PruneRunDirectories removes all but the newest Keep <Prefix>_* run directories
// and sweeps leftovers of interrupted creates. The latest run is never removed.
func (a *Activities) PruneRunDirectories(ctx context.Context, in PruneInput) ([]string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("PruneRunDirectories started", "base", in.Base, "prefix", in.Prefix, "keep", in.Keep)

	removed, err := a.Manager.Prune(in.Base, in.Prefix, in.Keep)
	if err != nil {
		logger.Warn("Prune failed (non-critical)", "base", in.Base, "removed", len(removed), "error", err)
		return removed, asApplicationError(err)
	}

	logger.Info("Prune successful", "base", in.Base, "removed", removed)
	return removed, nil
}
