package filesystem

import (
	"context"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/containifyci/analysis-worker/pkg/rundir"
)

// Activities exposes run directory management to workflows. Register a
// pointer so every activity shares the Manager and its per-base locks.
type Activities struct {
	Manager *rundir.Manager
}

func NewActivities(m *rundir.Manager) *Activities {
	return &Activities{Manager: m}
}

// CreateRunInput names the run directory to create under Base.
type CreateRunInput struct {
	Base   string
	Prefix string
	Tag    string
	Unique bool
}

// CreateRunDirectory creates <Base>/<Prefix>_<Tag> and points <Base>/latest at it.
// Failures are not retried: the run's output location could not be guaranteed.
func (a *Activities) CreateRunDirectory(ctx context.Context, in CreateRunInput) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("CreateRunDirectory started", "base", in.Base, "prefix", in.Prefix, "tag", in.Tag, "unique", in.Unique)

	m := a.Manager
	if in.Unique {
		m = m.Unique()
	}
	output, err := m.Create(in.Base, in.Prefix, in.Tag)
	if err != nil {
		logger.Error("Run directory setup failed", "base", in.Base, "error", err)
		return "", asApplicationError(err)
	}

	logger.Info("Run directory created", "output", output)
	return output, nil
}

// ResolveLatestRun returns the run directory <base>/latest points at.
func (a *Activities) ResolveLatestRun(ctx context.Context, base string) (string, error) {
	logger := activity.GetLogger(ctx)

	target, err := a.Manager.ResolveLatest(base)
	if err != nil {
		return "", asApplicationError(err)
	}
	logger.Debug("Resolved latest run", "base", base, "target", target)
	return target, nil
}

func asApplicationError(err error) error {
	kind := rundir.KindOf(err)
	if kind == 0 {
		return err
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), kind.String(), err)
}
