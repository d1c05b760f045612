package analysis

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/containifyci/analysis-worker/pkg/rundir"
)

// SanitizeBase turns a base directory into a workflow ID fragment.
// Example: /srv/iotcom/out -> srv-iotcom-out
func SanitizeBase(base string) string {
	if base == "" {
		base = rundir.DefaultBase
	}
	base = filepath.ToSlash(filepath.Clean(base))

	// Replace separators and special characters with hyphens
	base = strings.ReplaceAll(base, "/", "-")
	base = strings.ReplaceAll(base, "\\", "-")
	base = strings.ReplaceAll(base, ":", "-")
	base = strings.ReplaceAll(base, " ", "-")

	base = strings.Trim(base, "-.")
	if base == "" {
		return "root"
	}
	return base
}

// ErrRelativeBase is returned by CheckBase for bases that are not absolute.
var ErrRelativeBase = errors.New("base directory must be an absolute path on the worker")

// CheckBase rejects bases that would resolve against the worker's working
// directory. Two spellings of one directory, such as "out" and
// "/srv/worker/out", would otherwise get different workflow IDs and their
// jobs could run at the same time.
func CheckBase(base string) error {
	if !filepath.IsAbs(base) {
		return fmt.Errorf("%w: %q", ErrRelativeBase, base)
	}
	return nil
}

// WorkflowID returns the queue workflow ID for a base directory. Jobs sharing a
// base land in the same workflow and therefore never run concurrently, as long
// as every submitter spells the base the same way; see CheckBase.
func WorkflowID(base string) string {
	return "analysis-" + SanitizeBase(base)
}
