package rundir

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Prune keeps the newest keep run directories of prefix under base and
// removes the rest; keep <= 0 disables that step. A run belongs to prefix when
// its recorded prefix matches, or, for runs without a record, when its name
// starts with <prefix>_. The directory latest points at is never removed and
// counts towards keep. Leftovers of interrupted staged creates are always
// swept. It returns the removed paths.
func Prune(base, prefix string, keep int) ([]string, error) {
	return New().Prune(base, prefix, keep)
}

func (m *Manager) Prune(base, prefix string, keep int) ([]string, error) {
	if base == "" {
		base = DefaultBase
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return nil, newError(KindPathResolution, "resolve", base, err)
	}
	if strings.TrimSpace(prefix) == "" {
		return nil, newError(KindPathResolution, "name", base, ErrInvalidName)
	}

	limit := keep

	unlock := m.lock(absBase)
	defer unlock()

	entries, err := m.fs.ReadDir(absBase)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, newError(KindDeletion, "delete", absBase, err)
	}

	current, err := m.ResolveLatest(absBase)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("Could not resolve latest run, pruning without it", "base", base, "error", err)
	}

	type run struct {
		path    string
		modTime int64
	}
	var (
		runs    []run
		removed []string
		errs    error
	)
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(absBase, name)
		if isLeftover(name) {
			if err := m.fs.RemoveAll(path); err != nil {
				errs = errors.Join(errs, newError(KindDeletion, "delete", path, err))
				continue
			}
			removed = append(removed, path)
			continue
		}
		if !entry.IsDir() || !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		if owner, ok := m.recordedPrefix(absBase, name); ok && owner != prefix {
			continue
		}
		if path == current {
			keep--
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue // vanished since ReadDir
		}
		runs = append(runs, run{path: path, modTime: info.ModTime().UnixNano()})
	}

	if limit <= 0 {
		return removed, errs
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].modTime > runs[j].modTime })
	for i, r := range runs {
		if i < keep {
			continue
		}
		m.logger.Debug("Pruning run directory", "path", r.path)
		if err := m.fs.RemoveAll(r.path); err != nil {
			errs = errors.Join(errs, newError(KindDeletion, "delete", r.path, err))
			continue
		}
		m.forget(absBase, filepath.Base(r.path))
		removed = append(removed, r.path)
	}
	return removed, errs
}

func isLeftover(name string) bool {
	return strings.HasPrefix(name, linkTmpPrefix) ||
		strings.HasPrefix(name, stagingPrefix) ||
		strings.HasPrefix(name, trashPrefix)
}
