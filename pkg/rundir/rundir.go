// Package rundir manages per-run output directories and the "latest" pointer
// that tracks the most recently created one.
//
// The layout under a base directory is
//
//	<base>/<prefix>_<tag>/   run output, empty when handed to the caller
//	<base>/latest            symlink (or pointer file) to the newest run, absolute path
package rundir

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBase is used when Create is called with an empty base.
	DefaultBase = "out"
	// LatestName is the name of the pointer to the newest run directory.
	LatestName = "latest"

	dirPerm  = 0o755
	filePerm = 0o644

	maxNameLen = 255
)

// Strategy selects how an existing run directory is replaced.
type Strategy int

const (
	// StrategyStaged builds the new directory under a hidden name and renames it into place.
	StrategyStaged Strategy = iota
	// StrategyInPlace deletes the old directory and then creates the new one.
	StrategyInPlace
)

// ParseStrategy accepts "staged" and "in-place".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "staged":
		return StrategyStaged, nil
	case "in-place", "inplace":
		return StrategyInPlace, nil
	}
	return 0, fmt.Errorf("unknown strategy %q", s)
}

// Manager creates run directories. The zero value is not usable; call New.
type Manager struct {
	fs       FS
	logger   *slog.Logger
	linkMode LinkMode
	strategy Strategy
	unique   bool
	newID    func() string
	locks    *baseLocks
}

// baseLocks holds one mutex per base currently in use. Entries are dropped
// when their last holder releases them, so the map only grows with the number
// of bases being worked on at the same time.
type baseLocks struct {
	mu    sync.Mutex
	bases map[string]*baseLock
}

type baseLock struct {
	sync.Mutex
	refs int
}

type Option func(*Manager)

func WithFS(fsys FS) Option             { return func(m *Manager) { m.fs = fsys } }
func WithLogger(l *slog.Logger) Option  { return func(m *Manager) { m.logger = l } }
func WithLinkMode(mode LinkMode) Option { return func(m *Manager) { m.linkMode = mode } }
func WithStrategy(s Strategy) Option    { return func(m *Manager) { m.strategy = s } }

// WithUniqueSuffix appends a random suffix to every run directory name.
func WithUniqueSuffix(on bool) Option { return func(m *Manager) { m.unique = on } }

func New(opts ...Option) *Manager {
	m := &Manager{
		fs:       OSFS{},
		logger:   slog.Default(),
		linkMode: LinkAuto,
		strategy: StrategyStaged,
		newID:    func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
		locks:    &baseLocks{bases: map[string]*baseLock{}},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Unique returns a Manager sharing m's options and locks that appends a random
// suffix to run directory names.
func (m *Manager) Unique() *Manager {
	u := *m
	u.unique = true
	return &u
}

// Create makes a fresh <base>/<prefix>_<tag> directory using default options.
func Create(base, prefix string, tag any) (string, error) {
	return New().Create(base, prefix, tag)
}

// TimestampTag formats t as a run tag, e.g. 20261019_101500.
func TimestampTag(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// Create makes <base>/<prefix>_<tag>, replacing any existing entry of that name,
// and repoints <base>/latest at it. The returned path is base joined with the
// directory name; the link target is always absolute.
//
// Calls sharing a base are serialized within one Manager only. Separate
// processes writing to the same base must coordinate themselves.
func (m *Manager) Create(base, prefix string, tag any) (string, error) {
	if base == "" {
		base = DefaultBase
	}
	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", newError(KindPathResolution, "resolve", base, err)
	}

	dirname, err := m.dirname(prefix, tag)
	if err != nil {
		return "", newError(KindPathResolution, "name", filepath.Join(base, fmt.Sprint(prefix, "_", tag)), err)
	}

	unlock := m.lock(absBase)
	defer unlock()

	absOutput := filepath.Join(absBase, dirname)
	switch m.strategy {
	case StrategyInPlace:
		err = m.replaceInPlace(absOutput)
	default:
		err = m.replaceStaged(absBase, dirname)
	}
	if err != nil {
		return "", err
	}

	if err := m.pointLatest(absBase, absOutput); err != nil {
		return "", err
	}
	m.record(absBase, dirname, prefix)

	output := filepath.Join(base, dirname)
	m.logger.Info("Run directory ready", "output", output, "latest", filepath.Join(base, LatestName))
	return output, nil
}

func (m *Manager) dirname(prefix string, tag any) (string, error) {
	if strings.TrimSpace(prefix) == "" {
		return "", fmt.Errorf("%w: empty prefix", ErrInvalidName)
	}
	if tag == nil {
		return "", fmt.Errorf("%w: nil tag", ErrInvalidName)
	}
	name := prefix + "_" + fmt.Sprint(tag)
	if m.unique {
		name += "_" + m.newID()
	}
	if err := validName(name); err != nil {
		return "", err
	}
	return name, nil
}

func validName(name string) error {
	switch {
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case len(name) > maxNameLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLen)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: contains NUL", ErrInvalidName)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}

func (m *Manager) replaceInPlace(output string) error {
	if _, ok, err := exists(m.fs, output); err != nil {
		return newError(KindDeletion, "delete", output, err)
	} else if ok {
		m.logger.Debug("Removing existing run directory", "path", output)
		if err := m.fs.RemoveAll(output); err != nil {
			return newError(KindDeletion, "delete", output, err)
		}
	}
	if err := m.fs.MkdirAll(output, dirPerm); err != nil {
		return newError(KindCreation, "mkdir", output, err)
	}
	return nil
}

func (m *Manager) replaceStaged(base, dirname string) error {
	if err := m.fs.MkdirAll(base, dirPerm); err != nil {
		return newError(KindCreation, "mkdir", base, err)
	}

	id := m.newID()
	output := filepath.Join(base, dirname)
	staging := filepath.Join(base, stagingPrefix+id)
	if err := m.fs.Mkdir(staging, dirPerm); err != nil {
		return newError(KindCreation, "stage", staging, err)
	}

	_, ok, err := exists(m.fs, output)
	if err != nil {
		m.discard(staging)
		return newError(KindDeletion, "delete", output, err)
	}

	var trash string
	if ok {
		trash = filepath.Join(base, trashPrefix+id)
		m.logger.Debug("Moving existing run directory aside", "path", output, "trash", trash)
		if err := m.fs.Rename(output, trash); err != nil {
			m.discard(staging)
			return newError(KindDeletion, "delete", output, err)
		}
	}

	if err := m.fs.Rename(staging, output); err != nil {
		m.discard(staging)
		if trash != "" {
			if rerr := m.fs.Rename(trash, output); rerr != nil {
				m.logger.Warn("Could not restore previous run directory", "path", output, "trash", trash, "error", rerr)
			}
		}
		return newError(KindCreation, "rename", output, err)
	}

	if trash != "" {
		if err := m.fs.RemoveAll(trash); err != nil {
			return newError(KindDeletion, "delete", trash, err)
		}
	}
	return nil
}

func (m *Manager) discard(path string) {
	if err := m.fs.RemoveAll(path); err != nil {
		m.logger.Warn("Could not remove staging directory", "path", path, "error", err)
	}
}

func (m *Manager) lock(base string) func() {
	locks := m.locks
	locks.mu.Lock()
	l, ok := locks.bases[base]
	if !ok {
		l = &baseLock{}
		locks.bases[base] = l
	}
	l.refs++
	locks.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		locks.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(locks.bases, base)
		}
		locks.mu.Unlock()
	}
}
