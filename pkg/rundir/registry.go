package rundir

import (
	"path/filepath"
	"strings"
)

// metaDir holds one record per run directory, <base>/.rundir/<dirname>,
// containing the prefix the run was created with. Prune uses it to tell the
// runs of prefix "run" apart from those of "run_big", whose names also start
// with "run_".
const metaDir = ".rundir"

func (m *Manager) record(base, dirname, prefix string) {
	dir := filepath.Join(base, metaDir)
	err := m.fs.MkdirAll(dir, dirPerm)
	if err == nil {
		err = m.fs.WriteFile(filepath.Join(dir, dirname), []byte(prefix+"\n"), filePerm)
	}
	if err != nil {
		// the run itself is ready; Prune falls back to matching by name
		m.logger.Warn("Could not record run prefix", "run", dirname, "error", err)
	}
}

// recordedPrefix reports the prefix dirname was created with, if known.
func (m *Manager) recordedPrefix(base, dirname string) (string, bool) {
	data, err := m.fs.ReadFile(filepath.Join(base, metaDir, dirname))
	if err != nil {
		return "", false
	}
	return strings.TrimSuffix(string(data), "\n"), true
}

func (m *Manager) forget(base, dirname string) {
	if err := m.fs.RemoveAll(filepath.Join(base, metaDir, dirname)); err != nil {
		m.logger.Debug("Could not remove run record", "run", dirname, "error", err)
	}
}
