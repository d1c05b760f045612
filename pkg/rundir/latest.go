package rundir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// LinkMode selects how <base>/latest is materialized.
type LinkMode int

const (
	// LinkAuto uses a symlink, or a pointer file where symlinks are unavailable.
	LinkAuto LinkMode = iota
	// LinkSymlink always uses a symlink and fails where that is unsupported.
	LinkSymlink
	// LinkPointerFile writes a regular file holding the absolute target path.
	LinkPointerFile
)

func ParseLinkMode(s string) (LinkMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return LinkAuto, nil
	case "symlink":
		return LinkSymlink, nil
	case "pointer", "pointer-file", "file":
		return LinkPointerFile, nil
	}
	return 0, fmt.Errorf("unknown link mode %q", s)
}

// Scratch entries live directly under base. Their names carry only a short id
// so they stay within the name limit whatever the run directory is called.
const (
	stagingPrefix = metaDir + ".staging-"
	trashPrefix   = metaDir + ".trash-"
	linkTmpPrefix = "." + LatestName + ".tmp-"
)

// pointLatest makes <base>/latest resolve to target.
func (m *Manager) pointLatest(base, target string) error {
	link := filepath.Join(base, LatestName)
	if m.strategy == StrategyInPlace {
		if err := m.removeLink(link); err != nil {
			return err
		}
		if err := m.writeLink(link, target); err != nil {
			return newError(KindLink, "link-create", link, err)
		}
		return nil
	}

	tmp := filepath.Join(base, linkTmpPrefix+m.newID())
	if err := m.writeLink(tmp, target); err != nil {
		return newError(KindLink, "link-create", tmp, err)
	}

	// rename cannot replace a real directory with a link or file.
	if info, ok, err := exists(m.fs, link); err != nil {
		m.discard(tmp)
		return newError(KindLink, "link-remove", link, err)
	} else if ok && info.IsDir() {
		if err := m.fs.RemoveAll(link); err != nil {
			m.discard(tmp)
			return newError(KindLink, "link-remove", link, err)
		}
	}

	if err := m.fs.Rename(tmp, link); err != nil {
		m.discard(tmp)
		return newError(KindLink, "link-create", link, err)
	}
	return nil
}

func (m *Manager) removeLink(link string) error {
	_, ok, err := exists(m.fs, link)
	if err != nil {
		return newError(KindLink, "link-remove", link, err)
	}
	if !ok {
		return nil
	}
	if err := m.fs.RemoveAll(link); err != nil {
		return newError(KindLink, "link-remove", link, err)
	}
	return nil
}

func (m *Manager) writeLink(path, target string) error {
	mode := m.linkMode
	if mode == LinkAuto && runtime.GOOS == "windows" {
		mode = LinkPointerFile
	}

	if mode != LinkPointerFile {
		err := m.fs.Symlink(target, path)
		if err == nil {
			return nil
		}
		if mode == LinkSymlink || !errors.Is(err, errors.ErrUnsupported) {
			return err
		}
		m.logger.Warn("Symlinks unsupported, writing pointer file instead", "path", path)
	}
	return m.fs.WriteFile(path, []byte(target+"\n"), filePerm)
}

// ResolveLatest returns the run directory <base>/latest points at.
// A missing pointer yields an error matching os.ErrNotExist.
func ResolveLatest(base string) (string, error) {
	return New().ResolveLatest(base)
}

func (m *Manager) ResolveLatest(base string) (string, error) {
	if base == "" {
		base = DefaultBase
	}
	link := filepath.Join(base, LatestName)

	info, err := m.fs.Lstat(link)
	if err != nil {
		return "", newError(KindLink, "link-read", link, err)
	}

	var target string
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err = m.fs.Readlink(link)
		if err != nil {
			return "", newError(KindLink, "link-read", link, err)
		}
	case info.Mode().IsRegular():
		data, err := m.fs.ReadFile(link)
		if err != nil {
			return "", newError(KindLink, "link-read", link, err)
		}
		target = strings.TrimSpace(string(data))
		if target == "" {
			return "", newError(KindLink, "link-read", link, errors.New("empty pointer file"))
		}
	default:
		return "", newError(KindLink, "link-read", link, fmt.Errorf("unexpected file mode %s", info.Mode()))
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(base, target)
	}
	return target, nil
}
