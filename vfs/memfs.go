package vfs

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemFS is an in-memory [FileSystem], the default for a [bash.Bash]
// instance that isn't given a real directory: scripts that never touch
// disk still get a full filesystem to read/write/ls against, and it
// disappears with the process.
type MemFS struct {
	mu    sync.Mutex
	files map[string]*memNode
}

type memNode struct {
	isDir   bool
	data    []byte
	mode    fs.FileMode
	modTime time.Time
	link    string // symlink target, if non-empty
}

// NewMemFS creates an empty in-memory filesystem with just the root
// directory.
func NewMemFS() *MemFS {
	m := &MemFS{files: map[string]*memNode{}}
	m.files["/"] = &memNode{isDir: true, mode: 0o755, modTime: time.Time{}}
	return m
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	c := path.Clean(p)
	if !strings.HasPrefix(c, "/") {
		c = "/" + c
	}
	return c
}

func (m *MemFS) ResolvePath(cwd, p string) string {
	if strings.HasPrefix(p, "/") {
		return clean(p)
	}
	return clean(path.Join(cwd, p))
}

func (m *MemFS) ReadFile(p string) (string, error) {
	b, err := m.ReadFileBuffer(p)
	return string(b), err
}

func (m *MemFS) ReadFileBuffer(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.files[clean(p)]
	if !ok {
		return nil, &PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	if n.isDir {
		return nil, &PathError{Op: "read", Path: p, Err: fs.ErrInvalid}
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

func (m *MemFS) WriteFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeLocked(p, data)
}

func (m *MemFS) writeLocked(p string, data []byte) error {
	cp := clean(p)
	var missing []string
	for dir := path.Dir(cp); dir != "/"; dir = path.Dir(dir) {
		n, ok := m.files[dir]
		if !ok {
			missing = append(missing, dir)
			continue
		}
		if !n.isDir {
			return &PathError{Op: "open", Path: cp, Err: fs.ErrInvalid}
		}
		break
	}
	for _, dir := range missing {
		m.files[dir] = &memNode{isDir: true, mode: 0o755}
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.files[cp] = &memNode{data: buf, mode: 0o644, modTime: time.Time{}}
	return nil
}

func (m *MemFS) ensureParentLocked(cp string) error {
	dir := path.Dir(cp)
	if dir == "/" || dir == "." {
		return nil
	}
	if n, ok := m.files[dir]; ok {
		if !n.isDir {
			return &PathError{Op: "open", Path: cp, Err: fs.ErrInvalid}
		}
		return nil
	}
	return &PathError{Op: "open", Path: cp, Err: fs.ErrNotExist}
}

func (m *MemFS) AppendFile(p string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	if n, ok := m.files[cp]; ok && !n.isDir {
		n.data = append(n.data, data...)
		return nil
	}
	return m.writeLocked(p, data)
}

func (m *MemFS) Stat(p string) (FileInfo, error) { return m.statLocked(p) }
func (m *MemFS) Lstat(p string) (FileInfo, error) { return m.statLocked(p) }

func (m *MemFS) statLocked(p string) (FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	n, ok := m.files[cp]
	if !ok {
		return FileInfo{}, &PathError{Op: "stat", Path: p, Err: fs.ErrNotExist}
	}
	mode := n.mode
	if n.isDir {
		mode |= fs.ModeDir
	}
	return FileInfo{
		Name:    path.Base(cp),
		Size:    int64(len(n.data)),
		Mode:    mode,
		ModTime: n.modTime,
		IsDir:   n.isDir,
	}, nil
}

func (m *MemFS) ReadDir(p string) ([]string, error) {
	entries, err := m.ReadDirWithFileTypes(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func (m *MemFS) ReadDirWithFileTypes(p string) ([]DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	n, ok := m.files[cp]
	if !ok || !n.isDir {
		return nil, &PathError{Op: "readdir", Path: p, Err: fs.ErrNotExist}
	}
	prefix := cp
	if prefix != "/" {
		prefix += "/"
	}
	var out []DirEntry
	seen := map[string]bool{}
	for fp, node := range m.files {
		if fp == cp || !strings.HasPrefix(fp, prefix) {
			continue
		}
		rest := fp[len(prefix):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i]
			if seen[rest] {
				continue
			}
			seen[rest] = true
			out = append(out, DirEntry{Name: rest, IsDir: true})
			continue
		}
		if seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, DirEntry{Name: rest, IsDir: node.isDir})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemFS) Mkdir(p string, all bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	if all {
		parts := strings.Split(strings.Trim(cp, "/"), "/")
		cur := ""
		for _, part := range parts {
			cur += "/" + part
			if _, ok := m.files[cur]; !ok {
				m.files[cur] = &memNode{isDir: true, mode: 0o755}
			}
		}
		return nil
	}
	if err := m.ensureParentLocked(cp); err != nil {
		return err
	}
	if _, ok := m.files[cp]; ok {
		return &PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	m.files[cp] = &memNode{isDir: true, mode: 0o755}
	return nil
}

func (m *MemFS) Remove(p string, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	n, ok := m.files[cp]
	if !ok {
		return &PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	if n.isDir && !recursive {
		prefix := cp + "/"
		for fp := range m.files {
			if strings.HasPrefix(fp, prefix) {
				return &PathError{Op: "remove", Path: p, Err: fs.ErrInvalid}
			}
		}
	}
	prefix := cp + "/"
	for fp := range m.files {
		if fp == cp || strings.HasPrefix(fp, prefix) {
			delete(m.files, fp)
		}
	}
	return nil
}

func (m *MemFS) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(newname)
	if err := m.ensureParentLocked(cp); err != nil {
		return err
	}
	m.files[cp] = &memNode{link: oldname, mode: fs.ModeSymlink | 0o777}
	return nil
}

func (m *MemFS) Readlink(p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.files[clean(p)]
	if !ok || n.link == "" {
		return "", &PathError{Op: "readlink", Path: p, Err: fs.ErrInvalid}
	}
	return n.link, nil
}

func (m *MemFS) Chmod(p string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.files[clean(p)]
	if !ok {
		return &PathError{Op: "chmod", Path: p, Err: fs.ErrNotExist}
	}
	n.mode = mode
	return nil
}

func (m *MemFS) Realpath(p string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := clean(p)
	seen := map[string]bool{}
	for {
		n, ok := m.files[cp]
		if !ok {
			return "", &PathError{Op: "realpath", Path: p, Err: fs.ErrNotExist}
		}
		if n.link == "" {
			return cp, nil
		}
		if seen[cp] {
			return "", &PathError{Op: "realpath", Path: p, Err: fs.ErrInvalid}
		}
		seen[cp] = true
		cp = clean(path.Join(path.Dir(cp), n.link))
	}
}

func (m *MemFS) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[clean(p)]
	return ok
}
