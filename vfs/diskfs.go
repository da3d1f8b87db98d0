package vfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
)

// DiskFS is a [FileSystem] rooted at a real directory on the host
// filesystem. WriteFile goes through [renameio] so a script killed
// mid-write (by an [limits.ExecutionLimitError] or a host timeout) never
// leaves a half-written file where a consumer might read it; AppendFile
// appends to the existing file in place, without that guarantee.
type DiskFS struct {
	Root string
}

// NewDiskFS returns a [DiskFS] rooted at root. root must already exist.
func NewDiskFS(root string) *DiskFS {
	return &DiskFS{Root: root}
}

func (d *DiskFS) real(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Join(d.Root, filepath.Clean(p))
	}
	return filepath.Join(d.Root, p)
}

func (d *DiskFS) ResolvePath(cwd, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(cwd, p))
}

func (d *DiskFS) ReadFile(p string) (string, error) {
	b, err := d.ReadFileBuffer(p)
	return string(b), err
}

func (d *DiskFS) ReadFileBuffer(p string) ([]byte, error) {
	b, err := os.ReadFile(d.real(p))
	if err != nil {
		return nil, &PathError{Op: "open", Path: p, Err: err}
	}
	return b, nil
}

func (d *DiskFS) WriteFile(p string, data []byte) error {
	if err := renameio.WriteFile(d.real(p), data, 0o644); err != nil {
		return &PathError{Op: "write", Path: p, Err: err}
	}
	return nil
}

func (d *DiskFS) AppendFile(p string, data []byte) error {
	real := d.real(p)
	f, err := os.OpenFile(real, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PathError{Op: "open", Path: p, Err: err}
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return &PathError{Op: "write", Path: p, Err: err}
	}
	return nil
}

func (d *DiskFS) Stat(p string) (FileInfo, error) { return d.stat(p, os.Stat) }
func (d *DiskFS) Lstat(p string) (FileInfo, error) { return d.stat(p, os.Lstat) }

func (d *DiskFS) stat(p string, statFn func(string) (os.FileInfo, error)) (FileInfo, error) {
	fi, err := statFn(d.real(p))
	if err != nil {
		return FileInfo{}, &PathError{Op: "stat", Path: p, Err: err}
	}
	return FileInfo{Name: fi.Name(), Size: fi.Size(), Mode: fi.Mode(), ModTime: fi.ModTime(), IsDir: fi.IsDir()}, nil
}

func (d *DiskFS) ReadDir(p string) ([]string, error) {
	entries, err := d.ReadDirWithFileTypes(p)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names, nil
}

func (d *DiskFS) ReadDirWithFileTypes(p string) ([]DirEntry, error) {
	ents, err := os.ReadDir(d.real(p))
	if err != nil {
		return nil, &PathError{Op: "readdir", Path: p, Err: err}
	}
	out := make([]DirEntry, len(ents))
	for i, e := range ents {
		out[i] = DirEntry{Name: e.Name(), IsDir: e.IsDir()}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *DiskFS) Mkdir(p string, all bool) error {
	var err error
	if all {
		err = os.MkdirAll(d.real(p), 0o755)
	} else {
		err = os.Mkdir(d.real(p), 0o755)
	}
	if err != nil {
		return &PathError{Op: "mkdir", Path: p, Err: err}
	}
	return nil
}

func (d *DiskFS) Remove(p string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(d.real(p))
	} else {
		err = os.Remove(d.real(p))
	}
	if err != nil {
		return &PathError{Op: "remove", Path: p, Err: err}
	}
	return nil
}

func (d *DiskFS) Symlink(oldname, newname string) error {
	if err := os.Symlink(oldname, d.real(newname)); err != nil {
		return &PathError{Op: "symlink", Path: newname, Err: err}
	}
	return nil
}

func (d *DiskFS) Readlink(p string) (string, error) {
	s, err := os.Readlink(d.real(p))
	if err != nil {
		return "", &PathError{Op: "readlink", Path: p, Err: err}
	}
	return s, nil
}

func (d *DiskFS) Chmod(p string, mode fs.FileMode) error {
	if err := applyChmod(d.real(p), mode); err != nil {
		return &PathError{Op: "chmod", Path: p, Err: err}
	}
	return nil
}

func (d *DiskFS) Realpath(p string) (string, error) {
	real, err := filepath.EvalSymlinks(d.real(p))
	if err != nil {
		return "", &PathError{Op: "realpath", Path: p, Err: err}
	}
	return real, nil
}

func (d *DiskFS) Exists(p string) bool {
	_, err := os.Lstat(d.real(p))
	return err == nil
}
