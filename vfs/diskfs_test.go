package vfs

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestDiskFSReadWrite(t *testing.T) {
	c := qt.New(t)
	fsys := NewDiskFS(t.TempDir())

	c.Assert(fsys.WriteFile("/greeting.txt", []byte("hi")), qt.IsNil)
	got, err := fsys.ReadFile("/greeting.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hi")

	c.Assert(fsys.AppendFile("/greeting.txt", []byte("!")), qt.IsNil)
	got, err = fsys.ReadFile("/greeting.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hi!")
}

func TestDiskFSMkdirAndReadDir(t *testing.T) {
	c := qt.New(t)
	fsys := NewDiskFS(t.TempDir())

	c.Assert(fsys.Mkdir("/sub", true), qt.IsNil)
	c.Assert(fsys.WriteFile("/sub/a.txt", []byte("a")), qt.IsNil)
	c.Assert(fsys.WriteFile("/sub/b.txt", []byte("b")), qt.IsNil)

	names, err := fsys.ReadDir("/sub")
	c.Assert(err, qt.IsNil)
	c.Assert(names, qt.DeepEquals, []string{"a.txt", "b.txt"})
}

func TestDiskFSStatAndRemove(t *testing.T) {
	c := qt.New(t)
	fsys := NewDiskFS(t.TempDir())

	c.Assert(fsys.WriteFile("/f", []byte("data")), qt.IsNil)
	info, err := fsys.Stat("/f")
	c.Assert(err, qt.IsNil)
	c.Assert(info.Size, qt.Equals, int64(4))
	c.Assert(info.IsDir, qt.Equals, false)

	c.Assert(fsys.Remove("/f", false), qt.IsNil)
	c.Assert(fsys.Exists("/f"), qt.Equals, false)
}
