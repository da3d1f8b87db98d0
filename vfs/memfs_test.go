package vfs

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestMemFSReadWrite(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS()

	c.Assert(fsys.WriteFile("/a/b/c.txt", []byte("hello")), qt.IsNil)

	got, err := fsys.ReadFile("/a/b/c.txt")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "hello")

	c.Assert(fsys.Exists("/a/b"), qt.Equals, true)
	info, err := fsys.Stat("/a/b")
	c.Assert(err, qt.IsNil)
	c.Assert(info.IsDir, qt.Equals, true)
}

func TestMemFSAppend(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS()

	c.Assert(fsys.WriteFile("/x", []byte("a")), qt.IsNil)
	c.Assert(fsys.AppendFile("/x", []byte("b")), qt.IsNil)

	got, err := fsys.ReadFile("/x")
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "ab")
}

func TestMemFSReadDir(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS()

	c.Assert(fsys.WriteFile("/dir/one.txt", []byte("1")), qt.IsNil)
	c.Assert(fsys.WriteFile("/dir/two.txt", []byte("2")), qt.IsNil)
	c.Assert(fsys.Mkdir("/dir/sub", false), qt.IsNil)

	names, err := fsys.ReadDir("/dir")
	c.Assert(err, qt.IsNil)
	c.Assert(len(names), qt.Equals, 3)
}

func TestMemFSRemove(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS()

	c.Assert(fsys.WriteFile("/a/b.txt", []byte("x")), qt.IsNil)
	c.Assert(fsys.Remove("/a", true), qt.IsNil)
	c.Assert(fsys.Exists("/a"), qt.Equals, false)
}

func TestMemFSResolvePath(t *testing.T) {
	c := qt.New(t)
	fsys := NewMemFS()

	c.Assert(fsys.ResolvePath("/home/u", "sub/file"), qt.Equals, "/home/u/sub/file")
	c.Assert(fsys.ResolvePath("/home/u", "/abs/file"), qt.Equals, "/abs/file")
	c.Assert(fsys.ResolvePath("/home/u", "../other"), qt.Equals, "/home/other")
}
