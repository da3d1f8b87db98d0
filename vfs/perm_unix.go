//go:build unix

package vfs

import (
	"io/fs"

	"golang.org/x/sys/unix"
)

// applyChmod sets the full unix permission bits, including setuid/setgid/
// sticky, which fs.FileMode alone can carry but which os.Chmod's portable
// wrapper is conservative about round-tripping from parsed octal text.
func applyChmod(path string, mode fs.FileMode) error {
	return unix.Chmod(path, uint32(mode.Perm())|extraBits(mode))
}

func extraBits(mode fs.FileMode) uint32 {
	var bits uint32
	if mode&fs.ModeSetuid != 0 {
		bits |= unix.S_ISUID
	}
	if mode&fs.ModeSetgid != 0 {
		bits |= unix.S_ISGID
	}
	if mode&fs.ModeSticky != 0 {
		bits |= unix.S_ISVTX
	}
	return bits
}
