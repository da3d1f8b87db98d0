//go:build !unix

package vfs

import (
	"io/fs"
	"os"
)

// applyChmod falls back to the portable os.Chmod on non-unix hosts, where
// setuid/setgid/sticky bits have no meaning.
func applyChmod(path string, mode fs.FileMode) error {
	return os.Chmod(path, mode.Perm())
}
