//go:build unix

package fs

import (
	"fmt"
	"io/fs"
	"syscall"
)

// dirKey identifies a directory independently of the path used to reach it.
type dirKey struct {
	dev uint64
	ino uint64
}

// identify extracts the device and inode of a followed stat.
func identify(path string, info fs.FileInfo) (dirKey, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return dirKey{}, fmt.Errorf("cannot identify %s: expected *syscall.Stat_t, got %T", path, info.Sys())
	}
	return dirKey{dev: uint64(stat.Dev), ino: uint64(stat.Ino)}, nil
}
