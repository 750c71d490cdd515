//go:build !unix

package fs

import (
	"io/fs"
	"path/filepath"
)

type dirKey struct {
	real string
}

// identify resolves every symlink in path to find the directory's real location.
func identify(path string, _ fs.FileInfo) (dirKey, error) {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return dirKey{}, err
	}
	return dirKey{real: real}, nil
}
