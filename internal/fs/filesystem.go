package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ivcs-go/internal/ivcs"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	// ignore holds configured patterns applied under every scan root in
	// addition to the root's own .ivcsignore.
	ignore []string
}

// NewOSFilesystemManager creates a filesystem manager that operates on the
// real filesystem. ignorePatterns use the .ivcsignore syntax.
func NewOSFilesystemManager(ignorePatterns []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignorePatterns}
}

// Resolve validates a raw path and returns a Path object.
// Symlinks are followed; devices, pipes and sockets are rejected. A directory
// resolves to its real path, so aliases of one tree compare equal. For a
// file only the parent directory is canonicalized and a symlinked file keeps
// its own name.
func (m *OSFilesystemManager) Resolve(rawPath string) (*ivcs.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	realPath, err := canonicalPath(absPath, info.IsDir())
	if err != nil {
		return nil, fmt.Errorf("resolving symlinks: %w", err)
	}
	return ivcs.NewPath(realPath, info.IsDir(), info), nil
}

func canonicalPath(absPath string, isDir bool) (string, error) {
	if isDir {
		return filepath.EvalSymlinks(absPath)
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(absPath))
	if err != nil {
		return "", err
	}
	return filepath.Join(parent, filepath.Base(absPath)), nil
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return f, nil
}

var _ ivcs.FilesystemManager = (*OSFilesystemManager)(nil)
