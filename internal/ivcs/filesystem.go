package ivcs

import (
	"context"
	"io"
	"time"
)

// ScannedFile is one matching regular file found by a scan.
type ScannedFile struct {
	// AbsPath is the path the file was reached through, symlinks not resolved.
	AbsPath string
	// RelativePath is relative to the scan root, using the OS separator.
	RelativePath string
	Extension    string
}

// ScanWarning records a subdirectory that could not be read.
type ScanWarning struct {
	Path string
	Err  error
}

// ScanResult is the inventory of a single root.
type ScanResult struct {
	Root  string
	Files []ScannedFile
	// Directories lists every subdirectory visited, relative to Root.
	Directories []string
	// SkippedDirs lists unreadable subdirectories, relative to Root.
	SkippedDirs []string
	Warnings    []ScanWarning
}

// Fingerprint identifies file content at a point in time.
type Fingerprint struct {
	Hash    string
	Size    int64
	ModTime time.Time
}

// FilesystemManager provides the filesystem operations the service needs.
type FilesystemManager interface {
	// Resolve validates a raw path and returns an absolute Path.
	Resolve(rawPath string) (*Path, error)

	// Scan enumerates regular files under root whose extension is in extensions.
	// A root that cannot be read at all yields a *ScanError.
	Scan(ctx context.Context, root string, extensions []string) (*ScanResult, error)

	// Fingerprint hashes the file at path. Failures are reported as *IOError.
	Fingerprint(path string) (*Fingerprint, error)

	// Stat returns the size and modification time of the file at path with an
	// empty Hash. Failures are reported as *IOError.
	Stat(path string) (*Fingerprint, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)
}
