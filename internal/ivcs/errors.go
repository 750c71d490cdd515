package ivcs

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the checkout and commit operations.
var (
	ErrNotCheckedOut    = errors.New("asset is not checked out")
	ErrNotHolder        = errors.New("checkout is held by another user")
	ErrNothingToCommit  = errors.New("no uncommitted change for asset")
	ErrAssetMissing     = errors.New("asset is not present on disk")
	ErrDirectoryOverlap = errors.New("directory overlaps a registered directory")
	// ErrInventoryChanged means an asset row changed between being read and
	// being rewritten. The writer re-reads and tries again.
	ErrInventoryChanged = errors.New("asset inventory changed concurrently")
)

// ScanError reports that a scan root could not be walked at all.
// It is fatal for the scan that produced it.
type ScanError struct {
	Root string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %v", e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// IOError reports that a single file could not be read while fingerprinting.
// The file is skipped for the current pass and picked up again on the next scan.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ConflictError reports that an asset is checked out by someone else.
type ConflictError struct {
	AssetID string
	Holder  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("asset %s is checked out by %s", e.AssetID, e.Holder)
}

// NotFoundError reports a missing record or a missing version store key.
// Kind is one of "project", "directory", "asset", "version" or "content".
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// ConfigError reports an invalid configuration value. It is fatal at startup.
type ConfigError struct {
	Field string
	Value string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
}

// IsNotFound reports whether err is a NotFoundError of the given kind.
// An empty kind matches any NotFoundError.
func IsNotFound(err error, kind string) bool {
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		return false
	}
	return kind == "" || nf.Kind == kind
}
