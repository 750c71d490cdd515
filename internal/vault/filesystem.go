package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemBackend stores blobs as files under a root directory, fanned out
// by the first two characters of the key:
//
//	<root>/
//	  content/
//	    ab/
//	      cdef...   (remaining 62 characters of the key)
type FileSystemBackend struct {
	root       string
	contentDir string
}

var _ Backend = (*FileSystemBackend)(nil)

// NewFileSystemBackend creates the directory layout under root.
func NewFileSystemBackend(root string) (*FileSystemBackend, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	return &FileSystemBackend{root: root, contentDir: contentDir}, nil
}

func (b *FileSystemBackend) blobPath(key string) string {
	return filepath.Join(b.contentDir, key[:2], key[2:])
}

// PutBlob writes the blob atomically. An existing blob is kept and r is drained.
func (b *FileSystemBackend) PutBlob(ctx context.Context, key string, r io.Reader) error {
	destPath := b.blobPath(key)
	if _, err := os.Stat(destPath); err == nil {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return fmt.Errorf("failed to read blob: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create fan-out directory: %w", err)
	}
	return writeFile(destPath, r)
}

func (b *FileSystemBackend) GetBlob(ctx context.Context, key string, w io.Writer) error {
	f, err := os.Open(b.blobPath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to open blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read blob: %w", err)
	}
	return nil
}

func (b *FileSystemBackend) HasBlob(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.blobPath(key))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat blob: %w", err)
}

// ListBlobs walks the fan-out directories. Leftover temp files are ignored.
func (b *FileSystemBackend) ListBlobs(ctx context.Context) ([]string, error) {
	var keys []string
	fanout, err := os.ReadDir(b.contentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory: %w", err)
	}
	for _, dir := range fanout {
		if !dir.IsDir() || len(dir.Name()) != 2 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(b.contentDir, dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", dir.Name(), err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
				continue
			}
			keys = append(keys, dir.Name()+e.Name())
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func (b *FileSystemBackend) DeleteBlob(ctx context.Context, key string) error {
	err := os.Remove(b.blobPath(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

// ValidateSetup verifies that the store directories are accessible.
func (b *FileSystemBackend) ValidateSetup(ctx context.Context) error {
	for _, dir := range []string{b.root, b.contentDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("store directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", dir)
		}
	}
	return nil
}

func (b *FileSystemBackend) Close() error { return nil }

// writeFile writes r to destPath through a temp file in the same directory
// followed by a rename.
func writeFile(destPath string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
