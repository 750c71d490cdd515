package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"ivcs-go/internal/ivcs"
)

// ChunkSize is the read size used while hashing.
const ChunkSize = 4096

// Fingerprint streams the file through SHA-256 in ChunkSize reads and
// returns the hex digest, the byte count hashed and the modification time
// truncated to whole seconds in UTC. Any failure is an *ivcs.IOError.
func (m *OSFilesystemManager) Fingerprint(path string) (*ivcs.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ivcs.IOError{Path: path, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, &ivcs.IOError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ivcs.IOError{Path: path, Err: fmt.Errorf("not a regular file")}
	}

	h := sha256.New()
	buf := make([]byte, ChunkSize)
	var size int64
	for {
		n, err := f.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
			size += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ivcs.IOError{Path: path, Err: err}
		}
	}

	return &ivcs.Fingerprint{
		Hash:    hex.EncodeToString(h.Sum(nil)),
		Size:    size,
		ModTime: wholeSeconds(info.ModTime()),
	}, nil
}

// Stat returns size and whole-second modification time without reading content.
func (m *OSFilesystemManager) Stat(path string) (*ivcs.Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ivcs.IOError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &ivcs.IOError{Path: path, Err: fmt.Errorf("not a regular file")}
	}
	return &ivcs.Fingerprint{
		Size:    info.Size(),
		ModTime: wholeSeconds(info.ModTime()),
	}, nil
}

func wholeSeconds(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0).UTC()
}
