// Package vault implements the content-addressed version store. A Vault
// hashes, compresses and optionally encrypts blobs before handing them to a
// Backend, and reverses the pipeline on read.
package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"

	"ivcs-go/internal/ivcs"
)

var (
	// ErrBlobNotFound is returned by a Backend when a key is absent.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrBlobTooLarge means a backend cannot hold a blob of that size.
	ErrBlobTooLarge = errors.New("blob too large for store")
	// ErrChecksumMismatch means a stored blob no longer hashes to its key.
	ErrChecksumMismatch = errors.New("blob checksum mismatch")
	// ErrLocked means the vault holds encrypted blobs and has not been unlocked.
	ErrLocked = errors.New("vault is locked")
	// ErrInvalidKey rejects keys that are not 64 lowercase hex characters.
	ErrInvalidKey = errors.New("invalid content key")
)

// DefaultCacheSize bounds the known-key cache when Options.CacheSize is 0.
const DefaultCacheSize = 4096

// Backend stores opaque encoded blobs by key.
type Backend interface {
	// PutBlob stores everything read from r under key. Storing an existing key
	// must leave the stored blob intact.
	PutBlob(ctx context.Context, key string, r io.Reader) error

	// GetBlob writes the blob stored under key to w, or returns ErrBlobNotFound.
	GetBlob(ctx context.Context, key string, w io.Writer) error

	HasBlob(ctx context.Context, key string) (bool, error)
	ListBlobs(ctx context.Context) ([]string, error)

	// DeleteBlob removes key. Deleting a missing key is not an error.
	DeleteBlob(ctx context.Context, key string) error

	// ValidateSetup verifies the backend is reachable and writable.
	ValidateSetup(ctx context.Context) error

	Close() error
}

// Options configure a Vault.
type Options struct {
	// Encryptor seals blobs after compression. Nil stores them unencrypted.
	Encryptor ivcs.Encryptor
	// Level is the zstd level, 1 (fastest) to 4 (best). 0 uses the default.
	Level int
	// CacheSize bounds the known-key cache. 0 uses DefaultCacheSize.
	CacheSize int
	// SpoolDir holds temporary files while content is hashed. Empty uses os.TempDir.
	SpoolDir string
}

// Vault is an ivcs.VersionStore over a Backend.
type Vault struct {
	backend   Backend
	encryptor ivcs.Encryptor
	level     zstd.EncoderLevel
	known     *lru.Cache[string, struct{}]
	spoolDir  string

	mu        sync.RWMutex
	decryptor ivcs.DecryptionContext
}

var _ ivcs.VersionStore = (*Vault)(nil)

// New creates a Vault that stores blobs in backend.
func New(backend Backend, opts Options) (*Vault, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	known, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("creating key cache: %w", err)
	}

	level := zstd.SpeedDefault
	if opts.Level != 0 {
		if opts.Level < 1 || opts.Level > 4 {
			return nil, fmt.Errorf("compression level %d out of range 1-4", opts.Level)
		}
		level = zstd.EncoderLevel(opts.Level)
	}

	return &Vault{
		backend:   backend,
		encryptor: opts.Encryptor,
		level:     level,
		known:     known,
		spoolDir:  opts.SpoolDir,
	}, nil
}

// Backend returns the underlying blob backend.
func (v *Vault) Backend() Backend { return v.backend }

// Encrypted reports whether blobs are sealed before storage.
func (v *Vault) Encrypted() bool { return v.encryptor != nil }

// Unlock installs the decryption context used by Get.
func (v *Vault) Unlock(dc ivcs.DecryptionContext) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.decryptor = dc
}

// Put stores the content of r and returns its key. The content is spooled to
// a temporary file while hashing so the key is known before anything is written.
func (v *Vault) Put(ctx context.Context, r io.Reader) (string, error) {
	spool, err := os.CreateTemp(v.spoolDir, "ivcs-spool-*")
	if err != nil {
		return "", fmt.Errorf("creating spool file: %w", err)
	}
	defer func() {
		spool.Close()
		os.Remove(spool.Name())
	}()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(spool, h), r); err != nil {
		return "", fmt.Errorf("spooling content: %w", err)
	}
	key := hex.EncodeToString(h.Sum(nil))

	exists, err := v.Has(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		return key, nil
	}

	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding spool file: %w", err)
	}
	if err := v.store(ctx, key, spool); err != nil {
		return "", fmt.Errorf("storing %s: %w", key, err)
	}
	v.known.Add(key, struct{}{})
	return key, nil
}

// store encodes plaintext and streams it into the backend.
func (v *Vault) store(ctx context.Context, key string, plaintext io.Reader) error {
	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := v.encode(pw, plaintext)
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		err := v.backend.PutBlob(gctx, key, pr)
		pr.CloseWithError(err)
		return err
	})
	return g.Wait()
}

func (v *Vault) encode(dst io.Writer, plaintext io.Reader) error {
	var sealed io.WriteCloser
	if v.encryptor != nil {
		var err error
		if sealed, err = v.encryptor.Encrypt(dst); err != nil {
			return fmt.Errorf("starting encryption: %w", err)
		}
		dst = sealed
	}

	enc, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(v.level))
	if err != nil {
		return fmt.Errorf("creating encoder: %w", err)
	}
	if _, err := io.Copy(enc, plaintext); err != nil {
		enc.Close()
		return fmt.Errorf("compressing: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}
	if sealed != nil {
		if err := sealed.Close(); err != nil {
			return fmt.Errorf("finalizing encryption: %w", err)
		}
	}
	return nil
}

// Get writes the plaintext stored under key to w. The decoded content is
// verified against key before Get returns nil.
func (v *Vault) Get(ctx context.Context, key string, w io.Writer) error {
	if err := validKey(key); err != nil {
		return err
	}

	var dc ivcs.DecryptionContext
	if v.encryptor != nil {
		v.mu.RLock()
		dc = v.decryptor
		v.mu.RUnlock()
		if dc == nil {
			return ErrLocked
		}
	}

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var fetchErr error
	g.Go(func() error {
		fetchErr = v.backend.GetBlob(gctx, key, pw)
		pw.CloseWithError(fetchErr)
		return fetchErr
	})
	g.Go(func() error {
		err := decode(w, pr, dc, key)
		pr.CloseWithError(err)
		return err
	})

	err := g.Wait()
	if errors.Is(fetchErr, ErrBlobNotFound) {
		return &ivcs.NotFoundError{Kind: "content", Key: key}
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

func decode(w io.Writer, encoded io.Reader, dc ivcs.DecryptionContext, key string) error {
	src := encoded
	if dc != nil {
		var err error
		if src, err = dc.Decrypt(encoded); err != nil {
			return fmt.Errorf("decrypting: %w", err)
		}
	}

	dec, err := zstd.NewReader(src)
	if err != nil {
		return fmt.Errorf("creating decoder: %w", err)
	}
	defer dec.Close()

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, h), dec); err != nil {
		return fmt.Errorf("decompressing: %w", err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != key {
		return fmt.Errorf("%w: got %s", ErrChecksumMismatch, got)
	}
	return nil
}

// Has reports whether key is stored, consulting the known-key cache first.
func (v *Vault) Has(ctx context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	if v.known.Contains(key) {
		return true, nil
	}
	ok, err := v.backend.HasBlob(ctx, key)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	if ok {
		v.known.Add(key, struct{}{})
	}
	return ok, nil
}

// Keys lists stored keys in sorted order.
func (v *Vault) Keys(ctx context.Context) ([]string, error) {
	keys, err := v.backend.ListBlobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete removes key from the backend and the known-key cache.
func (v *Vault) Delete(ctx context.Context, key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	v.known.Remove(key)
	if err := v.backend.DeleteBlob(ctx, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// ValidateSetup checks the backend.
func (v *Vault) ValidateSetup(ctx context.Context) error {
	return v.backend.ValidateSetup(ctx)
}

func (v *Vault) Close() error {
	return v.backend.Close()
}

func validKey(key string) error {
	if len(key) != sha256.Size*2 {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
