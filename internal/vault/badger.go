package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

const blobPrefix = "blob:"

// BadgerBackend stores blobs in an embedded badger database.
type BadgerBackend struct {
	db     *badger.DB
	ownsDB bool
}

var _ Backend = (*BadgerBackend)(nil)

// NewBadgerBackend opens (or creates) a badger database in dir.
func NewBadgerBackend(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &BadgerBackend{db: db, ownsDB: true}, nil
}

// NewBadgerBackendFromDB wraps an already open database. Close leaves it open.
func NewBadgerBackendFromDB(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

func makeKey(key string) []byte {
	return []byte(blobPrefix + key)
}

// PutBlob buffers the blob and sets it once. Badger values are written whole
// and cannot exceed one value log file (ValueLogFileSize, 1 GiB by default);
// larger blobs fail with ErrBlobTooLarge before anything is written.
func (b *BadgerBackend) PutBlob(ctx context.Context, key string, r io.Reader) error {
	limit := b.db.Opts().ValueLogFileSize
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return fmt.Errorf("reading blob: %w", err)
	}
	if int64(len(data)) > limit {
		return fmt.Errorf("%w: badger values are limited to %d bytes", ErrBlobTooLarge, limit)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(makeKey(key))
		if err == nil {
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(makeKey(key), data)
	})
}

func (b *BadgerBackend) GetBlob(ctx context.Context, key string, w io.Writer) error {
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			_, err := io.Copy(w, bytes.NewReader(val))
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrBlobNotFound
	}
	if err != nil {
		return fmt.Errorf("reading blob: %w", err)
	}
	return nil
}

func (b *BadgerBackend) HasBlob(ctx context.Context, key string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(makeKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (b *BadgerBackend) ListBlobs(ctx context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(blobPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, strings.TrimPrefix(string(it.Item().Key()), blobPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing blobs: %w", err)
	}
	return keys, nil
}

func (b *BadgerBackend) DeleteBlob(ctx context.Context, key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(makeKey(key))
	})
}

func (b *BadgerBackend) ValidateSetup(ctx context.Context) error {
	if b.db.IsClosed() {
		return fmt.Errorf("badger store is closed")
	}
	return nil
}

func (b *BadgerBackend) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}
