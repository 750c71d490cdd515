package vault

import (
	"context"
	"fmt"

	"ivcs-go/internal/config"
	"ivcs-go/internal/ivcs"
)

// NewBackendFromConfig creates a Backend based on the store config type.
func NewBackendFromConfig(ctx context.Context, cfg config.StoreConfig) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBackend(), nil
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem store requires root to be set")
		}
		return NewFileSystemBackend(cfg.Root)
	case "badger":
		if cfg.Root == "" {
			return nil, fmt.Errorf("badger store requires root to be set")
		}
		return NewBadgerBackend(cfg.Root)
	case "s3":
		return NewS3Backend(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

// NewVaultFromConfig creates the backend named by cfg and wraps it in a Vault.
// enc may be nil to store blobs unencrypted.
func NewVaultFromConfig(ctx context.Context, cfg config.StoreConfig, enc ivcs.Encryptor) (*Vault, error) {
	backend, err := NewBackendFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	v, err := New(backend, Options{
		Encryptor: enc,
		Level:     cfg.CompressionLevel,
		CacheSize: cfg.CacheSize,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return v, nil
}
