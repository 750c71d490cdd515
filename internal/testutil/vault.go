package testutil

import (
	"testing"

	"ivcs-go/internal/vault"
)

// NewTestVault creates a vault over an in-memory backend. It also returns the
// backend so tests can inspect or corrupt stored blobs.
func NewTestVault(t *testing.T) (*vault.Vault, *vault.MemoryBackend) {
	t.Helper()

	backend := vault.NewMemoryBackend()
	v, err := vault.New(backend, vault.Options{SpoolDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}
	return v, backend
}
