package vault

import (
	"bytes"
	"context"
)

// PutBytes stores data and returns its key.
func (v *Vault) PutBytes(ctx context.Context, data []byte) (string, error) {
	return v.Put(ctx, bytes.NewReader(data))
}

// GetBytes returns the content stored under key.
func (v *Vault) GetBytes(ctx context.Context, key string) ([]byte, error) {
	var buf bytes.Buffer
	if err := v.Get(ctx, key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
