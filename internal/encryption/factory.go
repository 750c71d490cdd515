package encryption

import (
	"fmt"

	"ivcs-go/internal/config"
	"ivcs-go/internal/ivcs"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) disables encryption and returns a nil Encryptor.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (ivcs.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
