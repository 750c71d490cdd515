package ivcs

import "io"

// Encryptor encrypts stored blobs. Encryption needs only the public key;
// decryption needs the passphrase that protects the private key.
type Encryptor interface {
	// Setup generates a key pair and protects the private key with passphrase.
	// Called once during `ivcs config init`.
	Setup(passphrase string) error

	// Encrypt returns a writer that encrypts into w. The caller must Close it
	// to flush the final chunk.
	Encrypt(w io.Writer) (io.WriteCloser, error)

	// Unlock decrypts the private key and returns a DecryptionContext.
	// Returns an error if the passphrase is incorrect.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for a session.
type DecryptionContext interface {
	// Decrypt returns a reader yielding the plaintext of r.
	Decrypt(r io.Reader) (io.Reader, error)
}
