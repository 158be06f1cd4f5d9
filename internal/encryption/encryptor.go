// Package encryption protects archived cache snapshots before they leave
// the host.
package encryption

import "io"

// Encryptor encrypts snapshot streams. Setup generates key material;
// Encrypt only needs the public half, so routine archiving never prompts
// for a passphrase.
type Encryptor interface {
	// Setup generates and stores a new key pair, protecting the private
	// half with the passphrase.
	Setup(passphrase string) error

	// Encrypt reads plaintext from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key with the passphrase and returns a
	// context able to decrypt snapshots.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether key material is in place.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked identity for decrypting snapshots.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
