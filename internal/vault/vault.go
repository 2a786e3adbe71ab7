// internal/vault/vault.go
// Package vault encrypts torrent daemon credentials at rest.
// It uses AES-256-GCM keyed by a process-wide secret; the per-user salt
// generated at registration time doubles as the nonce.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// Sizes required by the cipher. New rejects any other lengths.
const (
	KeySize   = 32 // AES-256 key, bytes
	NonceSize = 12 // GCM standard nonce, bytes
)

// KeySizeError reports a secret of the wrong byte length.
type KeySizeError int

func (e KeySizeError) Error() string {
	return fmt.Sprintf("vault: key has wrong length: %d, expected: %d", int(e), KeySize)
}

// NonceSizeError reports a salt of the wrong byte length.
type NonceSizeError int

func (e NonceSizeError) Error() string {
	return fmt.Sprintf("vault: nonce(salt) has wrong length: %d, expected: %d", int(e), NonceSize)
}

// Vault performs authenticated encryption under a fixed (key, nonce) pair.
//
// The salt is reused as the nonce for every encryption done for one user.
// That is only safe while at most one secret is ever encrypted per user,
// which holds for the single-server-per-user design. Revisit before
// encrypting anything else with the same salt.
type Vault struct {
	aead  cipher.AEAD
	nonce []byte
}

// New builds a Vault from the process-wide secret and the user's salt.
// Byte lengths are checked explicitly: a wrong secret length fails with
// KeySizeError and a wrong salt length with NonceSizeError, never silently
// truncated or padded.
func New(secret, salt string) (*Vault, error) {
	key := []byte(secret)
	nonce := []byte(salt)
	if len(key) != KeySize {
		return nil, KeySizeError(len(key))
	}
	if len(nonce) != NonceSize {
		return nil, NonceSizeError(len(nonce))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return &Vault{aead: aead, nonce: nonce}, nil
}

// Encrypt seals the plaintext and returns it base64-encoded.
func (v *Vault) Encrypt(plaintext string) string {
	sealed := v.aead.Seal(nil, v.nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Malformed base64 or an authentication-tag
// mismatch fails the whole read; no partial output is ever returned.
func (v *Vault) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("vault: ciphertext is not base64: %w", err)
	}
	plaintext, err := v.aead.Open(nil, v.nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt failed: %w", err)
	}
	return string(plaintext), nil
}

const saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// RandomSalt returns a random alphanumeric string of exactly NonceSize bytes,
// suitable for storing alongside a new user record.
func RandomSalt() string {
	out := make([]byte, NonceSize)
	max := big.NewInt(int64(len(saltAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("vault: random source unavailable: %v", err))
		}
		out[i] = saltAlphabet[n.Int64()]
	}
	return string(out)
}

// SelfTest builds a vault with the given secret and a throwaway salt and
// round-trips a probe value. Run at startup so a misconfigured secret fails
// the process before the first credential write.
func SelfTest(secret string) error {
	v, err := New(secret, RandomSalt())
	if err != nil {
		return err
	}
	const probe = "probe"
	got, err := v.Decrypt(v.Encrypt(probe))
	if err != nil {
		return err
	}
	if got != probe {
		return fmt.Errorf("vault: self test round trip mismatch")
	}
	return nil
}
