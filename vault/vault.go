package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Vault defines a public type used by tgauth APIs.
//
// Vault instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Vault struct {
	aead cipher.AEAD
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(key []byte) (*Vault, error) {
	if len(key) != 32 {
		return nil, errors.New("AES-256 requires a 32 byte key")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (v *Vault) Encrypt(plaintext string) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	ct := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return append(nonce, ct...), nil
}

// Decrypt opens nonce||ciphertext produced by Encrypt.
func (v *Vault) Decrypt(data []byte) (string, error) {
	ns := v.aead.NonceSize()
	if len(data) < ns {
		return "", errors.New("ciphertext too short")
	}
	pt, err := v.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}
