// Package vault seals and opens token strings with AES-256-GCM under a single
// process-wide key. Losing or rotating the key invalidates every sealed value
// at once; there is no per-tenant key derivation and no recovery path short of
// re-authorization.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ewhitley/sitepulse/internal/domain/model"
)

// KeySize is the required key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrKeyNotSet is returned when the vault was constructed without a key.
	ErrKeyNotSet = errors.New("encryption key not configured: set SITEPULSE_ENCRYPTION_KEY")

	// ErrMalformedValue is returned when a sealed value's fields are not
	// valid base64 or have impossible lengths.
	ErrMalformedValue = errors.New("malformed sealed value")

	// ErrAuthentication is returned when the authentication tag does not
	// verify: the value was tampered with or sealed under a different key.
	// Fatal for the affected credential; never retried.
	ErrAuthentication = errors.New("sealed value failed authentication")
)

// Vault seals and opens strings. The zero value is unusable; construct with New.
type Vault struct {
	aead cipher.AEAD
}

// New creates a Vault from a raw 32-byte key, or a keyless Vault (every
// operation returns ErrKeyNotSet) when key is nil.
func New(key []byte) (*Vault, error) {
	if key == nil {
		return &Vault{}, nil
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	return &Vault{aead: aead}, nil
}

// HasKey reports whether the vault holds a usable key.
func (v *Vault) HasKey() bool {
	return v.aead != nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// ciphertext, nonce, and authentication tag as separate base64 fields. The
// three fields must always be stored and rotated together.
func (v *Vault) Seal(plaintext string) (model.SealedToken, error) {
	if v.aead == nil {
		return model.SealedToken{}, ErrKeyNotSet
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return model.SealedToken{}, fmt.Errorf("rand nonce: %w", err)
	}

	// Seal output is ciphertext || tag; split the tag off so the stored
	// record carries it as its own field.
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	cut := len(sealed) - v.aead.Overhead()

	return model.SealedToken{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:cut]),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Tag:        base64.StdEncoding.EncodeToString(sealed[cut:]),
	}, nil
}

// Open decrypts a sealed token and verifies its tag. A verification failure
// returns ErrAuthentication and must be treated as fatal for the credential,
// not retried.
func (v *Vault) Open(tok model.SealedToken) (string, error) {
	if v.aead == nil {
		return "", ErrKeyNotSet
	}

	ciphertext, err := base64.StdEncoding.DecodeString(tok.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformedValue, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(tok.Nonce)
	if err != nil {
		return "", fmt.Errorf("%w: nonce: %v", ErrMalformedValue, err)
	}
	tag, err := base64.StdEncoding.DecodeString(tok.Tag)
	if err != nil {
		return "", fmt.Errorf("%w: tag: %v", ErrMalformedValue, err)
	}
	if len(nonce) != v.aead.NonceSize() || len(tag) != v.aead.Overhead() {
		return "", ErrMalformedValue
	}

	plaintext, err := v.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrAuthentication
	}

	return string(plaintext), nil
}
