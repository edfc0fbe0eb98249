// Package credentials encrypts and decrypts the API credentials stored in pipeline configurations.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	segmentCount = 3
	keySize      = 32
	hkdfInfo     = "blitz credential store v1"
)

var (
	// ErrInvalidFormat indicates an encrypted credential is not in iv:authTag:ciphertext form.
	ErrInvalidFormat = errors.New("invalid encrypted credential format")

	// ErrDecryptionFailed indicates the ciphertext could not be authenticated with the store key.
	ErrDecryptionFailed = errors.New("credential decryption failed")

	// ErrEmptySecret indicates the store was created without a secret.
	ErrEmptySecret = errors.New("credential secret cannot be empty")
)

// Store turns stored credential strings into plaintext secrets and back.
type Store interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encrypted string) (string, error)
}

// AESStore is a Store backed by AES-256-GCM.
// Encrypted values have the form hex(iv):hex(authTag):hex(ciphertext).
type AESStore struct {
	aead cipher.AEAD
}

// NewAESStore derives the encryption key from secret and returns a ready store.
func NewAESStore(secret string) (*AESStore, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	key := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &AESStore{aead: aead}, nil
}

func (s *AESStore) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagStart := len(sealed) - s.aead.Overhead()

	return strings.Join([]string{
		hex.EncodeToString(iv),
		hex.EncodeToString(sealed[tagStart:]),
		hex.EncodeToString(sealed[:tagStart]),
	}, ":"), nil
}

func (s *AESStore) Decrypt(encrypted string) (string, error) {
	parts := strings.Split(encrypted, ":")
	if len(parts) != segmentCount {
		return "", fmt.Errorf("%w: expected %d segments, got %d", ErrInvalidFormat, segmentCount, len(parts))
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != s.aead.NonceSize() {
		return "", fmt.Errorf("%w: bad iv", ErrInvalidFormat)
	}

	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != s.aead.Overhead() {
		return "", fmt.Errorf("%w: bad auth tag", ErrInvalidFormat)
	}

	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: bad ciphertext", ErrInvalidFormat)
	}

	plaintext, err := s.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecryptionFailed, err)
	}

	return string(plaintext), nil
}

// DecryptOrRaw decrypts value, falling back to the raw value when it does not decrypt.
// Only used where a stored credential may legitimately already be plaintext.
func DecryptOrRaw(store Store, value string) string {
	if store == nil || value == "" {
		return value
	}

	plaintext, err := store.Decrypt(value)
	if err != nil {
		return value
	}

	return plaintext
}
