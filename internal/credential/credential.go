// Package credential encrypts module API credentials at rest.
//
// Values are sealed with XChaCha20-Poly1305 under a key derived from the
// configured secret with HKDF-SHA256, and stored as base64(nonce || ciphertext).
package credential

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const hkdfInfo = "staffgate module credentials v1"

// ErrEmptyKey is returned when the store is created without key material.
var ErrEmptyKey = errors.New("credential key cannot be empty")

// Store encrypts at write and decrypts at read.
type Store struct {
	aead cipher.AEAD
}

// New derives the encryption key from secret.
func New(secret string) (*Store, error) {
	if secret == "" {
		return nil, ErrEmptyKey
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	return &Store{aead: aead}, nil
}

// Encrypt seals plaintext. An empty plaintext stays empty.
func (s *Store) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
// It fails closed: malformed or tampered input yields an empty string.
func (s *Store) Decrypt(ciphertext string) string {
	if ciphertext == "" {
		return ""
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < s.aead.NonceSize()+s.aead.Overhead() {
		return ""
	}

	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]

	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return ""
	}

	return string(plain)
}
