package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMissingKey     = errors.New("secure store key is empty")
	ErrKeySize        = errors.New("secure store key must decode to 32 bytes")
	ErrSealedTooShort = errors.New("sealed value is too short")
)

// Sealer protects stored values. Each value is bound to the entry name it
// was written under and will not open under any other name.
type Sealer interface {
	Seal(name string, value []byte) ([]byte, error)
	Open(name string, sealed []byte) ([]byte, error)
}

// AESSealer seals with AES-256-GCM. The entry name is the additional data
// and the random nonce is stored in front of the ciphertext.
type AESSealer struct {
	aead cipher.AEAD
}

// NewAESSealer builds a sealer from SECURE_STORE_KEY, a base64-encoded
// 32-byte key.
func NewAESSealer(encodedKey string) (*AESSealer, error) {
	if encodedKey == "" {
		return nil, ErrMissingKey
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decoding secure store key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESSealer{aead: aead}, nil
}

func (s *AESSealer) Seal(name string, value []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("reading nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, value, []byte(name)), nil
}

func (s *AESSealer) Open(name string, sealed []byte) ([]byte, error) {
	n := s.aead.NonceSize()
	if len(sealed) < n+s.aead.Overhead() {
		return nil, ErrSealedTooShort
	}
	return s.aead.Open(nil, sealed[:n], sealed[n:], []byte(name))
}
