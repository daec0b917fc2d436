package storage

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

const saltKey = "__encryption_salt"

var _ Store = (*EncryptedStore)(nil)

// EncryptedStore seals values with XChaCha20-Poly1305 before handing them to the
// wrapped store. The key is derived with Argon2id from a passphrase and a random
// salt that is kept, unencrypted, in the wrapped store.
type EncryptedStore struct {
	inner  Store
	cipher cipher.AEAD
}

// NewEncryptedStore loads or creates the salt and derives the value key
func NewEncryptedStore(ctx context.Context, inner Store, passphrase string) (*EncryptedStore, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("[storage NewEncryptedStore] passphrase is required")
	}

	salt, err := loadOrCreateSalt(ctx, inner)
	if err != nil {
		return nil, err
	}

	key := argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("[storage NewEncryptedStore] cipher: %w", err)
	}
	return &EncryptedStore{inner: inner, cipher: aead}, nil
}

func loadOrCreateSalt(ctx context.Context, inner Store) ([]byte, error) {
	encoded, err := inner.Get(ctx, saltKey)
	if err != nil {
		return nil, fmt.Errorf("[storage loadOrCreateSalt] get: %w", err)
	}
	if encoded != "" {
		salt, err := base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("[storage loadOrCreateSalt] decode: %w", err)
		}
		return salt, nil
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("[storage loadOrCreateSalt] random: %w", err)
	}
	if err := inner.Set(ctx, saltKey, base64.RawStdEncoding.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("[storage loadOrCreateSalt] set: %w", err)
	}
	return salt, nil
}

func (s *EncryptedStore) Get(ctx context.Context, key string) (string, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil || sealed == "" {
		return "", err
	}

	raw, err := base64.RawStdEncoding.DecodeString(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", key, err)
	}
	if len(raw) < s.cipher.NonceSize()+s.cipher.Overhead() {
		return "", fmt.Errorf("failed to open %s: ciphertext too short", key)
	}

	nonce, ciphertext := raw[:s.cipher.NonceSize()], raw[s.cipher.NonceSize():]
	plain, err := s.cipher.Open(nil, nonce, ciphertext, []byte(key))
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", key, err)
	}
	return string(plain), nil
}

func (s *EncryptedStore) Set(ctx context.Context, key, value string) error {
	nonce := make([]byte, s.cipher.NonceSize(), s.cipher.NonceSize()+len(value)+s.cipher.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := s.cipher.Seal(nonce, nonce, []byte(value), []byte(key))
	return s.inner.Set(ctx, key, base64.RawStdEncoding.EncodeToString(sealed))
}

func (s *EncryptedStore) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, key)
}
