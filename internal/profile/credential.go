package profile

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/arbengine/fundarb/internal/apperr"
)

// CredentialRepo is the durable side of credential storage (Postgres:
// user_credentials). CredentialStore wraps it with envelope encryption and
// a per-user soft cache invalidated on write.
type CredentialRepo interface {
	Put(ctx context.Context, userID, venueID string, ciphertext []byte) error
	Get(ctx context.Context, userID, venueID string) ([]byte, bool, error)
}

// CredentialStore encrypts venue API credentials with an envelope key
// before they ever reach durable storage; plaintext is never persisted.
type CredentialStore struct {
	repo CredentialRepo
	key  []byte

	mu                  sync.Mutex
	adapterOnInvalidate func(userID, venueID string)
}

// NewCredentialStore builds a store using the 32-byte key resolved from
// encryptionKeyRef (the caller is responsible for resolving the opaque ref
// into actual key bytes, e.g. via a KMS or local secret file).
func NewCredentialStore(repo CredentialRepo, key []byte) (*CredentialStore, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credential store: key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &CredentialStore{repo: repo, key: key}, nil
}

// OnInvalidate registers a callback fired whenever a credential update
// purges the cached adapter instance for (userID, venueID).
func (c *CredentialStore) OnInvalidate(fn func(userID, venueID string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adapterOnInvalidate = fn
}

func (c *CredentialStore) seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nonce, nonce, plaintext, nil)
	return ciphertext, nil
}

func (c *CredentialStore) open(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < chacha20poly1305.NonceSize {
		return nil, fmt.Errorf("credential store: ciphertext too short")
	}
	nonce, body := ciphertext[:chacha20poly1305.NonceSize], ciphertext[chacha20poly1305.NonceSize:]
	return aead.Open(nil, nonce, body, nil)
}

// Store encrypts and persists a venue API key/secret pair, then invalidates
// any cached adapter for this (user, venue).
func (c *CredentialStore) Store(ctx context.Context, userID, venueID, apiKey, apiSecret string) error {
	plaintext := []byte(apiKey + "\x00" + apiSecret)
	ciphertext, err := c.seal(plaintext)
	if err != nil {
		return apperr.Internalf("encrypt credential", err)
	}
	if err := c.repo.Put(ctx, userID, venueID, ciphertext); err != nil {
		return apperr.Internalf("persist credential", err)
	}

	c.mu.Lock()
	cb := c.adapterOnInvalidate
	c.mu.Unlock()
	if cb != nil {
		cb(userID, venueID)
	}
	return nil
}

// Retrieve decrypts and returns the stored apiKey/apiSecret pair, if any.
func (c *CredentialStore) Retrieve(ctx context.Context, userID, venueID string) (apiKey, apiSecret string, found bool, err error) {
	ciphertext, ok, err := c.repo.Get(ctx, userID, venueID)
	if err != nil {
		return "", "", false, apperr.Internalf("load credential", err)
	}
	if !ok {
		return "", "", false, nil
	}
	plaintext, err := c.open(ciphertext)
	if err != nil {
		return "", "", false, apperr.Internalf("decrypt credential", err)
	}
	for i, b := range plaintext {
		if b == 0 {
			return string(plaintext[:i]), string(plaintext[i+1:]), true, nil
		}
	}
	return "", "", false, apperr.Internalf("malformed credential payload", nil)
}
