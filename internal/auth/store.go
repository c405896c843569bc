package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

const (
	tokenKey    = "spotify.token"
	notifiedKey = "spotify.public_notice_shown"
)

// KVStore is the host's durable key-value persistence.
//
// Get returns an error matching [shared.ErrNotFound] for a missing key.
// Put must replace the value of a key atomically.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// TokenStore owns the process-wide token pair and the one-shot notice flag.
//
// "Absent" (nil pair, nil error) and a store failure ([shared.ErrStoreFailure])
// are distinct outcomes.
type TokenStore struct {
	kv KVStore
	mu sync.RWMutex
}

// NewTokenStore creates a [TokenStore] over kv.
func NewTokenStore(kv KVStore) *TokenStore {
	return &TokenStore{kv: kv}
}

// Get returns the stored pair, or nil when no pair has been stored.
func (s *TokenStore) Get(ctx context.Context) (*models.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.kv.Get(ctx, tokenKey)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read token: %v", shared.ErrStoreFailure, err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return nil, fmt.Errorf("%w: decode token: %v", shared.ErrStoreFailure, err)
	}
	if !pair.Complete() {
		return nil, fmt.Errorf("%w: stored token is incomplete", shared.ErrStoreFailure)
	}
	return &pair, nil
}

// Set replaces the stored pair. Incomplete pairs are rejected and nothing is written.
func (s *TokenStore) Set(ctx context.Context, pair models.TokenPair) error {
	if !pair.Complete() {
		return fmt.Errorf("%w: refusing to store incomplete token pair", shared.ErrStoreFailure)
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("%w: encode token: %v", shared.ErrStoreFailure, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Put(ctx, tokenKey, data); err != nil {
		return fmt.Errorf("%w: write token: %v", shared.ErrStoreFailure, err)
	}
	return nil
}

// Clear removes the stored pair. Clearing an empty store is not an error.
func (s *TokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete(ctx, tokenKey); err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: delete token: %v", shared.ErrStoreFailure, err)
	}
	return nil
}

// HasNotifiedOnce reports whether the public availability notice was already shown.
func (s *TokenStore) HasNotifiedOnce(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.kv.Get(ctx, notifiedKey)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read notice flag: %v", shared.ErrStoreFailure, err)
	}
	return string(data) == "true", nil
}

// MarkNotified records that the notice was shown.
func (s *TokenStore) MarkNotified(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Put(ctx, notifiedKey, []byte("true")); err != nil {
		return fmt.Errorf("%w: write notice flag: %v", shared.ErrStoreFailure, err)
	}
	return nil
}
