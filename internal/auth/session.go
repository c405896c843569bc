package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

// expirySkew refreshes tokens slightly before the provider would reject them.
const expirySkew = 30 * time.Second

// Refresher trades a refresh token for a new pair.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenPair, error)
}

// Session hands out bearer tokens from a [TokenStore], refreshing expired ones.
type Session struct {
	store     *TokenStore
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time
	mu        sync.Mutex
}

// NewSession creates a [Session]. A nil logger discards output.
func NewSession(store *TokenStore, refresher Refresher, logger *log.Logger) *Session {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Session{store: store, refresher: refresher, logger: logger, now: time.Now}
}

// AccessToken returns a usable bearer token.
//
// It returns [shared.ErrNotAuthenticated] when nothing is stored or a needed
// refresh fails, and [shared.ErrStoreFailure] when the store cannot be read.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if pair == nil {
		return "", shared.ErrNotAuthenticated
	}
	if !pair.Expired(s.now(), expirySkew) {
		return pair.AccessToken, nil
	}

	s.logger.Debug("access token expired, refreshing", "expires_at", pair.ExpiresAt)
	return s.refreshLocked(ctx, pair)
}

// Refresh forces a refresh, for callers that received a 401.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, err := s.store.Get(ctx)
	if err != nil {
		return "", err
	}
	if pair == nil {
		return "", shared.ErrNotAuthenticated
	}
	return s.refreshLocked(ctx, pair)
}

func (s *Session) refreshLocked(ctx context.Context, pair *models.TokenPair) (string, error) {
	refreshed, err := s.refresher.RefreshToken(ctx, pair.RefreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		return "", fmt.Errorf("%w: refresh failed, log in again: %v", shared.ErrNotAuthenticated, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = pair.RefreshToken
	}
	if refreshed.ExpiresAt.IsZero() && refreshed.ExpiresIn > 0 {
		refreshed.ExpiresAt = s.now().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	}

	if err := s.store.Set(ctx, *refreshed); err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrNotAuthenticated)
}
