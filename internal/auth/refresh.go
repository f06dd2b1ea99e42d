package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"abcy/internal/store"
)

// ErrNoToken is returned when neither a stored token nor a configured
// refresh token is available
var ErrNoToken = errors.New("no strava token available; run the authorize command")

// refreshBuffer is how long before expiry a token is refreshed
const refreshBuffer = 60 * time.Second

// TokenStore persists OAuth tokens
type TokenStore interface {
	GetAuth(ctx context.Context) (*store.Auth, error)
	SaveAuth(ctx context.Context, auth *store.Auth) error
}

// TokenSource wraps oauth2.TokenSource with persistence
// It automatically refreshes tokens and calls onRefresh when a new token is obtained
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a new TokenSource that will refresh tokens as needed
// and call onRefresh to persist new tokens
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// NewStoredTokenSource builds a TokenSource from the token in st, falling
// back to refreshToken from configuration. Refreshed tokens are saved to st.
func NewStoredTokenSource(ctx context.Context, cfg *oauth2.Config, st TokenStore, refreshToken string, log zerolog.Logger) (*TokenSource, error) {
	var athleteID int64
	var token *oauth2.Token

	stored, err := st.GetAuth(ctx)
	switch {
	case err == nil:
		athleteID = stored.AthleteID
		token = &oauth2.Token{
			AccessToken:  stored.AccessToken,
			RefreshToken: stored.RefreshToken,
			Expiry:       stored.ExpiresAt,
		}
	case errors.Is(err, store.ErrNoAuth) && refreshToken != "":
		// Expired on purpose so the first call refreshes it
		token = &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	case errors.Is(err, store.ErrNoAuth):
		return nil, ErrNoToken
	default:
		return nil, fmt.Errorf("loading stored token: %w", err)
	}

	return NewTokenSource(cfg, token, func(t *oauth2.Token) error {
		if id := ExtractAthleteID(t); id != 0 {
			athleteID = id
		}
		log.Info().Time("expires_at", t.Expiry).Msg("refreshed strava token")
		return st.SaveAuth(context.Background(), &store.Auth{
			AthleteID:    athleteID,
			AccessToken:  t.AccessToken,
			RefreshToken: t.RefreshToken,
			ExpiresAt:    t.Expiry,
		})
	}), nil
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	// Refresh the token
	ctx := context.Background()
	src := ts.config.TokenSource(ctx, &oauth2.Token{RefreshToken: ts.token.RefreshToken})
	newToken, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing token: %w", err)
	}

	// Persist the new token if callback is set
	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, fmt.Errorf("saving refreshed token: %w", err)
		}
	}

	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshBuffer
}
