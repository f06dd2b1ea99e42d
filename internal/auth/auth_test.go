package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"abcy/internal/store"
)

func TestNewOAuthConfigEndpoints(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{"default", "", "https://www.strava.com/oauth/token"},
		{"api root", "http://localhost:9000/api/v3", "http://localhost:9000/oauth/token"},
		{"trailing slash", "http://localhost:9000/api/v3/", "http://localhost:9000/oauth/token"},
		{"bare host", "http://localhost:9000", "http://localhost:9000/oauth/token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret", BaseURL: tt.baseURL})
			assert.Equal(t, tt.want, cfg.Endpoint.TokenURL)
			assert.Equal(t, []string{"read,activity:read_all"}, cfg.Scopes)
		})
	}
}

func tokenServer(t *testing.T, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "seed-refresh", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"next-refresh","token_type":"Bearer","expires_in":21600,"athlete":{"id":42}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStoredTokenSourceBootstrapsFromRefreshToken(t *testing.T) {
	ctx := context.Background()
	st := store.NewTestStore(t)
	calls := 0
	srv := tokenServer(t, &calls)

	cfg := NewOAuthConfig(Config{ClientID: "id", ClientSecret: "secret", BaseURL: srv.URL + "/api/v3"})
	ts, err := NewStoredTokenSource(ctx, cfg, st, "seed-refresh", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, ts.IsExpired())

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
	assert.Equal(t, 1, calls)

	saved, err := st.GetAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), saved.AthleteID)
	assert.Equal(t, "next-refresh", saved.RefreshToken)

	// Cached until close to expiry
	_, err = ts.Token()
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestStoredTokenSourceUsesStoredToken(t *testing.T) {
	ctx := context.Background()
	st := store.NewTestStore(t)
	require.NoError(t, st.SaveAuth(ctx, &store.Auth{
		AthleteID:    7,
		AccessToken:  "stored",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}))

	ts, err := NewStoredTokenSource(ctx, NewOAuthConfig(Config{}), st, "", zerolog.Nop())
	require.NoError(t, err)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored", tok.AccessToken)
}

func TestStoredTokenSourceWithoutToken(t *testing.T) {
	_, err := NewStoredTokenSource(context.Background(), NewOAuthConfig(Config{}), store.NewTestStore(t), "", zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoToken)
}
