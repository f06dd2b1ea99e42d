package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"abcy/internal/store"
)

const (
	// CallbackPort is the port for the OAuth callback server
	CallbackPort = 8089
	// AuthTimeout is how long to wait for the user to complete auth
	AuthTimeout = 5 * time.Minute
)

const grantedPage = `<!DOCTYPE html>
<html>
<head><title>abcy authorized</title></head>
<body style="font-family: system-ui; text-align: center; margin-top: 20vh;">
<h1>abcy is authorized</h1>
<p>The Strava token has been stored. You can close this window.</p>
</body>
</html>`

// Authorizer runs the browser authorization flow against Strava and stores
// the granted token in Store.
type Authorizer struct {
	Config *oauth2.Config
	Store  TokenStore
	// Addr is the callback listen address; defaults to CallbackPort on all interfaces
	Addr string
	// Timeout defaults to AuthTimeout
	Timeout time.Duration
	Out     io.Writer
}

// Run prints the authorization URL, waits for Strava to redirect back with
// a code, exchanges it and saves the resulting token.
func (a *Authorizer) Run(ctx context.Context) (*AuthResult, error) {
	state, err := newState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	addr := a.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", CallbackPort)
	}
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = AuthTimeout
	}

	cb := newCallback(state)
	mux := http.NewServeMux()
	mux.Handle("/callback", cb)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("starting callback server: %w", err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			cb.fail(fmt.Errorf("callback server: %w", err))
		}
	}()
	defer stopServer(server)

	if a.Out != nil {
		fmt.Fprintf(a.Out, "\nOpen this URL in your browser to authorize abcy:\n\n  %s\n\nWaiting for the Strava callback...\n",
			a.Config.AuthCodeURL(state, oauth2.AccessTypeOffline))
	}

	select {
	case code := <-cb.codes:
		return a.complete(ctx, code)
	case err := <-cb.errs:
		return nil, err
	case <-time.After(timeout):
		return nil, fmt.Errorf("authorization timed out after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete exchanges an authorization code and persists the token
func (a *Authorizer) complete(ctx context.Context, code string) (*AuthResult, error) {
	token, err := a.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	result := &AuthResult{Token: token, AthleteID: ExtractAthleteID(token)}

	if err := a.Store.SaveAuth(ctx, &store.Auth{
		AthleteID:    result.AthleteID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}
	return result, nil
}

// callback receives the Strava redirect. The first code or error wins.
type callback struct {
	state string
	codes chan string
	errs  chan error
}

func newCallback(state string) *callback {
	return &callback{
		state: state,
		codes: make(chan string, 1),
		errs:  make(chan error, 1),
	}
}

func (c *callback) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("state") != c.state:
		c.fail(errors.New("callback state mismatch"))
		http.Error(w, "State mismatch", http.StatusBadRequest)
	case q.Get("error") != "":
		c.fail(fmt.Errorf("strava denied authorization: %s", q.Get("error")))
		http.Error(w, "Authorization denied", http.StatusBadRequest)
	case q.Get("code") == "":
		c.fail(errors.New("callback carried no code"))
		http.Error(w, "No authorization code", http.StatusBadRequest)
	default:
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, grantedPage)
		select {
		case c.codes <- q.Get("code"):
		default:
		}
	}
}

func (c *callback) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func stopServer(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}
