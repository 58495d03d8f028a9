// Package oauth provides the freee session: an OAuth2 token that is refreshed
// on demand and signs outgoing requests.
package oauth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Config holds the client registration and the tokens obtained out of band.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time // zero means the access token carries no expiry
}

// Session implements ports.Session on top of golang.org/x/oauth2. Refreshes
// run on the context of the call that needs the token.
type Session struct {
	oc   *oauth2.Config
	http *http.Client
	log  *slog.Logger

	mu  sync.Mutex
	tok *oauth2.Token // nil when no token was configured
}

func NewSession(cfg Config, log *slog.Logger) *Session {
	s := &Session{
		oc: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
	if cfg.AccessToken != "" || cfg.RefreshToken != "" {
		s.tok = &oauth2.Token{
			AccessToken:  cfg.AccessToken,
			RefreshToken: cfg.RefreshToken,
			TokenType:    "Bearer",
			Expiry:       cfg.Expiry,
		}
	}
	return s
}

// HasValidSession reports whether a usable access token is available,
// refreshing it when expired.
func (s *Session) HasValidSession(ctx context.Context) bool {
	if _, err := s.token(ctx); err != nil {
		s.log.Debug("oauth token unavailable", slog.String("error", err.Error()))
		return false
	}
	return true
}

// Do sends req with the current access token, refreshing it first on the
// request's context when needed.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	tok, err := s.token(req.Context())
	if err != nil {
		return nil, err
	}
	r := req.Clone(req.Context())
	tok.SetAuthHeader(r)
	return s.http.Do(r)
}

func (s *Session) token(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, errNoToken
	}
	if s.tok.Valid() {
		return s.tok, nil
	}
	tok, err := s.oc.TokenSource(ctx, s.tok).Token()
	if err != nil {
		return nil, err
	}
	if !tok.Valid() {
		return nil, errors.New("oauth: refreshed token is not valid")
	}
	s.tok = tok
	s.log.Debug("oauth token refreshed", slog.Time("expiry", tok.Expiry))
	return tok, nil
}

var errNoToken = errors.New("oauth: no access or refresh token configured")
