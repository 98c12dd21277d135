package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// defaultTokenLifetime applies when the token endpoint omits expires_in.
const defaultTokenLifetime = time.Hour

// TokenFetcher obtains a brand new token from an OAuth2 token endpoint.
type TokenFetcher func(ctx context.Context) (*oauth2.Token, error)

// ClientCredentials returns a [TokenFetcher] for the client-credentials grant, sending the
// client id and secret as HTTP Basic auth.
func ClientCredentials(clientID, clientSecret, tokenURL string) TokenFetcher {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	return config.Token
}

// RefreshToken returns a [TokenFetcher] that exchanges a user refresh token for an access token.
// A rotated refresh token returned by the endpoint replaces the original for later exchanges.
func RefreshToken(config *oauth2.Config, refreshToken string) TokenFetcher {
	var mu sync.Mutex
	current := refreshToken

	return func(ctx context.Context) (*oauth2.Token, error) {
		mu.Lock()
		defer mu.Unlock()

		tok, err := config.TokenSource(ctx, &oauth2.Token{RefreshToken: current}).Token()
		if err != nil {
			return nil, err
		}
		if tok.RefreshToken != "" {
			current = tok.RefreshToken
		}
		return tok, nil
	}
}

// TokenManager caches a bearer token and refreshes it a safety margin before it expires.
//
// Fetch failures are logged and leave the manager without a token; the next call to
// [TokenManager.Token] tries again.
type TokenManager struct {
	mu     sync.Mutex
	fetch  TokenFetcher
	margin time.Duration
	now    func() time.Time
	logger *log.Logger

	token  string
	expiry time.Time
}

// NewTokenManager creates a [TokenManager] around fetch.
func NewTokenManager(fetch TokenFetcher, margin time.Duration, logger *log.Logger) *TokenManager {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &TokenManager{
		fetch:  fetch,
		margin: margin,
		now:    time.Now,
		logger: logger,
	}
}

// Token returns the current access token, refreshing it first when unset or expired.
// The boolean is false when no token could be obtained.
func (m *TokenManager) Token(ctx context.Context) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || !m.now().Before(m.expiry) {
		m.logger.Debug("refreshing catalog token")
		m.refresh(ctx)
	}
	return m.token, m.token != ""
}

// ForceRefresh discards the cached token and fetches a new one immediately.
func (m *TokenManager) ForceRefresh(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.Warn("forcing catalog token refresh")
	m.refresh(ctx)
}

// Expiry reports when the cached token will be treated as expired.
func (m *TokenManager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiry
}

func (m *TokenManager) refresh(ctx context.Context) {
	issued := m.now()

	tok, err := m.fetch(ctx)
	if err != nil || tok == nil || tok.AccessToken == "" {
		m.logger.Error("failed to get catalog token", "error", err)
		m.token = ""
		m.expiry = time.Time{}
		return
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = issued.Add(defaultTokenLifetime)
	}

	m.token = tok.AccessToken
	m.expiry = expiry.Add(-m.margin)
	m.logger.Debug("catalog token refreshed", "expires", m.expiry)
}
