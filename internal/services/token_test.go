package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

type fakeFetcher struct {
	calls  int
	tokens []*oauth2.Token
	errs   []error
}

func (f *fakeFetcher) fetch(ctx context.Context) (*oauth2.Token, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.tokens) {
		return f.tokens[i], nil
	}
	return f.tokens[len(f.tokens)-1], nil
}

func TestTokenManager(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("Refreshes Before Expiry Margin", func(t *testing.T) {
		f := &fakeFetcher{tokens: []*oauth2.Token{
			{AccessToken: "first", Expiry: base.Add(time.Hour)},
			{AccessToken: "second", Expiry: base.Add(2 * time.Hour)},
		}}
		m := NewTokenManager(f.fetch, 300*time.Second, nil)
		now := base
		m.now = func() time.Time { return now }

		tok, ok := m.Token(context.Background())
		if !ok || tok != "first" {
			t.Fatalf("expected first token, got %q (%v)", tok, ok)
		}

		if want := base.Add(55 * time.Minute); !m.Expiry().Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, m.Expiry())
		}

		now = base.Add(55*time.Minute - time.Second)
		if tok, _ := m.Token(context.Background()); tok != "first" {
			t.Errorf("expected cached token before margin, got %q", tok)
		}

		now = base.Add(55 * time.Minute)
		if tok, _ := m.Token(context.Background()); tok != "second" {
			t.Errorf("expected refreshed token at margin, got %q", tok)
		}

		if f.calls != 2 {
			t.Errorf("expected 2 fetches, got %d", f.calls)
		}
	})

	t.Run("Defaults Lifetime When Expiry Missing", func(t *testing.T) {
		f := &fakeFetcher{tokens: []*oauth2.Token{{AccessToken: "tok"}}}
		m := NewTokenManager(f.fetch, 300*time.Second, nil)
		m.now = func() time.Time { return base }

		m.Token(context.Background())

		if want := base.Add(time.Hour - 300*time.Second); !m.Expiry().Equal(want) {
			t.Errorf("expected expiry %v, got %v", want, m.Expiry())
		}
	})

	t.Run("Fetch Failure Leaves Token Unset", func(t *testing.T) {
		f := &fakeFetcher{
			errs:   []error{errors.New("network down")},
			tokens: []*oauth2.Token{nil, {AccessToken: "recovered", Expiry: base.Add(time.Hour)}},
		}
		m := NewTokenManager(f.fetch, 0, nil)
		m.now = func() time.Time { return base }

		if tok, ok := m.Token(context.Background()); ok || tok != "" {
			t.Errorf("expected no token, got %q (%v)", tok, ok)
		}

		if tok, ok := m.Token(context.Background()); !ok || tok != "recovered" {
			t.Errorf("expected recovered token, got %q (%v)", tok, ok)
		}
	})

	t.Run("ForceRefresh", func(t *testing.T) {
		f := &fakeFetcher{tokens: []*oauth2.Token{
			{AccessToken: "old", Expiry: base.Add(time.Hour)},
			{AccessToken: "new", Expiry: base.Add(time.Hour)},
		}}
		m := NewTokenManager(f.fetch, 0, nil)
		m.now = func() time.Time { return base }

		m.Token(context.Background())
		m.ForceRefresh(context.Background())

		if tok, _ := m.Token(context.Background()); tok != "new" {
			t.Errorf("expected forced token, got %q", tok)
		}
		if f.calls != 2 {
			t.Errorf("expected 2 fetches, got %d", f.calls)
		}
	})
}

func TestTokenFetchers(t *testing.T) {
	t.Run("ClientCredentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, secret, ok := r.BasicAuth()
			if !ok || id != "client" || secret != "secret" {
				t.Errorf("expected basic auth credentials, got %q/%q", id, secret)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.Form.Get("grant_type") != "client_credentials" {
				t.Errorf("expected client_credentials grant, got %q", r.Form.Get("grant_type"))
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "cc-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		}))
		defer server.Close()

		tok, err := ClientCredentials("client", "secret", server.URL)(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if tok.AccessToken != "cc-token" {
			t.Errorf("expected cc-token, got %q", tok.AccessToken)
		}
		if tok.Expiry.IsZero() {
			t.Error("expected expiry to be derived from expires_in")
		}
	})

	t.Run("RefreshToken Rotates", func(t *testing.T) {
		var seen []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			seen = append(seen, r.Form.Get("refresh_token"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "user-token",
				"token_type":    "Bearer",
				"refresh_token": "rotated",
				"expires_in":    3600,
			})
		}))
		defer server.Close()

		config := &oauth2.Config{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{TokenURL: server.URL, AuthStyle: oauth2.AuthStyleInParams},
		}
		fetch := RefreshToken(config, "original")

		for range 2 {
			tok, err := fetch(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tok.AccessToken != "user-token" {
				t.Errorf("expected user-token, got %q", tok.AccessToken)
			}
		}

		if strings.Join(seen, ",") != "original,rotated" {
			t.Errorf("expected rotated refresh token on second exchange, got %v", seen)
		}
	})
}
