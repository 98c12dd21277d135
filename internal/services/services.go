// package services defines the catalog API client shared by every trendrank job
package services

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/metrics"
	"github.com/desertthunder/trendrank/internal/shared"
	"golang.org/x/oauth2"
)

// Catalog is the read-only surface the snapshot and highlight jobs need.
//
// Every method reports absence with ok=false instead of an error.
type Catalog interface {
	Artist(ctx context.Context, artistID string) (*SpotifyArtist, bool)
	TopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, bool)
	ArtistAlbums(ctx context.Context, artistID, market string, groups []string, limit int) ([]SpotifyAlbum, bool)
	AlbumTracks(ctx context.Context, albumID string, limit int) ([]SpotifyTrack, bool)
}

// PlaylistEditor adds the user-scoped playlist endpoints used by the playlist job.
type PlaylistEditor interface {
	Catalog
	UserPlaylists(ctx context.Context, userID string) ([]SpotifySimplePlaylist, bool)
	CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifySimplePlaylist, bool)
	ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) bool
	AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) bool
	UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) bool
}

// PlaylistScopes are requested by the authorization helper for the playlist job.
var PlaylistScopes = []string{
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
}

// UserOAuthConfig builds the authorization-code configuration for the user-scoped grant.
func UserOAuthConfig(cfg *shared.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Credentials.Spotify.ClientID,
		ClientSecret: cfg.Credentials.Spotify.ClientSecret,
		RedirectURL:  cfg.Credentials.Spotify.RedirectURI,
		Scopes:       PlaylistScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   cfg.Catalog.AuthURL,
			TokenURL:  cfg.Catalog.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewCatalogFromConfig builds a [CatalogClient] that authenticates with the client-credentials grant.
func NewCatalogFromConfig(cfg *shared.Config, logger *log.Logger, recorder *metrics.Recorder) *CatalogClient {
	s := cfg.Credentials.Spotify
	fetch := ClientCredentials(s.ClientID, s.ClientSecret, cfg.Catalog.TokenURL)
	return newConfiguredClient(cfg, fetch, logger, recorder)
}

// NewUserCatalogFromConfig builds a [CatalogClient] that authenticates with the stored user refresh token.
func NewUserCatalogFromConfig(cfg *shared.Config, logger *log.Logger, recorder *metrics.Recorder) *CatalogClient {
	fetch := RefreshToken(UserOAuthConfig(cfg), cfg.Credentials.Spotify.RefreshToken)
	return newConfiguredClient(cfg, fetch, logger, recorder)
}

func newConfiguredClient(cfg *shared.Config, fetch TokenFetcher, logger *log.Logger, recorder *metrics.Recorder) *CatalogClient {
	c := cfg.Catalog
	tokens := NewTokenManager(fetch, c.TokenMargin(), shared.WithLogger(logger, "component", "token"))

	opts := []CatalogOption{
		WithLogger(shared.WithLogger(logger, "component", "catalog")),
		WithRecorder(recorder),
		WithMaxAttempts(c.MaxAttempts),
		WithRateLimit(c.RequestsPerSecond, c.Burst),
		WithBreaker("catalog", c.BreakerThreshold, c.BreakerCooldown()),
	}
	if timeout := c.RequestTimeout(); timeout > 0 {
		opts = append(opts, WithHTTPClient(newHTTPClient(timeout)))
	}

	return NewCatalogClient(c.BaseURL, tokens, opts...)
}
