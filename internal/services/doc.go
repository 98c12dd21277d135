// Package services implements the resilient catalog client shared by every trendrank job.
//
// # Tokens
//
// [TokenManager] caches a bearer token and refreshes it once the current time reaches
// issued_at + expires_in minus a safety margin (300s by default). Tokens come from a
// [TokenFetcher]: [ClientCredentials] for the pipeline jobs and [RefreshToken] for the
// playlist job. A failed fetch leaves the manager empty; the next call tries again.
// [TokenManager.ForceRefresh] is used after a 401.
//
// # Requests
//
// [CatalogClient] runs each logical call through a bounded retry loop (see its doc),
// an optional [rate.Limiter] for pacing, and an optional [gobreaker.CircuitBreaker] that
// short-circuits calls after repeated exhausted retries. Nothing in this layer returns an
// error for HTTP outcomes: callers receive ok=false and fall back to per-field defaults.
//
// # Endpoints
//
// Typed wrappers cover the Spotify Web API surface used by the jobs:
//   - [CatalogClient.Artist], [CatalogClient.TopTracks]
//   - [CatalogClient.ArtistAlbums], [CatalogClient.AlbumTracks]
//   - [CatalogClient.UserPlaylists], [CatalogClient.CreatePlaylist]
//   - [CatalogClient.ReplacePlaylistTracks], [CatalogClient.AddPlaylistTracks], [CatalogClient.UpdatePlaylistDetails]
//
// [Catalog] and [PlaylistEditor] are the interfaces the tasks package depends on.
//
// [rate.Limiter]: https://pkg.go.dev/golang.org/x/time/rate#Limiter
// [gobreaker.CircuitBreaker]: https://pkg.go.dev/github.com/sony/gobreaker#CircuitBreaker
package services
