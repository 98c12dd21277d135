// Spotify Web API endpoints used by the ranking jobs
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// EmbedTrackURL is the player embed link for a track id.
const EmbedTrackURL = "https://open.spotify.com/embed/track/%s"

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a full Spotify artist object.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Popularity int            `json:"popularity"`
	Followers  followers      `json:"followers"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
	URI        string         `json:"uri"`
}

// ImageURL returns the first (largest) image, or "" when the artist has none.
func (a *SpotifyArtist) ImageURL() string {
	if a == nil || len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// SpotifyAlbum represents a simplified album object.
type SpotifyAlbum struct {
	ID                   string         `json:"id"`
	Name                 string         `json:"name"`
	AlbumType            string         `json:"album_type"`
	ReleaseDate          string         `json:"release_date"`
	ReleaseDatePrecision string         `json:"release_date_precision"`
	TotalTracks          int            `json:"total_tracks"`
	Images               []SpotifyImage `json:"images"`
	URI                  string         `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Album      SpotifyAlbum `json:"album"`
	DurationMS int          `json:"duration_ms"`
	Popularity int          `json:"popularity"`
	URI        string       `json:"uri"`
}

// Owner identifies a playlist owner.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       Owner  `json:"owner"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

type paging[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// Artist retrieves an artist by id.
func (c *CatalogClient) Artist(ctx context.Context, artistID string) (*SpotifyArtist, bool) {
	var artist SpotifyArtist
	if !c.Get(ctx, "/artists/"+url.PathEscape(artistID), &artist) {
		return nil, false
	}
	return &artist, true
}

// TopTracks retrieves an artist's top tracks for market.
func (c *CatalogClient) TopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, bool) {
	q := url.Values{}
	q.Set("market", market)

	var response struct {
		Tracks []SpotifyTrack `json:"tracks"`
	}
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?%s", url.PathEscape(artistID), q.Encode())
	if !c.Get(ctx, endpoint, &response) {
		return nil, false
	}
	return response.Tracks, true
}

// ArtistAlbums retrieves the first page of an artist's releases of the given groups (album, single, ...).
func (c *CatalogClient) ArtistAlbums(ctx context.Context, artistID, market string, groups []string, limit int) ([]SpotifyAlbum, bool) {
	q := url.Values{}
	q.Set("include_groups", strings.Join(groups, ","))
	q.Set("market", market)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var response paging[SpotifyAlbum]
	endpoint := fmt.Sprintf("/artists/%s/albums?%s", url.PathEscape(artistID), q.Encode())
	if !c.Get(ctx, endpoint, &response) {
		return nil, false
	}
	return response.Items, true
}

// AlbumTracks retrieves the first page of an album's tracks. A non-positive limit uses the API default.
func (c *CatalogClient) AlbumTracks(ctx context.Context, albumID string, limit int) ([]SpotifyTrack, bool) {
	endpoint := "/albums/" + url.PathEscape(albumID) + "/tracks"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}

	var response paging[SpotifyTrack]
	if !c.Get(ctx, endpoint, &response) {
		return nil, false
	}
	return response.Items, true
}

// UserPlaylists retrieves every playlist owned or followed by userID, following pagination.
func (c *CatalogClient) UserPlaylists(ctx context.Context, userID string) ([]SpotifySimplePlaylist, bool) {
	var all []SpotifySimplePlaylist
	next := fmt.Sprintf("/users/%s/playlists?limit=50", url.PathEscape(userID))

	for next != "" {
		var page paging[SpotifySimplePlaylist]
		if !c.Get(ctx, next, &page) {
			return nil, false
		}
		all = append(all, page.Items...)

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}
	return all, true
}

// CreatePlaylist creates a private playlist for userID.
func (c *CatalogClient) CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifySimplePlaylist, bool) {
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist SpotifySimplePlaylist
	if !c.Call(ctx, http.MethodPost, fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID)), body, &playlist) {
		return nil, false
	}
	return &playlist, playlist.ID != ""
}

// ReplacePlaylistTracks overwrites a playlist's items with uris (at most 100).
func (c *CatalogClient) ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) bool {
	return c.Call(ctx, http.MethodPut, "/playlists/"+url.PathEscape(playlistID)+"/tracks", map[string]any{"uris": uris}, nil)
}

// AddPlaylistTracks appends uris (at most 100) to a playlist.
func (c *CatalogClient) AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) bool {
	return c.Call(ctx, http.MethodPost, "/playlists/"+url.PathEscape(playlistID)+"/tracks", map[string]any{"uris": uris}, nil)
}

// UpdatePlaylistDetails renames a playlist and replaces its description.
func (c *CatalogClient) UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) bool {
	body := map[string]any{"name": name, "description": description}
	return c.Call(ctx, http.MethodPut, "/playlists/"+url.PathEscape(playlistID), body, nil)
}
