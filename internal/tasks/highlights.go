package tasks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/services"
)

// highlightAlbumLimit is how many of an artist's releases are considered for the latest one.
const highlightAlbumLimit = 10

// playlistAlbumLimit is the release page size used when picking playlist tracks.
const playlistAlbumLimit = 20

var releaseGroups = []string{"album", "single"}

// LatestRelease returns the newest of an artist's albums and singles.
//
// Release dates compare as strings; among equal dates the first listed wins.
func LatestRelease(ctx context.Context, catalog services.Catalog, artistID, market string, limit int) (*services.SpotifyAlbum, bool) {
	albums, ok := catalog.ArtistAlbums(ctx, artistID, market, releaseGroups, limit)
	if !ok || len(albums) == 0 {
		return nil, false
	}

	sorted := append([]services.SpotifyAlbum(nil), albums...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ReleaseDate > sorted[j].ReleaseDate })
	return &sorted[0], true
}

// LatestTrack returns the first track of an artist's newest release.
func LatestTrack(ctx context.Context, catalog services.Catalog, artistID, market string, limit int) (*services.SpotifyTrack, bool) {
	album, ok := LatestRelease(ctx, catalog, artistID, market, limit)
	if !ok {
		return nil, false
	}

	tracks, ok := catalog.AlbumTracks(ctx, album.ID, 1)
	if !ok || len(tracks) == 0 {
		return nil, false
	}
	return &tracks[0], true
}

// Highlighter enriches the top of a daily leaderboard with each artist's latest track and image.
type Highlighter struct {
	catalog services.Catalog
	market  string
	pause   time.Duration
	sleep   services.SleepFunc
	logger  *log.Logger
}

// NewHighlighter creates a [Highlighter] that waits pause between artists.
func NewHighlighter(catalog services.Catalog, market string, pause time.Duration, logger *log.Logger) *Highlighter {
	return &Highlighter{catalog: catalog, market: market, pause: pause, sleep: sleepContext, logger: logger}
}

// Build enriches the first n ranked entries. Data the catalog cannot supply stays nil.
func (h *Highlighter) Build(ctx context.Context, ranked []models.DailyRankingEntry, n int, progress chan<- ProgressUpdate) []models.DailyHighlight {
	top := ranked[:min(n, len(ranked))]
	highlights := make([]models.DailyHighlight, 0, len(top))

	for i, e := range top {
		if i > 0 {
			if err := h.sleep(ctx, h.pause); err != nil {
				h.logger.Warn("Highlights interrupted", "error", err)
				break
			}
		}
		sendProgress(progress, highlightUpdate(i+1, len(top), e.ArtistName))

		hl := models.DailyHighlight{
			SnapshotDate: e.SnapshotDate,
			GroupID:      e.GroupID,
			ArtistName:   e.ArtistName,
			Rank:         e.Rank,
			ScorePoints:  e.ScorePoints,
		}

		if track, ok := LatestTrack(ctx, h.catalog, e.SpotifyID, h.market, highlightAlbumLimit); ok {
			hl.LatestTrackName = models.StringPtr(track.Name)
			hl.LatestTrackEmbedLink = models.StringPtr(fmt.Sprintf(services.EmbedTrackURL, track.ID))
		} else {
			h.logger.Warn("Latest track unavailable", "group_id", e.GroupID, "spotify_id", e.SpotifyID)
		}

		if artist, ok := h.catalog.Artist(ctx, e.SpotifyID); ok && artist != nil {
			if url := artist.ImageURL(); url != "" {
				hl.ArtistImageURL = models.StringPtr(url)
			}
		}

		highlights = append(highlights, hl)
	}

	return highlights
}
