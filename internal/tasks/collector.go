package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
)

// ArtistMetrics is one artist's catalog data as gathered by the [Collector].
//
// Missing data degrades to defaults: Name is [models.UnknownArtistName] and counts are 0.
type ArtistMetrics struct {
	SpotifyID          string
	Name               string
	Popularity         int
	Followers          int
	TrackPopularitySum int
	NewReleaseCount    int
	ImageURL           *string
	Found              bool // artist info was retrieved
}

// Incomplete reports whether the metrics look like a transient partial failure.
func (m ArtistMetrics) Incomplete() bool {
	return m.Name == models.UnknownArtistName || (m.Followers == 0 && m.Popularity != 0)
}

// CollectorOptions configures a [Collector].
type CollectorOptions struct {
	Market            string
	TopTracks         int
	ReleaseWindowDays int
	RetryRounds       int
	RetryDelay        time.Duration
}

// Collector walks the roster and gathers per-artist metrics through a [services.Catalog].
type Collector struct {
	catalog services.Catalog
	opts    CollectorOptions
	sleep   services.SleepFunc
	now     func() time.Time
	logger  *log.Logger
}

// NewCollector creates a [Collector] that reads artists through catalog.
func NewCollector(catalog services.Catalog, opts CollectorOptions, logger *log.Logger) *Collector {
	return &Collector{
		catalog: catalog,
		opts:    opts,
		sleep:   sleepContext,
		now:     time.Now,
		logger:  logger,
	}
}

// Collect fetches every artist once, then re-fetches incomplete artists for up to
// RetryRounds rounds, pausing RetryDelay before each round.
//
// A re-fetch replaces the earlier result only when its artist info was retrieved; a missing
// image in the re-fetch keeps the earlier image. Results keep the order of artistIDs.
func (c *Collector) Collect(ctx context.Context, artistIDs []string, progress chan<- ProgressUpdate) []ArtistMetrics {
	total := len(artistIDs)
	results := make([]ArtistMetrics, total)
	for i, id := range artistIDs {
		sendProgress(progress, collectArtistUpdate(i+1, total, id))
		results[i] = c.fetch(ctx, id)
	}

	for round := range c.opts.RetryRounds {
		var pending []int
		for i, m := range results {
			if m.Incomplete() {
				pending = append(pending, i)
			}
		}

		if len(pending) == 0 {
			c.logger.Info("All artist data retrieved")
			break
		}

		c.logger.Warn("Retrying incomplete artists", "round", round+1, "count", len(pending))
		sendProgress(progress, retryRoundUpdate(round+1, c.opts.RetryRounds, len(pending)))

		if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
			c.logger.Warn("Retry rounds interrupted", "error", err)
			break
		}

		for _, i := range pending {
			results[i] = mergeMetrics(results[i], c.fetch(ctx, artistIDs[i]))
		}
	}

	return results
}

func mergeMetrics(earlier, retry ArtistMetrics) ArtistMetrics {
	if !retry.Found {
		return earlier
	}
	if retry.ImageURL == nil {
		retry.ImageURL = earlier.ImageURL
	}
	return retry
}

func (c *Collector) fetch(ctx context.Context, artistID string) ArtistMetrics {
	m := ArtistMetrics{SpotifyID: artistID, Name: models.UnknownArtistName}

	if artist, ok := c.catalog.Artist(ctx, artistID); ok && artist != nil {
		m.Found = true
		if artist.Name != "" {
			m.Name = artist.Name
		}
		m.Popularity = artist.Popularity
		m.Followers = artist.Followers.Total
		if url := artist.ImageURL(); url != "" {
			m.ImageURL = models.StringPtr(url)
		}
	} else {
		c.logger.Warn("Artist info unavailable", "spotify_id", artistID)
	}

	tracks, ok := c.catalog.TopTracks(ctx, artistID, c.opts.Market)
	if !ok {
		c.logger.Warn("Top tracks unavailable", "spotify_id", artistID)
		return m
	}
	if c.opts.TopTracks > 0 && len(tracks) > c.opts.TopTracks {
		tracks = tracks[:c.opts.TopTracks]
	}
	for _, t := range tracks {
		m.TrackPopularitySum += t.Popularity
	}
	m.NewReleaseCount = CountRecentReleases(tracks, c.now(), c.opts.ReleaseWindowDays)

	return m
}

// CountRecentReleases counts tracks whose album was released at most days before now's
// calendar date. Year-only and year-month dates resolve to the first day of the period;
// unparseable dates are skipped.
func CountRecentReleases(tracks []services.SpotifyTrack, now time.Time, days int) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := time.Duration(days) * 24 * time.Hour

	count := 0
	for _, t := range tracks {
		released, ok := parseReleaseDate(t.Album.ReleaseDate)
		if !ok {
			continue
		}
		if today.Sub(released) <= window {
			count++
		}
	}
	return count
}

func parseReleaseDate(s string) (time.Time, bool) {
	var layout string
	switch len(s) {
	case 10:
		layout = "2006-01-02"
	case 7:
		layout = "2006-01"
	case 4:
		layout = "2006"
	default:
		return time.Time{}, false
	}

	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// UniqueCatalogIDs returns the roster's catalog ids in order, dropping repeats with a warning.
func UniqueCatalogIDs(identities []models.ArtistIdentity, logger *log.Logger) []string {
	seen := make(map[string]bool, len(identities))
	ids := make([]string, 0, len(identities))
	duplicates := 0

	for _, identity := range identities {
		if seen[identity.SpotifyID] {
			duplicates++
			continue
		}
		seen[identity.SpotifyID] = true
		ids = append(ids, identity.SpotifyID)
	}

	if duplicates > 0 {
		logger.Warn("Duplicated catalog ids dropped", "count", duplicates)
	}
	return ids
}

// BuildSnapshots attaches group ids to collected metrics and returns rows for date.
//
// Metrics without an identity mapping are dropped with a warning. When two catalog ids map
// to the same group the later one wins. dropped counts unmapped metrics. It fails when
// nothing is left to store.
func BuildSnapshots(date string, metrics []ArtistMetrics, identities []models.ArtistIdentity, logger *log.Logger) (snapshots []models.ArtistSnapshot, dropped int, err error) {
	groups := make(map[string]string, len(identities))
	for _, identity := range identities {
		if _, ok := groups[identity.SpotifyID]; !ok {
			groups[identity.SpotifyID] = identity.GroupID
		}
	}

	position := make(map[string]int, len(metrics))
	for _, m := range metrics {
		groupID, ok := groups[m.SpotifyID]
		if !ok {
			dropped++
			logger.Warn("No identity mapping; skipping", "spotify_id", m.SpotifyID)
			continue
		}

		s := models.ArtistSnapshot{
			SnapshotDate:       date,
			GroupID:            groupID,
			SpotifyID:          m.SpotifyID,
			Name:               m.Name,
			ArtistPopularity:   models.IntPtr(m.Popularity),
			Followers:          m.Followers,
			TrackPopularitySum: m.TrackPopularitySum,
			NewReleaseCount:    m.NewReleaseCount,
			ImageURL:           m.ImageURL,
		}

		if i, ok := position[groupID]; ok {
			logger.Warn("Group has several catalog ids; keeping the last", "group_id", groupID, "spotify_id", m.SpotifyID)
			snapshots[i] = s
			continue
		}
		position[groupID] = len(snapshots)
		snapshots = append(snapshots, s)
	}

	if len(snapshots) == 0 {
		return nil, dropped, fmt.Errorf("%w: %w for %s", shared.ErrNoIdentityMapping, shared.ErrNoRecords, date)
	}
	return snapshots, dropped, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
