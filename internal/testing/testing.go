// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/jmoiron/sqlx"
)

// FakeCatalog is an in-memory [services.PlaylistEditor].
//
// Missing keys report absence. ArtistFailures makes the first n Artist calls for an id
// report absence before the stored value is returned.
type FakeCatalog struct {
	mu sync.Mutex

	Artists        map[string]*services.SpotifyArtist
	TopTrackSets   map[string][]services.SpotifyTrack
	Albums         map[string][]services.SpotifyAlbum
	Tracks         map[string][]services.SpotifyTrack
	ArtistFailures map[string]int

	Playlists []services.SpotifySimplePlaylist
	Items     map[string][]string
	Renamed   map[string]string

	Calls map[string]int
}

// NewFakeCatalog returns an empty [FakeCatalog].
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Artists:        map[string]*services.SpotifyArtist{},
		TopTrackSets:   map[string][]services.SpotifyTrack{},
		Albums:         map[string][]services.SpotifyAlbum{},
		Tracks:         map[string][]services.SpotifyTrack{},
		ArtistFailures: map[string]int{},
		Items:          map[string][]string{},
		Renamed:        map[string]string{},
		Calls:          map[string]int{},
	}
}

func (f *FakeCatalog) count(key string) {
	f.Calls[key]++
}

func (f *FakeCatalog) Artist(ctx context.Context, artistID string) (*services.SpotifyArtist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("artist:" + artistID)

	if f.ArtistFailures[artistID] > 0 {
		f.ArtistFailures[artistID]--
		return nil, false
	}
	a, ok := f.Artists[artistID]
	return a, ok
}

func (f *FakeCatalog) TopTracks(ctx context.Context, artistID, market string) ([]services.SpotifyTrack, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("top:" + artistID)

	t, ok := f.TopTrackSets[artistID]
	return t, ok
}

func (f *FakeCatalog) ArtistAlbums(ctx context.Context, artistID, market string, groups []string, limit int) ([]services.SpotifyAlbum, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("albums:" + artistID)

	a, ok := f.Albums[artistID]
	return a, ok
}

func (f *FakeCatalog) AlbumTracks(ctx context.Context, albumID string, limit int) ([]services.SpotifyTrack, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("tracks:" + albumID)

	t, ok := f.Tracks[albumID]
	if ok && limit > 0 && len(t) > limit {
		t = t[:limit]
	}
	return t, ok
}

func (f *FakeCatalog) UserPlaylists(ctx context.Context, userID string) ([]services.SpotifySimplePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("playlists")
	return append([]services.SpotifySimplePlaylist(nil), f.Playlists...), true
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, userID, name, description string) (*services.SpotifySimplePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("create")

	p := services.SpotifySimplePlaylist{ID: fmt.Sprintf("pl%d", len(f.Playlists)+1), Name: name, Description: description}
	f.Playlists = append(f.Playlists, p)
	return &p, true
}

func (f *FakeCatalog) ReplacePlaylistTracks(ctx context.Context, playlistID string, uris []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("replace")
	f.Items[playlistID] = append([]string(nil), uris...)
	return true
}

func (f *FakeCatalog) AddPlaylistTracks(ctx context.Context, playlistID string, uris []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("add")
	f.Items[playlistID] = append(f.Items[playlistID], uris...)
	return true
}

func (f *FakeCatalog) UpdatePlaylistDetails(ctx context.Context, playlistID, name, description string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count("rename")
	f.Renamed[playlistID] = name
	return true
}

// Sleeper records requested sleeps without blocking.
type Sleeper struct {
	mu     sync.Mutex
	Sleeps []time.Duration
}

func (s *Sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sleeps = append(s.Sleeps, d)
	return ctx.Err()
}

// Clock returns a fixed time.
func Clock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// MustOpenDB opens a migrated in-memory SQLite database that is closed with the test.
func MustOpenDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := shared.NewDatabase(shared.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
