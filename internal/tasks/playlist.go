package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
)

// playlistChunk is the most track URIs a single playlist write accepts.
const playlistChunk = 100

// PlaylistOptions configures a [PlaylistBuilder].
type PlaylistOptions struct {
	UserID      string
	Market      string
	BaseName    string
	Description string
}

// PlaylistResult describes the published weekly playlist.
type PlaylistResult struct {
	PlaylistID  string
	Name        string
	Description string
	TrackURIs   []string
	Unresolved  []string // catalog artist ids with no usable track
}

// URL is the public link to the playlist.
func (r *PlaylistResult) URL() string {
	return "https://open.spotify.com/playlist/" + r.PlaylistID
}

// PlaylistBuilder publishes one track per ranked artist into a reusable playlist.
type PlaylistBuilder struct {
	editor services.PlaylistEditor
	opts   PlaylistOptions
	logger *log.Logger
}

// NewPlaylistBuilder creates a [PlaylistBuilder] that edits playlists through editor.
func NewPlaylistBuilder(editor services.PlaylistEditor, opts PlaylistOptions, logger *log.Logger) *PlaylistBuilder {
	return &PlaylistBuilder{editor: editor, opts: opts, logger: logger}
}

// WeekLabel renders "(Y/M/D-Y/M/D)" for the seven days ending at weekEnd.
func WeekLabel(weekEnd string) (string, error) {
	end, err := shared.ParseDate(weekEnd)
	if err != nil {
		return "", err
	}
	start := end.AddDate(0, 0, -6)
	return fmt.Sprintf("(%s-%s)", labelDate(start), labelDate(end)), nil
}

func labelDate(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// ResolveTrackURI picks the first track of the artist's newest release, falling back to the
// artist's first top track.
func (b *PlaylistBuilder) ResolveTrackURI(ctx context.Context, artistID string) (string, bool) {
	if track, ok := LatestTrack(ctx, b.editor, artistID, b.opts.Market, playlistAlbumLimit); ok && track.URI != "" {
		return track.URI, true
	}

	tracks, ok := b.editor.TopTracks(ctx, artistID, b.opts.Market)
	if !ok || len(tracks) == 0 || tracks[0].URI == "" {
		return "", false
	}
	return tracks[0].URI, true
}

// Publish resolves a track for every artist in order, replaces the playlist's contents and
// renames it for the week ending at weekEnd.
func (b *PlaylistBuilder) Publish(ctx context.Context, weekEnd string, artistIDs []string, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	label, err := WeekLabel(weekEnd)
	if err != nil {
		return nil, err
	}

	result := &PlaylistResult{}
	for i, id := range artistIDs {
		uri, ok := b.ResolveTrackURI(ctx, id)
		sendProgress(progress, resolveTrackUpdate(i+1, len(artistIDs), id, ok))
		if !ok {
			b.logger.Warn("No track resolved", "spotify_id", id)
			result.Unresolved = append(result.Unresolved, id)
			continue
		}
		result.TrackURIs = append(result.TrackURIs, uri)
	}

	if len(result.TrackURIs) == 0 {
		return nil, fmt.Errorf("%w: none of %d artists", shared.ErrNoTracks, len(artistIDs))
	}

	sendProgress(progress, stepUpdate(PublishPlaylist, "Updating playlist..."))

	playlistID, err := b.findOrCreate(ctx)
	if err != nil {
		return nil, err
	}
	result.PlaylistID = playlistID

	if err := b.replaceTracks(ctx, playlistID, result.TrackURIs); err != nil {
		return nil, err
	}

	result.Name = fmt.Sprintf("%s %s", b.opts.BaseName, label)
	result.Description = b.opts.Description + label
	if !b.editor.UpdatePlaylistDetails(ctx, playlistID, result.Name, result.Description) {
		return nil, fmt.Errorf("%w: failed to rename playlist %s", shared.ErrAPIRequest, playlistID)
	}

	return result, nil
}

// findOrCreate returns the first playlist whose name starts with the base name, creating a
// private one when none exists.
func (b *PlaylistBuilder) findOrCreate(ctx context.Context) (string, error) {
	playlists, ok := b.editor.UserPlaylists(ctx, b.opts.UserID)
	if !ok {
		return "", fmt.Errorf("%w: failed to list playlists for %s", shared.ErrAPIRequest, b.opts.UserID)
	}

	for _, p := range playlists {
		if strings.HasPrefix(p.Name, b.opts.BaseName) {
			return p.ID, nil
		}
	}

	created, ok := b.editor.CreatePlaylist(ctx, b.opts.UserID, b.opts.BaseName, b.opts.Description)
	if !ok || created == nil {
		return "", fmt.Errorf("%w: failed to create playlist %q", shared.ErrAPIRequest, b.opts.BaseName)
	}
	b.logger.Info("Created playlist", "id", created.ID, "name", created.Name)
	return created.ID, nil
}

func (b *PlaylistBuilder) replaceTracks(ctx context.Context, playlistID string, uris []string) error {
	first := uris[:min(playlistChunk, len(uris))]
	if !b.editor.ReplacePlaylistTracks(ctx, playlistID, first) {
		return fmt.Errorf("%w: failed to replace tracks of %s", shared.ErrAPIRequest, playlistID)
	}

	for start := playlistChunk; start < len(uris); start += playlistChunk {
		chunk := uris[start:min(start+playlistChunk, len(uris))]
		if !b.editor.AddPlaylistTracks(ctx, playlistID, chunk) {
			return fmt.Errorf("%w: failed to add tracks to %s", shared.ErrAPIRequest, playlistID)
		}
	}
	return nil
}
