package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/services"
	"github.com/desertthunder/trendrank/internal/shared"
	tu "github.com/desertthunder/trendrank/internal/testing"
)

func newTestBuilder(editor services.PlaylistEditor) *PlaylistBuilder {
	return NewPlaylistBuilder(editor, PlaylistOptions{
		UserID:      "me",
		Market:      "JP",
		BaseName:    "Weekly Top",
		Description: "Ranking period: ",
	}, quietLogger())
}

func TestWeekLabel(t *testing.T) {
	t.Run("Spans Seven Days", func(t *testing.T) {
		got, err := WeekLabel("2025-01-07")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "(2025/1/1-2025/1/7)" {
			t.Errorf("unexpected label %q", got)
		}
	})

	t.Run("Crosses Year", func(t *testing.T) {
		got, _ := WeekLabel("2025-01-03")
		if got != "(2024/12/28-2025/1/3)" {
			t.Errorf("unexpected label %q", got)
		}
	})

	t.Run("Invalid Date", func(t *testing.T) {
		if _, err := WeekLabel("01/07/2025"); !errors.Is(err, shared.ErrInvalidDate) {
			t.Errorf("expected invalid date error, got %v", err)
		}
	})
}

func TestLatestRelease(t *testing.T) {
	fake := tu.NewFakeCatalog()
	fake.Albums["sp1"] = []services.SpotifyAlbum{
		{ID: "old", ReleaseDate: "2023-05-01"},
		{ID: "new", ReleaseDate: "2024-11-02"},
		{ID: "tie", ReleaseDate: "2024-11-02"},
	}
	fake.Tracks["new"] = []services.SpotifyTrack{track("n1", 0, "2024-11-02"), track("n2", 0, "2024-11-02")}

	t.Run("Newest First Listed Wins", func(t *testing.T) {
		album, ok := LatestRelease(context.Background(), fake, "sp1", "JP", 10)
		if !ok || album.ID != "new" {
			t.Errorf("expected new, got %+v", album)
		}
	})

	t.Run("First Track", func(t *testing.T) {
		got, ok := LatestTrack(context.Background(), fake, "sp1", "JP", 10)
		if !ok || got.ID != "n1" {
			t.Errorf("expected n1, got %+v", got)
		}
	})

	t.Run("No Releases", func(t *testing.T) {
		if _, ok := LatestTrack(context.Background(), fake, "none", "JP", 10); ok {
			t.Error("expected no track")
		}
	})
}

func TestPlaylistBuilder(t *testing.T) {
	t.Run("Creates Playlist When Missing", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.Albums["sp1"] = []services.SpotifyAlbum{{ID: "alb1", ReleaseDate: "2025-01-01"}}
		fake.Tracks["alb1"] = []services.SpotifyTrack{track("t1", 0, "2025-01-01")}
		fake.TopTrackSets["sp2"] = []services.SpotifyTrack{track("top2", 0, "2020-01-01")}

		result, err := newTestBuilder(fake).Publish(context.Background(), "2025-01-07", []string{"sp1", "sp2", "sp3"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if fake.Calls["create"] != 1 || result.PlaylistID != "pl1" {
			t.Errorf("expected a created playlist, got %q", result.PlaylistID)
		}
		want := []string{"spotify:track:t1", "spotify:track:top2"}
		if fmt.Sprint(fake.Items["pl1"]) != fmt.Sprint(want) {
			t.Errorf("expected %v, got %v", want, fake.Items["pl1"])
		}
		if len(result.Unresolved) != 1 || result.Unresolved[0] != "sp3" {
			t.Errorf("expected sp3 unresolved, got %v", result.Unresolved)
		}
		if result.Name != "Weekly Top (2025/1/1-2025/1/7)" || fake.Renamed["pl1"] != result.Name {
			t.Errorf("unexpected name %q", result.Name)
		}
		if result.Description != "Ranking period: (2025/1/1-2025/1/7)" {
			t.Errorf("unexpected description %q", result.Description)
		}
		if result.URL() != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("unexpected url %q", result.URL())
		}
	})

	t.Run("Reuses Playlist By Prefix", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		fake.Playlists = []services.SpotifySimplePlaylist{
			{ID: "other", Name: "Something Else"},
			{ID: "existing", Name: "Weekly Top (2024/12/25-2024/12/31)"},
		}
		fake.Items["existing"] = []string{"spotify:track:stale"}
		fake.TopTrackSets["sp1"] = []services.SpotifyTrack{track("t1", 0, "")}

		result, err := newTestBuilder(fake).Publish(context.Background(), "2025-01-07", []string{"sp1"}, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.PlaylistID != "existing" || fake.Calls["create"] != 0 {
			t.Errorf("expected existing playlist reused, got %q", result.PlaylistID)
		}
		if len(fake.Items["existing"]) != 1 || fake.Items["existing"][0] != "spotify:track:t1" {
			t.Errorf("expected contents replaced, got %v", fake.Items["existing"])
		}
	})

	t.Run("Chunks Large Track Lists", func(t *testing.T) {
		fake := tu.NewFakeCatalog()
		ids := make([]string, 0, 230)
		for i := range 230 {
			id := fmt.Sprintf("sp%d", i)
			fake.TopTrackSets[id] = []services.SpotifyTrack{track(fmt.Sprintf("t%d", i), 0, "")}
			ids = append(ids, id)
		}

		result, err := newTestBuilder(fake).Publish(context.Background(), "2025-01-07", ids, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fake.Calls["replace"] != 1 || fake.Calls["add"] != 2 {
			t.Errorf("expected 1 replace and 2 adds, got %v", fake.Calls)
		}
		items := fake.Items[result.PlaylistID]
		if len(items) != 230 || items[0] != "spotify:track:t0" || items[229] != "spotify:track:t229" {
			t.Errorf("unexpected playlist contents, %d items", len(items))
		}
	})

	t.Run("No Tracks Resolved", func(t *testing.T) {
		fake := tu.NewFakeCatalog()

		_, err := newTestBuilder(fake).Publish(context.Background(), "2025-01-07", []string{"sp1"}, nil)
		if !errors.Is(err, shared.ErrNoTracks) {
			t.Errorf("expected no tracks error, got %v", err)
		}
		if fake.Calls["playlists"] != 0 {
			t.Error("expected the playlist to be left untouched")
		}
	})
}

func TestHighlighter(t *testing.T) {
	fake := tu.NewFakeCatalog()
	fake.Artists["sp1"] = artist("sp1", "One", 50, 10, "https://img/1")
	fake.Albums["sp1"] = []services.SpotifyAlbum{{ID: "alb1", ReleaseDate: "2025-01-01"}}
	fake.Tracks["alb1"] = []services.SpotifyTrack{{ID: "trk1", Name: "Song"}}

	ranked := []models.DailyRankingEntry{
		{SnapshotDate: "2025-01-10", GroupID: "g1", SpotifyID: "sp1", ArtistName: "One", Rank: 1, ScorePoints: 40},
		{SnapshotDate: "2025-01-10", GroupID: "g2", SpotifyID: "sp2", ArtistName: "Two", Rank: 2, ScorePoints: 20},
		{SnapshotDate: "2025-01-10", GroupID: "g3", SpotifyID: "sp3", ArtistName: "Three", Rank: 3, ScorePoints: 10},
	}

	sleeper := &tu.Sleeper{}
	h := NewHighlighter(fake, "JP", highlightPause, quietLogger())
	h.sleep = sleeper.Sleep

	got := h.Build(context.Background(), ranked, 2, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(got))
	}

	t.Run("Enriched Entry", func(t *testing.T) {
		hl := got[0]
		if hl.LatestTrackName == nil || *hl.LatestTrackName != "Song" {
			t.Errorf("unexpected track name %v", hl.LatestTrackName)
		}
		if *hl.LatestTrackEmbedLink != "https://open.spotify.com/embed/track/trk1" {
			t.Errorf("unexpected embed link %q", *hl.LatestTrackEmbedLink)
		}
		if *hl.ArtistImageURL != "https://img/1" || hl.Rank != 1 || hl.ScorePoints != 40 {
			t.Errorf("unexpected highlight %+v", hl)
		}
	})

	t.Run("Missing Data Stays Nil", func(t *testing.T) {
		hl := got[1]
		if hl.LatestTrackName != nil || hl.LatestTrackEmbedLink != nil || hl.ArtistImageURL != nil {
			t.Errorf("expected nil fields, got %+v", hl)
		}
		if hl.GroupID != "g2" || hl.ArtistName != "Two" {
			t.Errorf("expected ranking fields copied, got %+v", hl)
		}
	})

	t.Run("Pauses Between Artists", func(t *testing.T) {
		if len(sleeper.Sleeps) != 1 || sleeper.Sleeps[0] != highlightPause {
			t.Errorf("expected one pause, got %v", sleeper.Sleeps)
		}
	})
}
