package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/shared"
	th "github.com/desertthunder/trendrank/internal/testing"
)

func sampleDaily() []models.DailyRankingEntry {
	return []models.DailyRankingEntry{
		{
			SnapshotDate:     "2025-01-10",
			GroupID:          "g2",
			ArtistName:       "Beta",
			Rank:             1,
			PrevRank:         models.IntPtr(3),
			ScorePoints:      154,
			ScoreDelta:       models.FloatPtr(120),
			Rising:           true,
			ArtistPopularity: models.IntPtr(45),
			Followers:        1200,
		},
		{
			SnapshotDate: "2025-01-10",
			GroupID:      "g1",
			ArtistName:   "Alpha | Omega",
			Rank:         2,
			ScorePoints:  -4.5,
			Followers:    1000,
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatText, "TEXT": FormatText, "csv": FormatCSV, "md": FormatMarkdown, "markdown": FormatMarkdown, "json": FormatJSON}
	for in, want := range cases {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}

	if _, err := ParseFormat("xml"); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected invalid argument, got %v", err)
	}
}

func TestMovement(t *testing.T) {
	tests := []struct {
		rank int
		prev *int
		want string
	}{
		{1, nil, "NEW"},
		{2, models.IntPtr(2), "="},
		{1, models.IntPtr(4), "▲3"},
		{5, models.IntPtr(3), "▼2"},
	}
	for _, tt := range tests {
		if got := Movement(tt.rank, tt.prev); got != tt.want {
			t.Errorf("Movement(%d, %v) = %q, want %q", tt.rank, tt.prev, got, tt.want)
		}
	}
}

func TestBoards(t *testing.T) {
	t.Run("Daily", func(t *testing.T) {
		b := Daily("2025-01-10", sampleDaily())
		if len(b.Rows) != 2 || len(b.Rows[0]) != len(b.Headers) {
			t.Fatalf("unexpected shape %d rows", len(b.Rows))
		}
		want := []string{"1", "▲2", "Beta", "154.00", "120.00", "45", "1200", "yes"}
		if strings.Join(b.Rows[0], ",") != strings.Join(want, ",") {
			t.Errorf("unexpected row %v", b.Rows[0])
		}
		if b.Rows[1][1] != "NEW" || b.Rows[1][4] != "-" || b.Rows[1][5] != "-" {
			t.Errorf("expected placeholders for missing values, got %v", b.Rows[1])
		}
	})

	t.Run("Weekly Falls Back To Group", func(t *testing.T) {
		b := Weekly("2025-01-10", []models.WeeklyRankingEntry{
			{GroupID: "g1", Rank: 1, TotalScore: 10, ArtistName: models.StringPtr("Alpha")},
			{GroupID: "g9", Rank: 2, TotalScore: 5},
		})
		if b.Rows[0][2] != "Alpha" || b.Rows[1][2] != "g9" {
			t.Errorf("unexpected names %v %v", b.Rows[0], b.Rows[1])
		}
	})

	t.Run("Stats", func(t *testing.T) {
		b := Stats(&models.DailyStatsEntry{
			SnapshotDate:      "2025-01-10",
			AvgScore:          models.FloatPtr(25),
			AvgScoreRatio:     "N/A (no prev)",
			CountPopZero:      models.IntPtr(2),
			CountPopZeroRatio: "N/A (no prev)",
		})
		if len(b.Rows) != 4 || b.Rows[0][1] != "25.00" || b.Rows[0][2] != "-" || b.Rows[1][4] != "N/A (no prev)" {
			t.Errorf("unexpected stats rows %v", b.Rows)
		}
	})

	t.Run("Highlights", func(t *testing.T) {
		b := Highlights("2025-01-10", []models.DailyHighlight{
			{Rank: 1, ArtistName: "Beta", ScorePoints: 10, LatestTrackName: models.StringPtr("Song")},
		})
		if b.Rows[0][3] != "Song" || b.Rows[0][4] != "-" {
			t.Errorf("unexpected row %v", b.Rows[0])
		}
	})

	t.Run("Runs", func(t *testing.T) {
		b := Runs([]models.JobRun{{ID: "r1", Job: "daily", Status: models.JobFailed, Error: models.StringPtr("no snapshot data")}})
		if b.Rows[0][3] != "failed" || b.Rows[0][6] != "no snapshot data" {
			t.Errorf("unexpected row %v", b.Rows[0])
		}
	})
}

func TestExporters(t *testing.T) {
	board := Daily("2025-01-10", sampleDaily())

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(board)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "Rank,Move,Artist,Points,Delta,Popularity,Followers,Rising\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "1,▲2,Beta,154.00,120.00,45,1200,yes") {
			t.Errorf("CSV missing first row, got: %s", output)
		}
		if strings.Count(output, "\n") != 3 {
			t.Errorf("expected 3 lines, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(board)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}
		output := string(data)

		if !strings.HasPrefix(output, "# Daily ranking 2025-01-10\n\n") {
			t.Errorf("Markdown missing title, got: %s", output)
		}
		if !strings.Contains(output, "| --- | --- |") {
			t.Errorf("Markdown missing separator row")
		}
		if !strings.Contains(output, `Alpha \| Omega`) {
			t.Errorf("Markdown did not escape pipes, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown Empty", func(t *testing.T) {
		data, _ := ExportToMarkdown(Daily("2025-01-10", nil))
		if !strings.Contains(string(data), "_No rows._") {
			t.Errorf("expected empty marker, got: %s", data)
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(board)
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		for _, want := range []string{"Daily ranking 2025-01-10", "Rank", "Beta", "154.00", "Alpha | Omega"} {
			if !strings.Contains(output, want) {
				t.Errorf("text output missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(board)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded []map[string]any
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["group_id"] != "g2" || decoded[1]["prev_rank"] != nil {
			t.Errorf("unexpected JSON %s", data)
		}
	})
}

func TestRender(t *testing.T) {
	board := Roster([]models.ArtistIdentity{{GroupID: "g1", Name: "Alpha", SpotifyID: "sp1"}})

	t.Run("Writes Output", func(t *testing.T) {
		var sb strings.Builder
		if err := Render(&sb, board, FormatCSV); err != nil {
			t.Fatalf("Render failed: %v", err)
		}
		if sb.String() != "Group,Name,Spotify ID\ng1,Alpha,sp1\n" {
			t.Errorf("unexpected output %q", sb.String())
		}
	})

	t.Run("Writer Error", func(t *testing.T) {
		if err := Render(&th.FWriter{}, board, FormatText); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if err := Render(&strings.Builder{}, board, Format("xml")); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("WriteExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roster.md")
		if err := WriteExport(board, FormatMarkdown, path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}
		content := th.MustReadFile(t, path)
		if !strings.Contains(content, "| g1 | Alpha | sp1 |") {
			t.Errorf("unexpected file content:\n%s", content)
		}
	})
}
