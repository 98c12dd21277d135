// package formatter renders stored leaderboards as plain text tables, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/shared"
)

// Format names an output encoding.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat maps a flag value to a [Format]. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Board is a titled table of display cells. Records holds the source rows for JSON output.
type Board struct {
	Title   string
	Headers []string
	Rows    [][]string
	Records any
}

// Daily builds the daily leaderboard for date.
func Daily(date string, entries []models.DailyRankingEntry) Board {
	b := Board{
		Title:   "Daily ranking " + date,
		Headers: []string{"Rank", "Move", "Artist", "Points", "Delta", "Popularity", "Followers", "Rising"},
		Records: entries,
	}
	for _, e := range entries {
		rising := ""
		if e.Rising {
			rising = "yes"
		}
		b.Rows = append(b.Rows, []string{
			strconv.Itoa(e.Rank),
			Movement(e.Rank, e.PrevRank),
			e.ArtistName,
			points(e.ScorePoints),
			optFloat(e.ScoreDelta),
			optInt(e.ArtistPopularity),
			strconv.Itoa(e.Followers),
			rising,
		})
	}
	return b
}

// Cumulative builds the running-total leaderboard for date.
func Cumulative(date string, entries []models.CumulativeRankingEntry) Board {
	b := Board{
		Title:   "Cumulative ranking " + date,
		Headers: []string{"Rank", "Artist", "Total", "Today", "Popularity"},
		Records: entries,
	}
	for _, e := range entries {
		b.Rows = append(b.Rows, []string{
			strconv.Itoa(e.Rank),
			e.ArtistName,
			points(e.CumulativeScore),
			points(e.ScorePoints),
			optInt(e.ArtistPopularity),
		})
	}
	return b
}

// Weekly builds the leaderboard for the week ending at weekEnd.
func Weekly(weekEnd string, entries []models.WeeklyRankingEntry) Board {
	b := Board{
		Title:   "Weekly ranking " + weekEnd,
		Headers: []string{"Rank", "Move", "Artist", "Total", "Popularity"},
		Records: entries,
	}
	for _, e := range entries {
		name := e.GroupID
		if e.ArtistName != nil {
			name = *e.ArtistName
		}
		b.Rows = append(b.Rows, []string{
			strconv.Itoa(e.Rank),
			Movement(e.Rank, e.PrevRank),
			name,
			points(e.TotalScore),
			optInt(e.ArtistPopularity),
		})
	}
	return b
}

// Stats builds a metric-per-row view of a roster health entry.
func Stats(s *models.DailyStatsEntry) Board {
	b := Board{
		Title:   "Roster stats " + s.SnapshotDate,
		Headers: []string{"Metric", "Today", "Previous", "Diff", "Change"},
		Records: s,
	}
	b.Rows = [][]string{
		{"Average points", optFloat(s.AvgScore), optFloat(s.AvgScorePrev), optFloat(s.AvgScoreDiff), s.AvgScoreRatio},
		{"Popularity zero", optInt(s.CountPopZero), optInt(s.CountPopZeroPrev), optInt(s.CountPopZeroDiff), s.CountPopZeroRatio},
		{"Track ratio zero", optInt(s.CountTPSRZero), optInt(s.CountTPSRZeroPrev), optInt(s.CountTPSRZeroDiff), s.CountTPSRZeroRatio},
		{"Both zero", optInt(s.CountBothZero), optInt(s.CountBothZeroPrev), optInt(s.CountBothZeroDiff), s.CountBothZeroRatio},
	}
	return b
}

// Highlights builds the enriched top entries for date.
func Highlights(date string, highlights []models.DailyHighlight) Board {
	b := Board{
		Title:   "Highlights " + date,
		Headers: []string{"Rank", "Artist", "Points", "Latest track", "Embed"},
		Records: highlights,
	}
	for _, h := range highlights {
		b.Rows = append(b.Rows, []string{
			strconv.Itoa(h.Rank),
			h.ArtistName,
			points(h.ScorePoints),
			optString(h.LatestTrackName),
			optString(h.LatestTrackEmbedLink),
		})
	}
	return b
}

// Runs builds the job-run ledger view.
func Runs(runs []models.JobRun) Board {
	b := Board{
		Title:   "Job runs",
		Headers: []string{"ID", "Job", "Date", "Status", "Started", "Rows", "Error"},
		Records: runs,
	}
	for _, r := range runs {
		b.Rows = append(b.Rows, []string{
			r.ID,
			r.Job,
			r.TargetDate,
			string(r.Status),
			r.StartedAt,
			strconv.Itoa(r.RowsWritten),
			optString(r.Error),
		})
	}
	return b
}

// Roster builds the identity registry view.
func Roster(identities []models.ArtistIdentity) Board {
	b := Board{
		Title:   "Roster",
		Headers: []string{"Group", "Name", "Spotify ID"},
		Records: identities,
	}
	for _, i := range identities {
		b.Rows = append(b.Rows, []string{i.GroupID, i.Name, i.SpotifyID})
	}
	return b
}

// Movement renders a rank change against the previous rank: "NEW", "=", "▲n" or "▼n".
func Movement(rank int, prev *int) string {
	switch {
	case prev == nil:
		return "NEW"
	case *prev == rank:
		return "="
	case *prev > rank:
		return fmt.Sprintf("▲%d", *prev-rank)
	default:
		return fmt.Sprintf("▼%d", rank-*prev)
	}
}

func points(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func optFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return points(*v)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

// ExportToCSV writes the header row followed by every board row.
func ExportToCSV(b Board) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(b.Headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, row := range b.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading and a pipe table.
func ExportToMarkdown(b Board) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", b.Title)
	if len(b.Rows) == 0 {
		buf.WriteString("_No rows._\n")
		return buf.Bytes(), nil
	}

	fmt.Fprintf(&buf, "| %s |\n", strings.Join(b.Headers, " | "))
	seps := make([]string, len(b.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(&buf, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range b.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		fmt.Fprintf(&buf, "| %s |\n", strings.Join(cells, " | "))
	}

	return buf.Bytes(), nil
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// ExportToText renders the board as a bordered terminal table.
func ExportToText(b Board) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(b.Title + "\n")

	if len(b.Rows) == 0 {
		buf.WriteString("No rows.\n")
		return buf.Bytes(), nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(b.Headers...).
		Rows(b.Rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	buf.WriteString(t.String())
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// ExportToJSON marshals the board's source records.
func ExportToJSON(b Board) ([]byte, error) {
	data, err := json.MarshalIndent(b.Records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// Export encodes b in format f.
func Export(b Board, f Format) ([]byte, error) {
	switch f {
	case FormatText:
		return ExportToText(b)
	case FormatCSV:
		return ExportToCSV(b)
	case FormatMarkdown:
		return ExportToMarkdown(b)
	case FormatJSON:
		return ExportToJSON(b)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// Render writes b to w in format f.
func Render(w io.Writer, b Board, f Format) error {
	data, err := Export(b, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteExport writes b in format f to path.
func WriteExport(b Board, f Format, path string) error {
	data, err := Export(b, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
