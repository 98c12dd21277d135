package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/desertthunder/trendrank/internal/shared"
	"github.com/jmoiron/sqlx"
)

var (
	dailyUpsert = upsertQuery("daily_rankings",
		[]string{"snapshot_date", "group_id"},
		[]string{
			"spotify_id", "artist_name", "rank", "prev_rank", "score", "score_points",
			"score_prev", "score_delta", "rising", "artist_popularity", "popularity_delta",
			"followers", "followers_ratio", "track_popularity_sum", "track_popularity_sum_ratio",
			"new_release_count",
		},
	)

	cumulativeUpsert = upsertQuery("cumulative_rankings",
		[]string{"snapshot_date", "group_id"},
		[]string{"artist_name", "rank", "cumulative_score", "score_points", "artist_popularity"},
	)

	weeklyUpsert = upsertQuery("weekly_rankings",
		[]string{"week_end_date", "group_id"},
		[]string{"artist_name", "rank", "prev_rank", "total_score", "artist_popularity"},
	)

	statsUpsert = upsertQuery("daily_stats",
		[]string{"snapshot_date"},
		[]string{
			"avg_score", "avg_score_prev", "avg_score_diff", "avg_score_ratio",
			"count_pop_zero", "count_pop_zero_prev", "count_pop_zero_diff", "count_pop_zero_ratio",
			"count_tpsr_zero", "count_tpsr_zero_prev", "count_tpsr_zero_diff", "count_tpsr_zero_ratio",
			"count_both_zero", "count_both_zero_prev", "count_both_zero_diff", "count_both_zero_ratio",
		},
	)

	highlightUpsert = upsertQuery("daily_highlights",
		[]string{"snapshot_date", "group_id"},
		[]string{
			"artist_name", "rank", "score_points", "latest_track_name",
			"latest_track_embed_link", "artist_image_url",
		},
	)
)

// latestDate returns MAX(column) of table, or "" when the table is empty.
func latestDate(ctx context.Context, db *sqlx.DB, table, column string) (string, error) {
	var latest sql.NullString
	if err := db.GetContext(ctx, &latest, fmt.Sprintf("SELECT MAX(%s) FROM %s", column, table)); err != nil {
		return "", fmt.Errorf("failed to read latest %s from %s: %w", column, table, err)
	}
	return latest.String, nil
}

// DailyRankingRepository stores daily leaderboards keyed by (snapshot_date, group_id).
type DailyRankingRepository struct {
	db *sqlx.DB
}

// NewDailyRankingRepository creates a new [DailyRankingRepository] with the given database connection.
func NewDailyRankingRepository(db *sqlx.DB) *DailyRankingRepository {
	return &DailyRankingRepository{db: db}
}

// Upsert writes entries keyed by (snapshot_date, group_id) in batches of batchSize.
func (r *DailyRankingRepository) Upsert(ctx context.Context, entries []models.DailyRankingEntry, batchSize int) (int, error) {
	n, err := upsertBatches(ctx, r.db, dailyUpsert, entries, batchSize)
	if err != nil {
		return n, fmt.Errorf("failed to upsert daily rankings: %w", err)
	}
	return n, nil
}

// ListByDate returns the leaderboard for date ordered by rank.
func (r *DailyRankingRepository) ListByDate(ctx context.Context, date string) ([]models.DailyRankingEntry, error) {
	entries, err := selectAll[models.DailyRankingEntry](ctx, r.db,
		`SELECT * FROM daily_rankings WHERE snapshot_date = ? ORDER BY rank, group_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily rankings for %s: %w", date, err)
	}
	return entries, nil
}

// ListWindow returns every row with start <= snapshot_date <= end, ordered by date then group id.
func (r *DailyRankingRepository) ListWindow(ctx context.Context, start, end string) ([]models.DailyRankingEntry, error) {
	entries, err := selectAll[models.DailyRankingEntry](ctx, r.db, `
		SELECT * FROM daily_rankings
		WHERE snapshot_date >= ? AND snapshot_date <= ?
		ORDER BY snapshot_date, group_id
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily rankings %s..%s: %w", start, end, err)
	}
	return entries, nil
}

// LatestDate returns the most recent ranked date, or "".
func (r *DailyRankingRepository) LatestDate(ctx context.Context) (string, error) {
	return latestDate(ctx, r.db, "daily_rankings", "snapshot_date")
}

// CumulativeRepository stores running totals keyed by (snapshot_date, group_id).
type CumulativeRepository struct {
	db *sqlx.DB
}

// NewCumulativeRepository creates a new [CumulativeRepository] with the given database connection.
func NewCumulativeRepository(db *sqlx.DB) *CumulativeRepository {
	return &CumulativeRepository{db: db}
}

// Upsert writes entries keyed by (snapshot_date, group_id) in batches of batchSize.
func (r *CumulativeRepository) Upsert(ctx context.Context, entries []models.CumulativeRankingEntry, batchSize int) (int, error) {
	n, err := upsertBatches(ctx, r.db, cumulativeUpsert, entries, batchSize)
	if err != nil {
		return n, fmt.Errorf("failed to upsert cumulative rankings: %w", err)
	}
	return n, nil
}

// ListByDate returns the cumulative board for date ordered by rank.
func (r *CumulativeRepository) ListByDate(ctx context.Context, date string) ([]models.CumulativeRankingEntry, error) {
	entries, err := selectAll[models.CumulativeRankingEntry](ctx, r.db,
		`SELECT * FROM cumulative_rankings WHERE snapshot_date = ? ORDER BY rank, group_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list cumulative rankings for %s: %w", date, err)
	}
	return entries, nil
}

// LatestDate returns the newest stored date, or "" when the table is empty.
func (r *CumulativeRepository) LatestDate(ctx context.Context) (string, error) {
	return latestDate(ctx, r.db, "cumulative_rankings", "snapshot_date")
}

// WeeklyRepository stores trailing-week leaderboards keyed by (week_end_date, group_id).
type WeeklyRepository struct {
	db *sqlx.DB
}

// NewWeeklyRepository creates a new [WeeklyRepository] with the given database connection.
func NewWeeklyRepository(db *sqlx.DB) *WeeklyRepository {
	return &WeeklyRepository{db: db}
}

// Upsert writes entries keyed by (week_end_date, group_id) in batches of batchSize.
func (r *WeeklyRepository) Upsert(ctx context.Context, entries []models.WeeklyRankingEntry, batchSize int) (int, error) {
	n, err := upsertBatches(ctx, r.db, weeklyUpsert, entries, batchSize)
	if err != nil {
		return n, fmt.Errorf("failed to upsert weekly rankings: %w", err)
	}
	return n, nil
}

// ListByWeekEnd returns the leaderboard ordered by rank. A positive limit keeps the first rows.
func (r *WeeklyRepository) ListByWeekEnd(ctx context.Context, weekEnd string, limit int) ([]models.WeeklyRankingEntry, error) {
	query := `SELECT * FROM weekly_rankings WHERE week_end_date = ? ORDER BY rank, group_id`
	args := []any{weekEnd}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	entries, err := selectAll[models.WeeklyRankingEntry](ctx, r.db, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly rankings for %s: %w", weekEnd, err)
	}
	return entries, nil
}

// LatestWeekEnd returns the most recent stored week end, or "".
func (r *WeeklyRepository) LatestWeekEnd(ctx context.Context) (string, error) {
	return latestDate(ctx, r.db, "weekly_rankings", "week_end_date")
}

// StatsRepository stores one roster health row per date.
type StatsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates a new [StatsRepository] with the given database connection.
func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

// Upsert writes the stats row for entry's date.
func (r *StatsRepository) Upsert(ctx context.Context, entry models.DailyStatsEntry) error {
	if _, err := upsertBatches(ctx, r.db, statsUpsert, []models.DailyStatsEntry{entry}, 1); err != nil {
		return fmt.Errorf("failed to upsert daily stats: %w", err)
	}
	return nil
}

// Get returns the stats row for date, or [shared.ErrNotFound].
func (r *StatsRepository) Get(ctx context.Context, date string) (*models.DailyStatsEntry, error) {
	var entry models.DailyStatsEntry
	err := r.db.GetContext(ctx, &entry, r.db.Rebind(`SELECT * FROM daily_stats WHERE snapshot_date = ?`), date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stats for %s", shared.ErrNotFound, date)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily stats for %s: %w", date, err)
	}
	return &entry, nil
}

// HighlightRepository stores enriched top entries keyed by (snapshot_date, group_id).
type HighlightRepository struct {
	db *sqlx.DB
}

// NewHighlightRepository creates a new [HighlightRepository] with the given database connection.
func NewHighlightRepository(db *sqlx.DB) *HighlightRepository {
	return &HighlightRepository{db: db}
}

// Upsert writes highlights keyed by (snapshot_date, group_id) in batches of batchSize.
func (r *HighlightRepository) Upsert(ctx context.Context, highlights []models.DailyHighlight, batchSize int) (int, error) {
	n, err := upsertBatches(ctx, r.db, highlightUpsert, highlights, batchSize)
	if err != nil {
		return n, fmt.Errorf("failed to upsert highlights: %w", err)
	}
	return n, nil
}

// ListByDate returns the highlights stored for date ordered by rank.
func (r *HighlightRepository) ListByDate(ctx context.Context, date string) ([]models.DailyHighlight, error) {
	highlights, err := selectAll[models.DailyHighlight](ctx, r.db,
		`SELECT * FROM daily_highlights WHERE snapshot_date = ? ORDER BY rank, group_id`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list highlights for %s: %w", date, err)
	}
	return highlights, nil
}
