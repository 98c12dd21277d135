package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// DefaultBatchSize is the number of rows written per upsert transaction.
const DefaultBatchSize = 500

// Store groups the repositories used by the pipeline jobs over one connection pool.
type Store struct {
	DB         *sqlx.DB
	Identities *IdentityRepository
	Snapshots  *SnapshotRepository
	Daily      *DailyRankingRepository
	Cumulative *CumulativeRepository
	Weekly     *WeeklyRepository
	Stats      *StatsRepository
	Highlights *HighlightRepository
	Runs       *JobRunRepository
}

// NewStore wires every repository to db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		DB:         db,
		Identities: NewIdentityRepository(db),
		Snapshots:  NewSnapshotRepository(db),
		Daily:      NewDailyRankingRepository(db),
		Cumulative: NewCumulativeRepository(db),
		Weekly:     NewWeeklyRepository(db),
		Stats:      NewStatsRepository(db),
		Highlights: NewHighlightRepository(db),
		Runs:       NewJobRunRepository(db),
	}
}

// upsertQuery builds a named INSERT that overwrites every non-key column when the key exists.
//
// The ON CONFLICT ... DO UPDATE form is understood by both SQLite (3.24+) and PostgreSQL.
func upsertQuery(table string, keys, columns []string) string {
	all := append(append([]string{}, keys...), columns...)

	params := make([]string, len(all))
	for i, c := range all {
		params[i] = ":" + c
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(all, ", "),
		strings.Join(params, ", "),
		strings.Join(keys, ", "),
		strings.Join(sets, ", "),
	)
}

// upsertBatches writes rows in transactions of at most size rows.
//
// Batches commit independently: when one fails, earlier batches stay written and the count
// of rows already committed is returned with the error.
func upsertBatches[T any](ctx context.Context, db *sqlx.DB, query string, rows []T, size int) (int, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	written := 0
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if err := upsertBatch(ctx, db, query, rows[start:end]); err != nil {
			return written, fmt.Errorf("failed to upsert rows %d-%d: %w", start, end, err)
		}
		written += end - start
	}

	return written, nil
}

func upsertBatch[T any](ctx context.Context, db *sqlx.DB, query string, rows []T) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// selectAll runs a '?'-parameterized query rebound for the connection's driver.
func selectAll[T any](ctx context.Context, db *sqlx.DB, query string, args ...any) ([]T, error) {
	var out []T
	if err := db.SelectContext(ctx, &out, db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// selectIn expands a single slice argument into an IN list.
func selectIn[T any](ctx context.Context, db *sqlx.DB, query string, args ...any) ([]T, error) {
	expanded, params, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to expand query: %w", err)
	}
	return selectAll[T](ctx, db, expanded, params...)
}
