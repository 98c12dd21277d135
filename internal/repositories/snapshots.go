package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/jmoiron/sqlx"
)

var snapshotUpsert = upsertQuery("artist_snapshots",
	[]string{"snapshot_date", "group_id"},
	[]string{
		"spotify_id", "name", "artist_popularity", "followers",
		"track_popularity_sum", "new_release_count", "artist_image_url",
	},
)

// SnapshotRepository stores per-date catalog snapshots keyed by (snapshot_date, group_id).
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new [SnapshotRepository] with the given database connection.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Upsert writes snapshots in batches of batchSize; a rerun for the same date replaces values.
func (r *SnapshotRepository) Upsert(ctx context.Context, snapshots []models.ArtistSnapshot, batchSize int) (int, error) {
	n, err := upsertBatches(ctx, r.db, snapshotUpsert, snapshots, batchSize)
	if err != nil {
		return n, fmt.Errorf("failed to upsert snapshots: %w", err)
	}
	return n, nil
}

// ListByDate returns the snapshots for date ordered by group id.
func (r *SnapshotRepository) ListByDate(ctx context.Context, date string) ([]models.ArtistSnapshot, error) {
	snapshots, err := selectAll[models.ArtistSnapshot](ctx, r.db, `
		SELECT snapshot_date, group_id, spotify_id, name, artist_popularity, followers,
			track_popularity_sum, new_release_count, artist_image_url
		FROM artist_snapshots
		WHERE snapshot_date = ?
		ORDER BY group_id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", date, err)
	}
	return snapshots, nil
}
