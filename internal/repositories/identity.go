package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/trendrank/internal/models"
	"github.com/jmoiron/sqlx"
)

// IdentityRepository reads and maintains the artist identity registry.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository creates a new [IdentityRepository] with the given database connection.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

type externalIDRow struct {
	GroupID    string `db:"group_id"`
	Service    string `db:"service"`
	ExternalID string `db:"external_id"`
}

type groupNameRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

// Upsert registers groups and their catalog ids in one transaction.
//
// Existing group names are overwritten; image columns are left alone. A catalog id already
// mapped to another group is moved to the new group.
func (r *IdentityRepository) Upsert(ctx context.Context, identities []models.ArtistIdentity) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	groups, err := tx.PrepareNamedContext(ctx,
		`INSERT INTO artist_groups (id, name) VALUES (:group_id, :name)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare group upsert: %w", err)
	}
	defer groups.Close()

	ids, err := tx.PrepareNamedContext(ctx, upsertQuery("external_ids", []string{"service", "external_id"}, []string{"group_id"}))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare external id upsert: %w", err)
	}
	defer ids.Close()

	for _, identity := range identities {
		if _, err := groups.ExecContext(ctx, identity); err != nil {
			return 0, fmt.Errorf("failed to upsert group %s: %w", identity.GroupID, err)
		}
		row := externalIDRow{GroupID: identity.GroupID, Service: models.ServiceSpotify, ExternalID: identity.SpotifyID}
		if _, err := ids.ExecContext(ctx, row); err != nil {
			return 0, fmt.Errorf("failed to upsert external id %s: %w", identity.SpotifyID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(identities), nil
}

// List returns every group with a catalog id, ordered by group id then catalog id.
func (r *IdentityRepository) List(ctx context.Context) ([]models.ArtistIdentity, error) {
	identities, err := selectAll[models.ArtistIdentity](ctx, r.db, `
		SELECT e.group_id AS group_id, e.external_id AS spotify_id, g.name AS name
		FROM external_ids e
		JOIN artist_groups g ON g.id = e.group_id
		WHERE e.service = ?
		ORDER BY e.group_id, e.external_id
	`, models.ServiceSpotify)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	return identities, nil
}

// NamesByGroupIDs maps each known group id to its display name. Unknown ids are absent.
func (r *IdentityRepository) NamesByGroupIDs(ctx context.Context, groupIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(groupIDs))
	if len(groupIDs) == 0 {
		return names, nil
	}

	rows, err := selectIn[groupNameRow](ctx, r.db, `SELECT id, name FROM artist_groups WHERE id IN (?)`, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up group names: %w", err)
	}

	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

// CatalogIDsByGroupIDs maps each group id to its first catalog id in lexical order.
func (r *IdentityRepository) CatalogIDsByGroupIDs(ctx context.Context, groupIDs []string) (map[string]string, error) {
	ids := make(map[string]string, len(groupIDs))
	if len(groupIDs) == 0 {
		return ids, nil
	}

	rows, err := selectIn[externalIDRow](ctx, r.db, `
		SELECT group_id, service, external_id
		FROM external_ids
		WHERE service = ? AND group_id IN (?)
		ORDER BY group_id, external_id
	`, models.ServiceSpotify, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up catalog ids: %w", err)
	}

	for _, row := range rows {
		if _, seen := ids[row.GroupID]; !seen {
			ids[row.GroupID] = row.ExternalID
		}
	}
	return ids, nil
}

// UpdateImage records the newest known image for a group.
func (r *IdentityRepository) UpdateImage(ctx context.Context, groupID, url, source, updatedAt string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE artist_groups
		SET artist_image_url = ?, artist_image_source = ?, artist_image_updated_at = ?
		WHERE id = ?
	`), url, source, updatedAt, groupID)
	if err != nil {
		return fmt.Errorf("failed to update image for %s: %w", groupID, err)
	}
	return nil
}

// Image returns the stored image url for a group, or nil.
func (r *IdentityRepository) Image(ctx context.Context, groupID string) (*string, error) {
	var url *string
	err := r.db.GetContext(ctx, &url, r.db.Rebind(`SELECT artist_image_url FROM artist_groups WHERE id = ?`), groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read image for %s: %w", groupID, err)
	}
	return url, nil
}
