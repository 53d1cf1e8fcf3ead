package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/ytcat/internal/models"
)

// OverrideRepository persists manual category assignments.
type OverrideRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewOverrideRepository creates a new [OverrideRepository] with the given database connection
func NewOverrideRepository(db *sql.DB) *OverrideRepository {
	return &OverrideRepository{db: db, now: time.Now}
}

// Get returns the override for one playlist. Missing rows wrap [ErrNotFound].
func (r *OverrideRepository) Get(ctx context.Context, userID, playlistID string) (*models.Override, error) {
	query := `
		SELECT user_id, playlist_id, category, updated_at
		FROM category_overrides
		WHERE user_id = ? AND playlist_id = ?
	`

	var o models.Override
	err := r.db.QueryRowContext(ctx, query, userID, playlistID).Scan(&o.UserID, &o.PlaylistID, &o.Category, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("get", "override", playlistID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get", "override", playlistID, err)
	}
	return &o, nil
}

// List returns every override for userID keyed by playlist id.
func (r *OverrideRepository) List(ctx context.Context, userID string) (map[string]models.Override, error) {
	query := `
		SELECT user_id, playlist_id, category, updated_at
		FROM category_overrides
		WHERE user_id = ?
		ORDER BY playlist_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, storageErr("list", "override", userID, err)
	}
	defer rows.Close()

	out := make(map[string]models.Override)
	for rows.Next() {
		var o models.Override
		if err := rows.Scan(&o.UserID, &o.PlaylistID, &o.Category, &o.UpdatedAt); err != nil {
			return nil, storageErr("list", "override", userID, err)
		}
		out[o.PlaylistID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", "override", userID, err)
	}
	return out, nil
}

// Upsert creates or replaces the override for (o.UserID, o.PlaylistID) and stamps UpdatedAt.
func (r *OverrideRepository) Upsert(ctx context.Context, o *models.Override) error {
	if err := o.Validate(); err != nil {
		return storageErr("save", "override", o.PlaylistID, err)
	}

	now := r.now().UTC()
	query := `
		INSERT INTO category_overrides (user_id, playlist_id, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, playlist_id) DO UPDATE SET
			category = excluded.category,
			updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, o.UserID, o.PlaylistID, o.Category, now, now); err != nil {
		return storageErr("save", "override", o.PlaylistID, err)
	}

	o.UpdatedAt = now
	return nil
}

// Delete removes the override for one playlist and reports whether one existed.
func (r *OverrideRepository) Delete(ctx context.Context, userID, playlistID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM category_overrides WHERE user_id = ? AND playlist_id = ?", userID, playlistID)
	if err != nil {
		return false, storageErr("delete", "override", playlistID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete", "override", playlistID, err)
	}
	return rows > 0, nil
}
