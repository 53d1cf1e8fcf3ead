package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/ytcat/internal/models"
)

// CredentialRepository persists one [models.Credential] per user.
type CredentialRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// Get loads the credential stored for userID. Missing rows wrap [ErrNotFound].
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*models.Credential, error) {
	query := `
		SELECT user_id, client_id, client_secret, access_token, refresh_token, token_type, expiry, updated_at
		FROM credentials
		WHERE user_id = ?
	`

	var (
		c      models.Credential
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.UserID, &c.ClientID, &c.ClientSecret, &c.AccessToken, &c.RefreshToken, &c.TokenType, &expiry, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storageErr("get", "credential", userID, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get", "credential", userID, err)
	}
	if expiry.Valid {
		c.Expiry = expiry.Time
	}
	return &c, nil
}

// Save inserts or replaces the credential for c.UserID.
func (r *CredentialRepository) Save(ctx context.Context, c *models.Credential) error {
	if err := c.Validate(); err != nil {
		return storageErr("save", "credential", c.UserID, err)
	}

	now := r.now().UTC()
	var expiry sql.NullTime
	if !c.Expiry.IsZero() {
		expiry = sql.NullTime{Time: c.Expiry.UTC(), Valid: true}
	}

	query := `
		INSERT INTO credentials (user_id, client_id, client_secret, access_token, refresh_token, token_type, expiry, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			client_id = excluded.client_id,
			client_secret = excluded.client_secret,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		c.UserID, c.ClientID, c.ClientSecret, c.AccessToken, c.RefreshToken, c.TokenType, expiry, now, now,
	)
	if err != nil {
		return storageErr("save", "credential", c.UserID, err)
	}

	c.UpdatedAt = now
	return nil
}

// Delete removes the credential for userID. Deleting a missing credential is not an error.
func (r *CredentialRepository) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM credentials WHERE user_id = ?", userID); err != nil {
		return storageErr("delete", "credential", userID, err)
	}
	return nil
}
