package services

import (
	"context"

	"github.com/desertthunder/ytcat/internal/models"
)

// CredentialStore persists credentials. Implemented by [repositories.CredentialRepository].
type CredentialStore interface {
	Get(ctx context.Context, userID string) (*models.Credential, error)
	Save(ctx context.Context, c *models.Credential) error
	Delete(ctx context.Context, userID string) error
}

// TokenRefresher keeps a credential usable. Implemented by [Authenticator].
type TokenRefresher interface {
	// EnsureValid refreshes cred when it is expired or about to expire.
	EnsureValid(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	// Refresh refreshes cred unconditionally, used after the API rejects a token.
	Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error)
}

// PlaylistFetcher reads playlist data for an authenticated user. Implemented by [Fetcher].
type PlaylistFetcher interface {
	ListPlaylists(ctx context.Context, cred *models.Credential, maxResults int) ([]models.Playlist, error)
	ListPlaylistItems(ctx context.Context, cred *models.Credential, playlistID string, maxResults int) ([]models.Video, error)
	PlaylistsByID(ctx context.Context, cred *models.Credential, ids ...string) ([]models.Playlist, error)
	Channel(ctx context.Context, cred *models.Credential) (*models.Channel, error)
}
