package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()
	expiry := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	newCredential := func() *models.Credential {
		return &models.Credential{
			UserID:       "local",
			ClientID:     "client",
			ClientSecret: "secret",
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			TokenType:    "Bearer",
			Expiry:       expiry,
		}
	}

	t.Run("Save and Get", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Save(ctx, newCredential()); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		got, err := repo.Get(ctx, "local")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "access-1" || got.RefreshToken != "refresh-1" || got.ClientSecret != "secret" {
			t.Errorf("unexpected credential %+v", got)
		}
		if !got.Expiry.Equal(expiry) {
			t.Errorf("expected expiry %s, got %s", expiry, got.Expiry)
		}
	})

	t.Run("Save replaces existing row", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		c := newCredential()
		if err := repo.Save(ctx, c); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		c.AccessToken = "access-2"
		c.Expiry = expiry.Add(time.Hour)
		if err := repo.Save(ctx, c); err != nil {
			t.Fatalf("failed to update credential: %v", err)
		}

		got, err := repo.Get(ctx, "local")
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got.AccessToken != "access-2" || !got.Expiry.Equal(expiry.Add(time.Hour)) {
			t.Errorf("credential not replaced: %+v", got)
		}
	})

	t.Run("users are isolated", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		c := newCredential()
		if err := repo.Save(ctx, c); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		if _, err := repo.Get(ctx, "someone-else"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for another user, got %v", err)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		_, err := repo.Get(ctx, "nobody")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}

		var storErr *StorageError
		if !errors.As(err, &storErr) || storErr.Op != "get" || storErr.Entity != "credential" {
			t.Errorf("expected StorageError with context, got %#v", err)
		}
	})

	t.Run("Save rejects invalid credential", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		if err := repo.Save(ctx, &models.Credential{UserID: "local"}); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))
		if err := repo.Save(ctx, newCredential()); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		if err := repo.Delete(ctx, "local"); err != nil {
			t.Fatalf("failed to delete credential: %v", err)
		}
		if _, err := repo.Get(ctx, "local"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected credential to be gone, got %v", err)
		}
		if err := repo.Delete(ctx, "local"); err != nil {
			t.Errorf("deleting twice should not fail: %v", err)
		}
	})
}

func TestOverrideRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Upsert and Get", func(t *testing.T) {
		repo := NewOverrideRepository(setupTestDB(t))

		o := &models.Override{UserID: "local", PlaylistID: "PL1", Category: "Career"}
		if err := repo.Upsert(ctx, o); err != nil {
			t.Fatalf("failed to upsert override: %v", err)
		}
		if o.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be stamped")
		}

		got, err := repo.Get(ctx, "local", "PL1")
		if err != nil {
			t.Fatalf("failed to get override: %v", err)
		}
		if got.Category != "Career" {
			t.Errorf("expected Career, got %s", got.Category)
		}
	})

	t.Run("Upsert replaces category", func(t *testing.T) {
		repo := NewOverrideRepository(setupTestDB(t))

		for _, category := range []string{"Career", "Travel"} {
			o := &models.Override{UserID: "local", PlaylistID: "PL1", Category: category}
			if err := repo.Upsert(ctx, o); err != nil {
				t.Fatalf("failed to upsert override: %v", err)
			}
		}

		all, err := repo.List(ctx, "local")
		if err != nil {
			t.Fatalf("failed to list overrides: %v", err)
		}
		if len(all) != 1 || all["PL1"].Category != "Travel" {
			t.Errorf("unexpected overrides %+v", all)
		}
	})

	t.Run("List is scoped to user", func(t *testing.T) {
		repo := NewOverrideRepository(setupTestDB(t))

		overrides := []*models.Override{
			{UserID: "a", PlaylistID: "PL1", Category: "Food"},
			{UserID: "a", PlaylistID: "PL2", Category: "Career"},
			{UserID: "b", PlaylistID: "PL1", Category: "Travel"},
		}
		for _, o := range overrides {
			if err := repo.Upsert(ctx, o); err != nil {
				t.Fatalf("failed to upsert override: %v", err)
			}
		}

		got, err := repo.List(ctx, "a")
		if err != nil {
			t.Fatalf("failed to list overrides: %v", err)
		}
		if len(got) != 2 || got["PL1"].Category != "Food" {
			t.Errorf("unexpected overrides for a: %+v", got)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewOverrideRepository(setupTestDB(t))

		if err := repo.Upsert(ctx, &models.Override{UserID: "local", PlaylistID: "PL1", Category: "Food"}); err != nil {
			t.Fatalf("failed to upsert override: %v", err)
		}

		removed, err := repo.Delete(ctx, "local", "PL1")
		if err != nil || !removed {
			t.Fatalf("expected removal, got %v, %v", removed, err)
		}

		removed, err = repo.Delete(ctx, "local", "PL1")
		if err != nil || removed {
			t.Errorf("second delete should report nothing removed, got %v, %v", removed, err)
		}

		if _, err := repo.Get(ctx, "local", "PL1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Upsert rejects invalid override", func(t *testing.T) {
		repo := NewOverrideRepository(setupTestDB(t))
		if err := repo.Upsert(ctx, &models.Override{UserID: "local", PlaylistID: " "}); err == nil {
			t.Error("expected validation error")
		}
	})
}
