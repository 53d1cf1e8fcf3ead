package overrides

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/repositories"
	"github.com/desertthunder/ytcat/internal/shared"
)

func setupStore(t *testing.T) (*Store, *repositories.OverrideRepository) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := repositories.NewOverrideRepository(db)
	return NewStore(repo, classifier.New(nil), nil, shared.NewLogger(io.Discard)), repo
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	pizza := models.Playlist{ID: "PL1", Title: "Easy pizza recipes"}

	t.Run("override precedence", func(t *testing.T) {
		store, _ := setupStore(t)

		category, source, err := store.Resolve(ctx, "local", pizza)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if category != "Food" || source != models.SourceAutomatic {
			t.Fatalf("expected (Food, automatic), got (%s, %s)", category, source)
		}

		if _, err := store.SetOverride(ctx, "local", pizza.ID, "Career"); err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}

		category, source, err = store.Resolve(ctx, "local", pizza)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if category != "Career" || source != models.SourceManual {
			t.Errorf("expected (Career, manual), got (%s, %s)", category, source)
		}

		removed, err := store.ClearOverride(ctx, "local", pizza.ID)
		if err != nil || !removed {
			t.Fatalf("ClearOverride() = %v, %v", removed, err)
		}

		category, source, err = store.Resolve(ctx, "local", pizza)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if category != "Food" || source != models.SourceAutomatic {
			t.Errorf("expected (Food, automatic) after clear, got (%s, %s)", category, source)
		}
	})

	t.Run("invalid category is rejected and not persisted", func(t *testing.T) {
		store, repo := setupStore(t)

		_, err := store.SetOverride(ctx, "local", "PL1", "Cooking")
		if !errors.Is(err, shared.ErrInvalidCategory) {
			t.Fatalf("expected ErrInvalidCategory, got %v", err)
		}

		all, err := repo.List(ctx, "local")
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 0 {
			t.Errorf("nothing should be persisted, got %+v", all)
		}
	})

	t.Run("category names are canonicalized", func(t *testing.T) {
		store, _ := setupStore(t)

		o, err := store.SetOverride(ctx, "local", "PL1", "health & fitness")
		if err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}
		if o.Category != "Health & Fitness" {
			t.Errorf("expected canonical name, got %s", o.Category)
		}
	})

	t.Run("Other is a valid override", func(t *testing.T) {
		store, _ := setupStore(t)

		if _, err := store.SetOverride(ctx, "local", "PL1", "Other"); err != nil {
			t.Errorf("SetOverride(Other) error = %v", err)
		}
	})

	t.Run("empty playlist id is rejected", func(t *testing.T) {
		store, _ := setupStore(t)

		if _, err := store.SetOverride(ctx, "local", " ", "Food"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("overrides are per user", func(t *testing.T) {
		store, _ := setupStore(t)

		if _, err := store.SetOverride(ctx, "alice", pizza.ID, "Travel"); err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}

		category, source, err := store.Resolve(ctx, "bob", pizza)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if category != "Food" || source != models.SourceAutomatic {
			t.Errorf("bob should see automatic Food, got (%s, %s)", category, source)
		}
	})

	t.Run("ResolveAll", func(t *testing.T) {
		store, _ := setupStore(t)

		playlists := []models.Playlist{
			pizza,
			{ID: "PL2", Title: "xyz123"},
			{ID: "PL3", Title: "Stock market basics"},
		}
		if _, err := store.SetOverride(ctx, "local", "PL2", "Lifestyle"); err != nil {
			t.Fatalf("SetOverride() error = %v", err)
		}

		got, err := store.ResolveAll(ctx, "local", playlists)
		if err != nil {
			t.Fatalf("ResolveAll() error = %v", err)
		}

		want := []struct {
			category string
			source   models.CategorySource
		}{
			{"Food", models.SourceAutomatic},
			{"Lifestyle", models.SourceManual},
			{"Investment", models.SourceAutomatic},
		}
		for i, w := range want {
			if got[i].Category != w.category || got[i].CategorySource != w.source {
				t.Errorf("playlist %s: got (%s, %s), want (%s, %s)",
					got[i].ID, got[i].Category, got[i].CategorySource, w.category, w.source)
			}
		}

		if playlists[0].Category != "" {
			t.Error("ResolveAll should not mutate its input")
		}
	})

	t.Run("clearing a missing override", func(t *testing.T) {
		store, _ := setupStore(t)

		removed, err := store.ClearOverride(ctx, "local", "nope")
		if err != nil || removed {
			t.Errorf("ClearOverride() = %v, %v", removed, err)
		}
	})
}
