// Package overrides merges manual category choices with automatic classification.
//
// [Store.Resolve] and [Store.ResolveAll] are the only places a playlist's effective category is decided; callers never
// read [models.Playlist.Category] from anywhere else.
package overrides

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/metrics"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/repositories"
	"github.com/desertthunder/ytcat/internal/shared"
)

// Repository persists overrides. Implemented by [repositories.OverrideRepository].
type Repository interface {
	Get(ctx context.Context, userID, playlistID string) (*models.Override, error)
	List(ctx context.Context, userID string) (map[string]models.Override, error)
	Upsert(ctx context.Context, o *models.Override) error
	Delete(ctx context.Context, userID, playlistID string) (bool, error)
}

// Store validates, persists and applies per-user category overrides.
type Store struct {
	repo       Repository
	classifier *classifier.Classifier
	locks      *shared.KeyedMutex
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// NewStore creates a [Store]. metrics may be nil.
func NewStore(repo Repository, c *classifier.Classifier, m *metrics.Metrics, logger *log.Logger) *Store {
	return &Store{
		repo:       repo,
		classifier: c,
		locks:      shared.NewKeyedMutex(),
		metrics:    m,
		logger:     shared.WithLogger(logger, "component", "overrides"),
	}
}

// Taxonomy returns the taxonomy overrides are validated against.
func (s *Store) Taxonomy() *classifier.Taxonomy {
	return s.classifier.Taxonomy()
}

// SetOverride records category as the manual choice for playlistID.
//
// The category is matched case-insensitively against the taxonomy (Other included) and stored in its canonical
// spelling. Unknown categories fail with [shared.ErrInvalidCategory] and nothing is written.
func (s *Store) SetOverride(ctx context.Context, userID, playlistID, category string) (*models.Override, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	name, ok := s.classifier.Taxonomy().Canonical(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %s)", shared.ErrInvalidCategory, category,
			strings.Join(s.classifier.Taxonomy().Names(), ", "))
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	o := &models.Override{UserID: userID, PlaylistID: playlistID, Category: name}
	if err := s.repo.Upsert(ctx, o); err != nil {
		return nil, err
	}

	s.logger.Info("category override set", "user", userID, "playlist", playlistID, "category", name)
	return o, nil
}

// ClearOverride removes the manual choice for playlistID and reports whether one existed.
//
// The playlist reverts to automatic classification the next time it is resolved.
func (s *Store) ClearOverride(ctx context.Context, userID, playlistID string) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	removed, err := s.repo.Delete(ctx, userID, playlistID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("category override cleared", "user", userID, "playlist", playlistID)
	}
	return removed, nil
}

// Resolve returns p's effective category and where it came from.
func (s *Store) Resolve(ctx context.Context, userID string, p models.Playlist) (string, models.CategorySource, error) {
	unlock := s.locks.Lock(userID)
	o, err := s.repo.Get(ctx, userID, p.ID)
	unlock()

	switch {
	case err == nil:
		s.metrics.Resolution(o.Category, string(models.SourceManual))
		return o.Category, models.SourceManual, nil
	case errors.Is(err, repositories.ErrNotFound):
		category := s.classifier.Classify(p)
		s.metrics.Resolution(category, string(models.SourceAutomatic))
		return category, models.SourceAutomatic, nil
	default:
		return "", "", err
	}
}

// ResolveAll returns copies of playlists with Category and CategorySource filled in, using one lookup of the user's
// overrides.
func (s *Store) ResolveAll(ctx context.Context, userID string, playlists []models.Playlist) ([]models.Playlist, error) {
	unlock := s.locks.Lock(userID)
	overrides, err := s.repo.List(ctx, userID)
	unlock()
	if err != nil {
		return nil, err
	}

	out := make([]models.Playlist, len(playlists))
	for i, p := range playlists {
		if o, ok := overrides[p.ID]; ok {
			p.Category, p.CategorySource = o.Category, models.SourceManual
		} else {
			p.Category, p.CategorySource = s.classifier.Classify(p), models.SourceAutomatic
		}
		s.metrics.Resolution(p.Category, string(p.CategorySource))
		out[i] = p
	}
	return out, nil
}

// List returns the user's overrides keyed by playlist id.
func (s *Store) List(ctx context.Context, userID string) (map[string]models.Override, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.repo.List(ctx, userID)
}
