package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/overrides"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
)

// Authorizer hands out a usable credential for a user. Implemented by [services.Authenticator].
type Authorizer interface {
	Authenticate(ctx context.Context, userID string, prompt services.ConsentFunc) (*models.Credential, error)
}

// Engine defines the categorization pipeline used by the CLI, TUI and web API.
type Engine interface {
	// Library fetches the channel and its playlists and resolves every playlist's category.
	Library(ctx context.Context, userID string, maxPlaylists int, progress chan<- ProgressUpdate) (*models.Library, error)

	// Videos fetches up to maxVideos items of one playlist in playlist order.
	Videos(ctx context.Context, userID, playlistID string, maxVideos int, progress chan<- ProgressUpdate) ([]models.Video, error)

	// SetCategory records a manual category for a playlist.
	SetCategory(ctx context.Context, userID, playlistID, category string) (*models.Override, error)

	// ClearCategory removes a manual category, reporting whether one existed.
	ClearCategory(ctx context.Context, userID, playlistID string) (bool, error)

	// Resolve returns p with its effective category and source filled in.
	Resolve(ctx context.Context, userID string, p models.Playlist) (models.Playlist, error)
}

// ReviewItem is an automatically categorized playlist whose result deserves a second look.
type ReviewItem struct {
	Playlist models.Playlist   `json:"playlist"`
	Result   classifier.Result `json:"result"`
	Reasons  []string          `json:"reasons"`
}

// Organizer implements [Engine] on top of the authenticator, the fetcher and the override store.
type Organizer struct {
	auth    Authorizer
	fetcher services.PlaylistFetcher
	store   *overrides.Store
	logger  *log.Logger
}

// NewOrganizer creates a new Organizer with the provided services.
func NewOrganizer(auth Authorizer, fetcher services.PlaylistFetcher, store *overrides.Store, logger *log.Logger) *Organizer {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Organizer{
		auth:    auth,
		fetcher: fetcher,
		store:   store,
		logger:  shared.WithLogger(logger, "component", "organizer"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (o *Organizer) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Taxonomy returns the categories playlists are sorted into.
func (o *Organizer) Taxonomy() *classifier.Taxonomy {
	return o.store.Taxonomy()
}

func (o *Organizer) credential(ctx context.Context, userID string, progress chan<- ProgressUpdate) (*models.Credential, error) {
	o.sendProgress(progress, authenticateUpdate(userID))
	return o.auth.Authenticate(ctx, userID, nil)
}

// Library fetches and categorizes userID's playlists.
//
// A channel without related playlists, or an account without a channel, yields no system playlists.
func (o *Organizer) Library(ctx context.Context, userID string, maxPlaylists int, progress chan<- ProgressUpdate) (*models.Library, error) {
	cred, err := o.credential(ctx, userID, progress)
	if err != nil {
		return nil, err
	}

	lib := &models.Library{}

	o.sendProgress(progress, channelUpdate(nil))
	ch, err := o.fetcher.Channel(ctx, cred)
	switch {
	case err == nil:
		lib.Channel = ch
		o.sendProgress(progress, channelUpdate(ch))
	case errors.Is(err, shared.ErrChannelNotFound):
		o.logger.Warn("account has no channel", "user", userID)
	default:
		return nil, err
	}

	o.sendProgress(progress, playlistsUpdate(-1))
	playlists, err := o.fetcher.ListPlaylists(ctx, cred, maxPlaylists)
	if err != nil {
		return nil, err
	}
	o.sendProgress(progress, playlistsUpdate(len(playlists)))

	var system []models.Playlist
	if ch != nil {
		if ids := ch.RelatedPlaylists.IDs(); len(ids) > 0 {
			o.sendProgress(progress, systemPlaylistsUpdate(ids))
			system, err = o.fetcher.PlaylistsByID(ctx, cred, ids...)
			if err != nil {
				return nil, err
			}
			for i := range system {
				system[i].System = true
			}
		}
	}

	total := len(playlists) + len(system)
	o.sendProgress(progress, classifyUpdate(0, total))

	if lib.UserPlaylists, err = o.store.ResolveAll(ctx, userID, playlists); err != nil {
		return nil, err
	}
	if lib.SystemPlaylists, err = o.store.ResolveAll(ctx, userID, system); err != nil {
		return nil, err
	}
	lib.Summary = Summarize(o.Taxonomy(), lib.UserPlaylists, lib.SystemPlaylists)

	o.sendProgress(progress, classifyUpdate(total, total))
	o.logger.Info("library categorized", "user", userID, "playlists", len(playlists), "system", len(system))
	return lib, nil
}

// Videos fetches the items of playlistID.
func (o *Organizer) Videos(ctx context.Context, userID, playlistID string, maxVideos int, progress chan<- ProgressUpdate) ([]models.Video, error) {
	cred, err := o.credential(ctx, userID, progress)
	if err != nil {
		return nil, err
	}

	o.sendProgress(progress, videosUpdate(playlistID, -1))
	videos, err := o.fetcher.ListPlaylistItems(ctx, cred, playlistID, maxVideos)
	if err != nil {
		return nil, err
	}
	o.sendProgress(progress, videosUpdate(playlistID, len(videos)))
	return videos, nil
}

// SetCategory records a manual category for playlistID.
func (o *Organizer) SetCategory(ctx context.Context, userID, playlistID, category string) (*models.Override, error) {
	return o.store.SetOverride(ctx, userID, playlistID, category)
}

// ClearCategory removes the manual category for playlistID.
func (o *Organizer) ClearCategory(ctx context.Context, userID, playlistID string) (bool, error) {
	return o.store.ClearOverride(ctx, userID, playlistID)
}

// Resolve applies the user's override for p, or the classifier when there is none.
func (o *Organizer) Resolve(ctx context.Context, userID string, p models.Playlist) (models.Playlist, error) {
	category, source, err := o.store.Resolve(ctx, userID, p)
	if err != nil {
		return p, err
	}
	p.Category, p.CategorySource = category, source
	return p, nil
}

// Review explains every automatically categorized playlist in lib that needs a human look, in library order.
func (o *Organizer) Review(lib *models.Library) []ReviewItem {
	c := classifier.New(o.Taxonomy())

	var items []ReviewItem
	for _, group := range [][]models.Playlist{lib.UserPlaylists, lib.SystemPlaylists} {
		for _, p := range group {
			if p.CategorySource != models.SourceAutomatic {
				continue
			}
			res := c.Explain(p)
			if !res.NeedsReview() {
				continue
			}
			items = append(items, ReviewItem{Playlist: p, Result: res, Reasons: reviewReasons(res)})
		}
	}
	return items
}

func reviewReasons(res classifier.Result) []string {
	var reasons []string
	if res.Category == classifier.Other {
		reasons = append(reasons, "no keywords matched")
	}
	if res.Tied {
		var rivals []string
		for _, s := range res.Scores {
			if s.Value() == res.Score && s.Category != res.Category {
				rivals = append(rivals, s.Category)
			}
		}
		reasons = append(reasons, "tied with "+strings.Join(rivals, ", "))
	}
	if res.Category != classifier.Other && res.Confidence() < 0.3 {
		reasons = append(reasons, fmt.Sprintf("low confidence (%.0f%%)", res.Confidence()*100))
	}
	return reasons
}

// Summarize counts resolved playlists per category. Categories follow taxonomy order and empty ones are omitted.
func Summarize(tax *classifier.Taxonomy, groups ...[]models.Playlist) []models.CategorySummary {
	byCategory := make(map[string]*models.CategorySummary)
	for _, group := range groups {
		for _, p := range group {
			s, ok := byCategory[p.Category]
			if !ok {
				s = &models.CategorySummary{Category: p.Category}
				byCategory[p.Category] = s
			}
			s.PlaylistCount++
			s.TotalVideos += p.VideoCount
			s.PlaylistIDs = append(s.PlaylistIDs, p.ID)
		}
	}

	out := make([]models.CategorySummary, 0, len(byCategory))
	for _, s := range byCategory {
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := tax.Rank(out[i].Category), tax.Rank(out[j].Category)
		if ri != rj {
			return ri < rj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// FilterByCategory returns the playlists resolved to category, matched case-insensitively.
func FilterByCategory(playlists []models.Playlist, category string) []models.Playlist {
	var out []models.Playlist
	for _, p := range playlists {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out
}
