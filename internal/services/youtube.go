package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/metrics"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/retry"
	"github.com/desertthunder/ytcat/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// maxPageSize is the largest maxResults the list endpoints accept.
const maxPageSize = 50

var errUnauthorized = errors.New("access token rejected")

// transientError marks a failure worth retrying.
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func isTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// FetcherOptions configures a [Fetcher]. Zero values pick defaults.
type FetcherOptions struct {
	Retry             retry.Config
	RequestsPerSecond float64
	Burst             int
	Quota             *QuotaMeter
	// Endpoint overrides the API base URL, e.g. a test server.
	Endpoint string
	// HTTPClient is the transport under the OAuth client.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *log.Logger
}

// FetcherOptionsFromConfig maps the [fetch] config section onto [FetcherOptions].
func FetcherOptionsFromConfig(cfg shared.FetchConfig) FetcherOptions {
	r := retry.DefaultConfig()
	r.MaxAttempts = cfg.MaxAttempts
	if cfg.InitialBackoff > 0 {
		r.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		r.MaxBackoff = cfg.MaxBackoff
	}
	return FetcherOptions{
		Retry:             r,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Quota:             NewQuotaMeter(cfg.DailyQuota, cfg.QuotaReserve),
		Endpoint:          cfg.Endpoint,
	}
}

// Fetcher reads playlists, playlist items and channel data from the YouTube Data API.
//
// It holds no per-user state and is safe for concurrent use.
type Fetcher struct {
	auth       TokenRefresher
	retry      retry.Config
	limiter    *rate.Limiter
	quota      *QuotaMeter
	endpoint   string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *log.Logger
}

// NewFetcher creates a [Fetcher] that keeps credentials valid through auth.
func NewFetcher(auth TokenRefresher, opts FetcherOptions) *Fetcher {
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Quota == nil {
		opts.Quota = NewQuotaMeter(10000, 0)
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &Fetcher{
		auth:       auth,
		retry:      opts.Retry,
		limiter:    rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		quota:      opts.Quota,
		endpoint:   opts.Endpoint,
		httpClient: opts.HTTPClient,
		metrics:    opts.Metrics,
		logger:     shared.WithLogger(logger, "component", "fetcher"),
	}
}

// Quota exposes the fetcher's quota estimate.
func (f *Fetcher) Quota() *QuotaMeter {
	return f.quota
}

// ListPlaylists returns up to maxResults playlists owned by the authenticated user, in API order.
func (f *Fetcher) ListPlaylists(ctx context.Context, cred *models.Credential, maxResults int) ([]models.Playlist, error) {
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", shared.ErrInvalidArgument, maxResults)
	}

	cur := cred
	playlists, err := collect(ctx, maxResults, func(ctx context.Context, token string, size int64) ([]models.Playlist, string, error) {
		var resp *youtube.PlaylistListResponse
		err := f.call(ctx, &cur, "playlists.list", func(ctx context.Context, svc *youtube.Service) error {
			call := svc.Playlists.List([]string{"snippet", "contentDetails"}).Mine(true).MaxResults(size).Context(ctx)
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, "", err
		}

		page := make([]models.Playlist, 0, len(resp.Items))
		for _, item := range resp.Items {
			page = append(page, playlistFromAPI(item))
		}
		return page, resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	f.logger.Debug("playlists fetched", "user", cred.UserID, "count", len(playlists))
	return playlists, nil
}

// ListPlaylistItems returns up to maxResults videos of playlistID. Position is the 0-based index in playlist order.
func (f *Fetcher) ListPlaylistItems(ctx context.Context, cred *models.Credential, playlistID string, maxResults int) ([]models.Video, error) {
	if strings.TrimSpace(playlistID) == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: max results must be positive, got %d", shared.ErrInvalidArgument, maxResults)
	}

	cur := cred
	videos, err := collect(ctx, maxResults, func(ctx context.Context, token string, size int64) ([]models.Video, string, error) {
		var resp *youtube.PlaylistItemListResponse
		err := f.call(ctx, &cur, "playlistItems.list", func(ctx context.Context, svc *youtube.Service) error {
			call := svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(size).
				Context(ctx)
			if token != "" {
				call = call.PageToken(token)
			}
			var err error
			resp, err = call.Do()
			return err
		})
		if err != nil {
			return nil, "", err
		}

		page := make([]models.Video, 0, len(resp.Items))
		for _, item := range resp.Items {
			page = append(page, videoFromAPI(item))
		}
		return page, resp.NextPageToken, nil
	})
	if err != nil {
		return nil, err
	}

	for i := range videos {
		videos[i].Position = i
	}

	f.logger.Debug("playlist items fetched", "playlist", playlistID, "count", len(videos))
	return videos, nil
}

// PlaylistsByID returns the playlists with the given ids that the API could find, in API order.
func (f *Fetcher) PlaylistsByID(ctx context.Context, cred *models.Credential, ids ...string) ([]models.Playlist, error) {
	cur := cred
	var out []models.Playlist

	for start := 0; start < len(ids); start += maxPageSize {
		chunk := ids[start:min(start+maxPageSize, len(ids))]

		var resp *youtube.PlaylistListResponse
		err := f.call(ctx, &cur, "playlists.list", func(ctx context.Context, svc *youtube.Service) error {
			var err error
			resp, err = svc.Playlists.List([]string{"snippet", "contentDetails"}).
				Id(chunk...).
				MaxResults(maxPageSize).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			out = append(out, playlistFromAPI(item))
		}
	}
	return out, nil
}

// Channel returns the authenticated user's channel.
func (f *Fetcher) Channel(ctx context.Context, cred *models.Credential) (*models.Channel, error) {
	cur := cred
	var resp *youtube.ChannelListResponse
	err := f.call(ctx, &cur, "channels.list", func(ctx context.Context, svc *youtube.Service) error {
		var err error
		resp, err = svc.Channels.List([]string{"snippet", "statistics", "contentDetails"}).Mine(true).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, shared.ErrChannelNotFound
	}
	return channelFromAPI(resp.Items[0]), nil
}

// collect follows page tokens until the cursor is empty or maxResults items are gathered.
//
// The final page is truncated. A cancelled ctx between pages returns ctx.Err() and nothing else.
func collect[T any](ctx context.Context, maxResults int, page func(ctx context.Context, token string, size int64) ([]T, string, error)) ([]T, error) {
	out := make([]T, 0, min(maxResults, maxPageSize))
	token := ""

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size := int64(min(maxPageSize, maxResults-len(out)))
		items, next, err := page(ctx, token, size)
		if err != nil {
			return nil, err
		}

		out = append(out, items[:min(len(items), maxResults-len(out))]...)
		if len(out) >= maxResults || next == "" {
			return out, nil
		}
		token = next
	}
}

// call runs one API request with pacing, quota accounting, retries and the single refresh allowed after a 401.
// cur is replaced whenever the credential is refreshed.
func (f *Fetcher) call(ctx context.Context, cur **models.Credential, endpoint string, fn func(context.Context, *youtube.Service) error) error {
	cred, err := f.auth.EnsureValid(ctx, *cur)
	if err != nil {
		return err
	}
	*cur = cred

	refreshed := false
	for {
		svc, err := f.service(ctx, *cur)
		if err != nil {
			return err
		}

		err = f.attempt(ctx, endpoint, svc, fn)
		if !errors.Is(err, errUnauthorized) {
			return err
		}
		if refreshed {
			return fmt.Errorf("%w: %s rejected the refreshed token", shared.ErrAuthFailed, endpoint)
		}

		f.logger.Warn("access token rejected, refreshing", "endpoint", endpoint, "user", (*cur).UserID)
		cred, err := f.auth.Refresh(ctx, *cur)
		if err != nil {
			return err
		}
		*cur = cred
		refreshed = true
	}
}

func (f *Fetcher) attempt(ctx context.Context, endpoint string, svc *youtube.Service, fn func(context.Context, *youtube.Service) error) error {
	cfg := f.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		f.metrics.APIRetry(endpoint)
		f.logger.Warn("transient API failure, retrying", "endpoint", endpoint, "attempt", attempt, "wait", wait, "error", err)
	}

	err := retry.Do(ctx, cfg, isTransient, func(ctx context.Context) error {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := f.quota.Reserve(listCost); err != nil {
			f.metrics.APICall(endpoint, "quota_local")
			return err
		}
		f.metrics.Quota(listCost, f.quota.Remaining())

		err := classifyAPIError(endpoint, fn(ctx, svc))
		f.metrics.APICall(endpoint, outcome(err))
		if errors.Is(err, shared.ErrQuotaExceeded) {
			f.quota.MarkExhausted()
			f.logger.Error("quota exceeded", "endpoint", endpoint, "resets_at", f.quota.ResetsAt())
		}
		return err
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Errorf("%w: %s failed after %d attempts: %v", shared.ErrFetchFailed, endpoint, exhausted.Attempts, exhausted.Err)
	}
	return err
}

func (f *Fetcher) service(ctx context.Context, cred *models.Credential) (*youtube.Service, error) {
	base := ctx
	if f.httpClient != nil {
		base = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}

	opts := []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(base, oauth2.StaticTokenSource(cred.Token())))}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}

	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create YouTube client: %v", shared.ErrFetchFailed, err)
	}
	return svc, nil
}

var quotaReasons = []string{"quotaExceeded", "dailyLimitExceeded", "dailyLimitExceededUnreg"}
var rateReasons = []string{"rateLimitExceeded", "userRateLimitExceeded"}

// classifyAPIError maps a client error onto the fetcher's failure kinds.
func classifyAPIError(endpoint string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return &transientError{err: fmt.Errorf("%s: %w", endpoint, err)}
	}

	switch {
	case gerr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", errUnauthorized, gerr.Message)
	case gerr.Code == http.StatusForbidden && hasReason(gerr, quotaReasons...):
		return fmt.Errorf("%w (%s)", shared.ErrQuotaExceeded, endpoint)
	case gerr.Code == http.StatusForbidden && hasReason(gerr, rateReasons...):
		return &transientError{err: gerr}
	case gerr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, gerr.Message)
	case gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500:
		return &transientError{err: gerr}
	default:
		return fmt.Errorf("%w: %s: %v", shared.ErrFetchFailed, endpoint, gerr)
	}
}

func hasReason(gerr *googleapi.Error, reasons ...string) bool {
	for _, item := range gerr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	for _, r := range reasons {
		if strings.Contains(gerr.Body, `"`+r+`"`) {
			return true
		}
	}
	return false
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errUnauthorized):
		return "unauthorized"
	case errors.Is(err, shared.ErrQuotaExceeded):
		return "quota"
	case isTransient(err):
		return "transient"
	default:
		return "error"
	}
}

func playlistFromAPI(p *youtube.Playlist) models.Playlist {
	out := models.Playlist{ID: p.Id}
	if s := p.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.PublishedAt = parseTime(s.PublishedAt)
		out.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	if p.ContentDetails != nil {
		out.VideoCount = p.ContentDetails.ItemCount
	}
	return out
}

func videoFromAPI(item *youtube.PlaylistItem) models.Video {
	var out models.Video
	if s := item.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.PublishedAt = parseTime(s.PublishedAt)
		out.ThumbnailURL = bestThumbnail(s.Thumbnails)
		if s.ResourceId != nil {
			out.VideoID = s.ResourceId.VideoId
		}
	}
	if out.VideoID == "" && item.ContentDetails != nil {
		out.VideoID = item.ContentDetails.VideoId
	}
	return out
}

func channelFromAPI(c *youtube.Channel) *models.Channel {
	out := &models.Channel{ID: c.Id}
	if s := c.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.ThumbnailURL = bestThumbnail(s.Thumbnails)
	}
	if st := c.Statistics; st != nil {
		out.SubscriberCount = st.SubscriberCount
		out.VideoCount = st.VideoCount
		out.ViewCount = st.ViewCount
	}
	if cd := c.ContentDetails; cd != nil && cd.RelatedPlaylists != nil {
		out.RelatedPlaylists = models.RelatedPlaylists{
			Likes:   cd.RelatedPlaylists.Likes,
			Uploads: cd.RelatedPlaylists.Uploads,
		}
	}
	return out
}

func bestThumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default, t.Standard, t.Maxres} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
