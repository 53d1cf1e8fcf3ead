// Package web serves the JSON API behind `ytcat serve`.
//
// # Routes
//
//	GET    /api/auth                   start consent, returns {auth_url}
//	GET    /api/auth/callback          OAuth redirect target, redirects to /
//	POST   /api/auth/logout            forget the stored credential
//	GET    /api/playlists              categorized library (?max_results=N)
//	GET    /api/playlist/{id}          videos of one playlist (?max_results=N, default 25)
//	POST   /api/playlist/{id}/category set a manual category, body {"category": "..."}
//	DELETE /api/playlist/{id}/category clear the manual category
//	GET    /api/categories             taxonomy names and keywords
//	GET    /api/health                 {status, authenticated}
//	GET    /api/info                   app name, version, categories
//	GET    /metrics                    Prometheus exposition
//
// # Sessions
//
// Each browser carries a signed securecookie ([Sessions]) holding its user id and the OAuth state of the
// consent it started, so a callback is only accepted by the browser that began the flow. In single-user mode every
// session maps to [shared.LocalUser] and shares the CLI's credential and overrides; in multi-user mode each new
// session is given a uuid.
//
// # Errors
//
// Errors are JSON objects {"error", "code", "reauth"}. Authorization failures are 401 with reauth set, quota
// exhaustion is 429, invalid input is 400, unknown playlists are 404 and upstream API failures are 502.
package web

import (
	"context"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/metrics"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/server"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/tasks"
)

const (
	appName              = "YouTube Playlist Organizer"
	defaultPlaylistLimit = 50
	defaultVideoLimit    = 25
)

// Authenticator is the part of [services.Authenticator] the API drives.
type Authenticator interface {
	BeginConsent(userID string) (*services.Consent, error)
	CompleteConsent(ctx context.Context, cb services.Callback) (*models.Credential, error)
	Status(ctx context.Context, userID string) (*models.Credential, error)
	Logout(ctx context.Context, userID string) error
}

// Options wires an [App].
type Options struct {
	Engine    tasks.Engine
	Auth      Authenticator
	Taxonomy  *classifier.Taxonomy
	Quota     *services.QuotaMeter
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	SecretKey string
	// SecureCookie marks the session cookie Secure, for deployments behind TLS.
	SecureCookie bool
	MultiUser    bool
	Version      string
	MaxPlaylists int
	MaxVideos    int
}

// App holds the API handlers.
type App struct {
	engine       tasks.Engine
	auth         Authenticator
	taxonomy     *classifier.Taxonomy
	quota        *services.QuotaMeter
	metrics      *metrics.Metrics
	logger       *log.Logger
	sessions     *Sessions
	multiUser    bool
	version      string
	maxPlaylists int
	maxVideos    int
}

// New creates an [App] from opts.
func New(opts Options) (*App, error) {
	sessions, err := NewSessions(opts.SecretKey, opts.SecureCookie)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.SecretKey == "" {
		logger.Warn("no secret key configured; sessions will not survive a restart")
	}

	a := &App{
		engine:       opts.Engine,
		auth:         opts.Auth,
		taxonomy:     opts.Taxonomy,
		quota:        opts.Quota,
		metrics:      opts.Metrics,
		logger:       shared.WithLogger(logger, "component", "web"),
		sessions:     sessions,
		multiUser:    opts.MultiUser,
		version:      opts.Version,
		maxPlaylists: opts.MaxPlaylists,
		maxVideos:    opts.MaxVideos,
	}
	if a.taxonomy == nil {
		a.taxonomy = classifier.DefaultTaxonomy()
	}
	if a.maxPlaylists <= 0 {
		a.maxPlaylists = defaultPlaylistLimit
	}
	if a.maxVideos <= 0 {
		a.maxVideos = defaultVideoLimit
	}
	if a.version == "" {
		a.version = "dev"
	}
	return a, nil
}

// Handler returns the router with every route and middleware registered.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(
		server.RequestID(),
		server.Logging(a.logger),
		server.Recover(a.logger),
		server.Instrument(a.metrics),
	)

	router.HandleFunc(http.MethodGet, "/{$}", a.handleIndex)
	router.HandleFunc(http.MethodGet, "/api/auth", a.handleAuth)
	router.HandleFunc(http.MethodGet, "/api/auth/callback", a.handleAuthCallback)
	router.HandleFunc(http.MethodPost, "/api/auth/logout", a.handleLogout)
	router.HandleFunc(http.MethodGet, "/api/playlists", a.handlePlaylists)
	router.HandleFunc(http.MethodGet, "/api/playlist/{id}", a.handlePlaylistVideos)
	router.HandleFunc(http.MethodPost, "/api/playlist/{id}/category", a.handleSetCategory)
	router.HandleFunc(http.MethodDelete, "/api/playlist/{id}/category", a.handleClearCategory)
	router.HandleFunc(http.MethodGet, "/api/categories", a.handleCategories)
	router.HandleFunc(http.MethodGet, "/api/health", a.handleHealth)
	router.HandleFunc(http.MethodGet, "/api/info", a.handleInfo)
	router.Handle(http.MethodGet, "/metrics", a.metrics.Handler())

	return router
}

// session returns the caller's session and user id, issuing a user id in multi-user mode.
func (a *App) session(w http.ResponseWriter, r *http.Request) (Session, string) {
	sess := a.sessions.Read(r)
	if !a.multiUser {
		return sess, shared.LocalUser
	}
	if sess.UserID == "" {
		sess.UserID = shared.GenerateID()
		if err := a.sessions.Write(w, sess); err != nil {
			a.logger.Warn("failed to write session", "error", err)
		}
	}
	return sess, sess.UserID
}
