package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/metrics"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/repositories"
	"github.com/desertthunder/ytcat/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/youtube/v3"
)

// ReadOnlyScopes is the complete set of scopes ever requested.
var ReadOnlyScopes = []string{youtube.YoutubeReadonlyScope}

const (
	defaultSafetyMargin = time.Minute
	consentTTL          = 10 * time.Minute
)

// AuthPhase is a step of the browser authorization flow.
type AuthPhase int

const (
	PhaseAwaitingConsent AuthPhase = iota
	PhaseExchangingCode
	PhaseAuthenticated
)

func (p AuthPhase) String() string {
	switch p {
	case PhaseAwaitingConsent:
		return "awaiting_consent"
	case PhaseExchangingCode:
		return "exchanging_code"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Consent is an authorization attempt waiting for the user.
type Consent struct {
	UserID    string
	State     string
	AuthURL   string
	Phase     AuthPhase
	CreatedAt time.Time
}

// Callback carries the query parameters Google redirects back with.
type Callback struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// ConsentFunc presents consent.AuthURL to the user and blocks until the redirect arrives.
type ConsentFunc func(ctx context.Context, consent *Consent) (Callback, error)

// OAuthConfig builds the Google OAuth client from configuration.
//
// Sources are tried in order: inline client-secrets JSON, a client-secrets file, then client id and secret. The
// scopes are always [ReadOnlyScopes] whatever the source says. A non-empty redirect URI in cfg wins over the file's.
func OAuthConfig(cfg shared.YouTubeConfig) (*oauth2.Config, error) {
	var (
		conf *oauth2.Config
		err  error
	)

	switch {
	case cfg.ClientSecretsJSON != "":
		conf, err = google.ConfigFromJSON([]byte(cfg.ClientSecretsJSON), ReadOnlyScopes...)
	case cfg.ClientSecretsPath != "" && fileExists(cfg.ClientSecretsPath):
		var data []byte
		if data, err = os.ReadFile(cfg.ClientSecretsPath); err == nil {
			conf, err = google.ConfigFromJSON(data, ReadOnlyScopes...)
		}
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		conf = &oauth2.Config{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret, Endpoint: google.Endpoint}
	default:
		return nil, fmt.Errorf("%w: set client_id/client_secret, client_secrets_path or GOOGLE_CREDENTIALS",
			shared.ErrMissingCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}

	conf.Scopes = append([]string(nil), ReadOnlyScopes...)
	if cfg.RedirectURI != "" {
		conf.RedirectURL = cfg.RedirectURI
	}
	return conf, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AuthOptions configures an [Authenticator]. Zero values pick defaults.
type AuthOptions struct {
	SafetyMargin time.Duration
	// HTTPClient is used for calls to the token endpoint.
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *log.Logger
	Now        func() time.Time
}

// Authenticator runs the OAuth authorization-code flow and keeps stored credentials fresh.
type Authenticator struct {
	config     *oauth2.Config
	store      CredentialStore
	locks      *shared.KeyedMutex
	flights    singleflight.Group
	margin     time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]*Consent
}

// NewAuthenticator creates an [Authenticator] for config that persists to store.
func NewAuthenticator(config *oauth2.Config, store CredentialStore, opts AuthOptions) *Authenticator {
	a := &Authenticator{
		config:     config,
		store:      store,
		locks:      shared.NewKeyedMutex(),
		margin:     opts.SafetyMargin,
		httpClient: opts.HTTPClient,
		metrics:    opts.Metrics,
		now:        opts.Now,
		pending:    make(map[string]*Consent),
	}
	if a.margin <= 0 {
		a.margin = defaultSafetyMargin
	}
	if a.now == nil {
		a.now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	a.logger = shared.WithLogger(logger, "component", "auth")
	return a
}

func (a *Authenticator) ctx(ctx context.Context) context.Context {
	if a.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	return ctx
}

// BeginConsent starts the flow for userID and returns the URL the user must visit.
func (a *Authenticator) BeginConsent(userID string) (*Consent, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	now := a.now()
	consent := &Consent{
		UserID:    userID,
		State:     state,
		AuthURL:   a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce),
		Phase:     PhaseAwaitingConsent,
		CreatedAt: now,
	}

	a.mu.Lock()
	for s, c := range a.pending {
		if now.Sub(c.CreatedAt) > consentTTL {
			delete(a.pending, s)
		}
	}
	a.pending[state] = consent
	a.mu.Unlock()

	a.logger.Debug("consent started", "user", userID, "phase", consent.Phase)
	return consent, nil
}

// PendingConsent returns a copy of the consent waiting on state, if any.
func (a *Authenticator) PendingConsent(state string) (Consent, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.pending[state]
	if !ok {
		return Consent{}, false
	}
	return *c, true
}

// CompleteConsent handles the redirect for a consent started by [Authenticator.BeginConsent].
//
// The state is single use. A denied consent fails with [shared.ErrAuthFailed] wrapping [shared.ErrConsentDenied]; an
// unknown or stale state fails with [shared.ErrAuthFailed] wrapping [shared.ErrInvalidState].
func (a *Authenticator) CompleteConsent(ctx context.Context, cb Callback) (*models.Credential, error) {
	a.mu.Lock()
	consent, ok := a.pending[cb.State]
	delete(a.pending, cb.State)
	if ok {
		consent.Phase = PhaseExchangingCode
	}
	a.mu.Unlock()

	switch {
	case !ok || cb.State == "":
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, shared.ErrInvalidState)
	case a.now().Sub(consent.CreatedAt) > consentTTL:
		return nil, fmt.Errorf("%w: %w: consent expired", shared.ErrAuthFailed, shared.ErrInvalidState)
	case cb.Error != "":
		return nil, fmt.Errorf("%w: %w: %s %s", shared.ErrAuthFailed, shared.ErrConsentDenied, cb.Error, cb.ErrorDescription)
	case cb.Code == "":
		return nil, fmt.Errorf("%w: callback carried no code", shared.ErrAuthFailed)
	}

	unlock := a.locks.Lock(consent.UserID)
	defer unlock()

	tok, err := a.config.Exchange(a.ctx(ctx), cb.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err)
	}

	base := models.Credential{
		UserID:       consent.UserID,
		ClientID:     a.config.ClientID,
		ClientSecret: a.config.ClientSecret,
	}
	if prev, err := a.store.Get(ctx, consent.UserID); err == nil {
		base.RefreshToken = prev.RefreshToken
	}

	cred := base.WithToken(tok)
	if err := a.store.Save(ctx, cred); err != nil {
		return nil, err
	}

	consent.Phase = PhaseAuthenticated
	a.logger.Info("authorization complete", "user", consent.UserID, "expiry", cred.Expiry)
	return cred, nil
}

// Authenticate returns a usable credential for userID.
//
// A stored credential is refreshed if needed. When there is none, or its refresh token no longer works, the
// interactive flow runs through prompt. A nil prompt turns that case into [shared.ErrNotAuthenticated] or
// [shared.ErrReauthRequired].
func (a *Authenticator) Authenticate(ctx context.Context, userID string, prompt ConsentFunc) (*models.Credential, error) {
	stored, err := a.store.Get(ctx, userID)
	switch {
	case err == nil:
		cred, err := a.EnsureValid(ctx, stored)
		if err == nil {
			return cred, nil
		}
		if !errors.Is(err, shared.ErrReauthRequired) || prompt == nil {
			return nil, err
		}
		a.logger.Warn("stored credential rejected, restarting consent", "user", userID)
	case errors.Is(err, repositories.ErrNotFound):
		if prompt == nil {
			return nil, shared.ErrNotAuthenticated
		}
	default:
		return nil, err
	}

	consent, err := a.BeginConsent(userID)
	if err != nil {
		return nil, err
	}

	cb, err := prompt(ctx, consent)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return a.CompleteConsent(ctx, cb)
}

// EnsureValid returns cred unchanged while it is outside the safety margin, and a refreshed, saved credential
// otherwise. A revoked or expired refresh token fails with [shared.ErrReauthRequired].
func (a *Authenticator) EnsureValid(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil {
		return nil, shared.ErrNotAuthenticated
	}
	if !cred.ExpiresWithin(a.now(), a.margin) {
		return cred, nil
	}
	return a.refresh(ctx, cred, false)
}

// Refresh exchanges cred's refresh token for a new access token regardless of expiry.
//
// If another caller already replaced the rejected access token, the stored credential is returned without calling
// the token endpoint.
func (a *Authenticator) Refresh(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if cred == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return a.refresh(ctx, cred, true)
}

// refresh merges concurrent refreshes of the same access token into one call to the token endpoint.
func (a *Authenticator) refresh(ctx context.Context, cred *models.Credential, force bool) (*models.Credential, error) {
	key := fmt.Sprintf("%s\x00%s\x00%t", cred.UserID, cred.AccessToken, force)
	v, err, joined := a.flights.Do(key, func() (any, error) {
		return a.refreshLocked(ctx, cred, force)
	})
	if joined {
		a.logger.Debug("joined an in-flight refresh", "user", cred.UserID)
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.Credential), nil
}

func (a *Authenticator) refreshLocked(ctx context.Context, cred *models.Credential, force bool) (*models.Credential, error) {
	unlock := a.locks.Lock(cred.UserID)
	defer unlock()

	stored, err := a.store.Get(ctx, cred.UserID)
	switch {
	case err == nil:
		// A concurrent caller may have refreshed while this one waited on the lock.
		if stored.AccessToken != cred.AccessToken && !stored.ExpiresWithin(a.now(), a.margin) {
			return stored, nil
		}
		if !force && !stored.ExpiresWithin(a.now(), a.margin) {
			return stored, nil
		}
		cred = stored
	case errors.Is(err, repositories.ErrNotFound):
		// Signed out since cred was loaded; saving a refreshed token would restore it.
		return nil, fmt.Errorf("%w: credential for %s was removed", shared.ErrNotAuthenticated, cred.UserID)
	default:
		a.logger.Warn("failed to reload credential before refresh", "user", cred.UserID, "error", err)
	}

	if cred.RefreshToken == "" {
		a.metrics.TokenRefresh("no_refresh_token")
		return nil, fmt.Errorf("%w: %w", shared.ErrReauthRequired, shared.ErrNoRefreshToken)
	}

	// An empty access token with a past expiry makes the token source refresh.
	expired := &oauth2.Token{RefreshToken: cred.RefreshToken, Expiry: time.Unix(1, 0)}
	tok, err := a.config.TokenSource(a.ctx(ctx), expired).Token()
	if err != nil {
		return nil, a.refreshFailed(ctx, cred.UserID, err)
	}

	next := cred.WithToken(tok)
	if err := a.store.Save(ctx, next); err != nil {
		return nil, err
	}

	a.metrics.TokenRefresh("ok")
	a.logger.Debug("access token refreshed", "user", cred.UserID, "expiry", next.Expiry)
	return next, nil
}

func (a *Authenticator) refreshFailed(ctx context.Context, userID string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && (retrieveErr.Response == nil || retrieveErr.Response.StatusCode < 500) {
		a.metrics.TokenRefresh("rejected")
		a.logger.Warn("refresh token rejected", "user", userID, "error", retrieveErr.ErrorCode)
		return fmt.Errorf("%w: %v", shared.ErrReauthRequired, err)
	}

	a.metrics.TokenRefresh("error")
	return fmt.Errorf("%w: token refresh: %v", shared.ErrAuthFailed, err)
}

// Status returns the stored credential for userID or [shared.ErrNotAuthenticated].
func (a *Authenticator) Status(ctx context.Context, userID string) (*models.Credential, error) {
	cred, err := a.store.Get(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, shared.ErrNotAuthenticated
	}
	return cred, err
}

// Logout forgets the stored credential for userID.
func (a *Authenticator) Logout(ctx context.Context, userID string) error {
	unlock := a.locks.Lock(userID)
	defer unlock()

	if err := a.store.Delete(ctx, userID); err != nil {
		return err
	}
	a.logger.Info("credential removed", "user", userID)
	return nil
}
