package server

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
)

// OAuthResult contains the redirect parameters of an OAuth authorization flow.
type OAuthResult struct {
	Callback services.Callback
	err      error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler captures the OAuth2 redirect for the authorization code flow.
// Implements the Handler interface for registration with a Router.
//
// The code exchange happens in [services.Authenticator.CompleteConsent]; the handler only checks the state and hands
// the query parameters over.
type OAuthHandler struct {
	path        string
	state       string
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler serving path that accepts a single redirect carrying state.
func NewOAuthHandler(path, state string) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	return &OAuthHandler{
		path:       path,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	q := r.URL.Query()
	cb := services.Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	if cb.State != h.state {
		h.Send(OAuthResult{err: shared.ErrInvalidState})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	if cb.Code == "" {
		h.Send(OAuthResult{Callback: cb})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	h.Send(OAuthResult{Callback: cb})

	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `
<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #ff0033; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`)
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

// LocalConsent is a [services.ConsentFunc] source for the CLI: it serves the redirect URI on localhost, opens the
// browser and waits for Google to redirect back.
type LocalConsent struct {
	// RedirectURL is the OAuth client's redirect URI; its host and path decide where to listen.
	RedirectURL string
	// Listener overrides the listener derived from RedirectURL.
	Listener net.Listener
	// Open shows the consent URL. Defaults to [shared.OpenBrowser].
	Open    func(url string) error
	Timeout time.Duration
	Out     io.Writer
	Logger  *log.Logger
}

// Prompt implements [services.ConsentFunc].
func (l *LocalConsent) Prompt(ctx context.Context, consent *services.Consent) (services.Callback, error) {
	u, err := url.Parse(l.RedirectURL)
	if err != nil || u.Host == "" {
		return services.Callback{}, fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, l.RedirectURL)
	}

	logger := l.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	out := l.Out
	if out == nil {
		out = io.Discard
	}
	open := l.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	ln := l.Listener
	if ln == nil {
		if ln, err = net.Listen("tcp", u.Host); err != nil {
			return services.Callback{}, fmt.Errorf("failed to listen for the oauth redirect: %w", err)
		}
	}

	handler := NewOAuthHandler(u.Path, consent.State)
	router := NewBasicRouter()
	router.Use(Logging(logger))
	router.Handler(handler)

	srvCtx, stop := context.WithCancel(ctx)
	defer stop()
	serveErrs := make(chan error, 1)
	go func() {
		serveErrs <- Serve(srvCtx, &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}, ln, logger)
	}()

	fmt.Fprintln(out, "→ Opening browser for Google sign-in...")
	if err := open(consent.AuthURL); err != nil {
		logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintln(out, "⚠ Could not open browser automatically.")
		fmt.Fprintf(out, "Please open this URL in your browser:\n%s\n\n", consent.AuthURL)
	}
	fmt.Fprintf(out, "→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serveErrs:
		if err == nil {
			err = http.ErrServerClosed
		}
		return services.Callback{}, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return services.Callback{}, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return services.Callback{}, ctx.Err()
	}

	stop()
	<-serveErrs

	if result.Error() != nil {
		return services.Callback{}, result.Error()
	}
	return result.Callback, nil
}
