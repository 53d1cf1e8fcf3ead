// Package server provides HTTP routing, middleware, and OAuth callback handling for the CLI and the web API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so a request with the wrong method gets a
// 405 and path wildcards are available through [http.Request.PathValue].
//
// # Middleware
//
//   - [RequestID] assigns or propagates X-Request-ID
//   - [Logging] logs one structured line per request
//   - [Recover] converts panics into 500 responses
//   - [Instrument] records request durations by route pattern
//
// # OAuth Callback Handler
//
// [OAuthHandler] receives the authorization code redirect. It validates the state parameter (CSRF protection) and
// passes the code or error through a channel. It only processes one callback to prevent replay attacks.
//
// [LocalConsent] wraps the handler in a short-lived server on the redirect URI's host so `ytcat auth login` can
// complete the browser flow and return to the terminal.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
