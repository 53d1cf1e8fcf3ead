// Package services talks to Google: the OAuth token lifecycle and the YouTube Data API.
//
// # Authenticator
//
// [Authenticator] owns every change to a [models.Credential]. The browser flow is an explicit state machine:
//
//	AwaitingConsent --(callback with code)--> ExchangingCode --(token saved)--> Authenticated
//
// [Authenticator.BeginConsent] issues the consent URL and a single-use state; [Authenticator.CompleteConsent] is
// called with the callback parameters (from the CLI's local listener or the web handler) and exchanges the code.
// [Authenticator.EnsureValid] refreshes a token that is expired or inside the safety margin. Refreshes are serialized
// per user so two requests never spend the same refresh token concurrently. Every new token is saved before it is
// returned.
//
// Only the youtube.readonly scope is ever requested.
//
// # Fetcher
//
// [Fetcher] pages through playlists.list, playlistItems.list and channels.list. Each call waits on a token-bucket
// limiter and reserves estimated quota units. Failures are handled as follows:
//   - network errors, 429 and 5xx responses are retried with exponential backoff, then fail with [shared.ErrFetchFailed]
//   - a 401 triggers one forced refresh and one more try, then fails with [shared.ErrAuthFailed]
//   - a 403 quota response fails immediately with [shared.ErrQuotaExceeded]
//
// Results are returned only when complete: cancellation between pages discards everything fetched so far.
package services
