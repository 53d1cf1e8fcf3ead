package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrReauthRequired   = fmt.Errorf("re-authorization required")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrConsentDenied    = fmt.Errorf("consent denied")
	ErrInvalidState     = fmt.Errorf("invalid oauth state")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// API and service errors
	ErrFetchFailed      = fmt.Errorf("fetch failed")
	ErrQuotaExceeded    = fmt.Errorf("YouTube API quota exceeded; the quota resets daily")
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrChannelNotFound  = fmt.Errorf("channel not found")

	// Input validation errors
	ErrInvalidCategory = fmt.Errorf("invalid category")
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
