package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/services"
	"github.com/desertthunder/ytcat/internal/shared"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Reauth bool   `json:"reauth,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status, error code and whether the client must sign in again.
func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, shared.ErrInvalidState):
		return http.StatusBadRequest, "INVALID_STATE", true
	case errors.Is(err, shared.ErrReauthRequired):
		return http.StatusUnauthorized, "REAUTH_REQUIRED", true
	case errors.Is(err, shared.ErrNotAuthenticated):
		return http.StatusUnauthorized, "NOT_AUTHENTICATED", true
	case errors.Is(err, shared.ErrAuthFailed):
		return http.StatusUnauthorized, "AUTH_FAILED", true
	case errors.Is(err, shared.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "QUOTA_EXCEEDED", false
	case errors.Is(err, shared.ErrInvalidCategory):
		return http.StatusBadRequest, "INVALID_CATEGORY", false
	case errors.Is(err, shared.ErrMissingArgument), errors.Is(err, shared.ErrInvalidArgument), errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_FIELD", false
	case errors.Is(err, shared.ErrPlaylistNotFound), errors.Is(err, shared.ErrChannelNotFound):
		return http.StatusNotFound, "NOT_FOUND", false
	case errors.Is(err, shared.ErrFetchFailed):
		return http.StatusBadGateway, "FETCH_FAILED", false
	case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusServiceUnavailable, "NOT_CONFIGURED", false
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", false
	}
}

func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, reauth := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code, Reauth: reauth})
}

// maxResults reads ?max_results, falling back to def.
func maxResults(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("max_results")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: max_results must be a positive integer", shared.ErrInvalidArgument)
	}
	return n, nil
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    appName,
		"version": a.version,
		"docs":    "/api/info",
	})
}

func (a *App) handleAuth(w http.ResponseWriter, r *http.Request) {
	sess, userID := a.session(w, r)

	consent, err := a.auth.BeginConsent(userID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	sess.UserID = userID
	sess.State = consent.State
	if err := a.sessions.Write(w, sess); err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"auth_url": consent.AuthURL,
		"message":  "Please visit this URL to authorize the application",
	})
}

func (a *App) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	sess := a.sessions.Read(r)
	q := r.URL.Query()
	cb := services.Callback{
		State:            q.Get("state"),
		Code:             q.Get("code"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}

	if sess.State == "" || cb.State != sess.State {
		a.writeError(w, r, fmt.Errorf("%w: state does not match this session", shared.ErrInvalidState))
		return
	}

	if _, err := a.auth.CompleteConsent(r.Context(), cb); err != nil {
		a.writeError(w, r, err)
		return
	}

	sess.State = ""
	if err := a.sessions.Write(w, sess); err != nil {
		a.logger.Warn("failed to write session", "error", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)
	if err := a.auth.Logout(r.Context(), userID); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *App) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)
	limit, err := maxResults(r, a.maxPlaylists)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	lib, err := a.engine.Library(r.Context(), userID, limit, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*models.Library
		TotalPlaylists int `json:"total_playlists"`
	}{lib, len(lib.UserPlaylists) + len(lib.SystemPlaylists)})
}

func (a *App) handlePlaylistVideos(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)
	limit, err := maxResults(r, a.maxVideos)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	videos, err := a.engine.Videos(r.Context(), userID, r.PathValue("id"), limit, nil)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if videos == nil {
		videos = []models.Video{}
	}
	writeJSON(w, http.StatusOK, videos)
}

func (a *App) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)

	var body struct {
		Category string `json:"category"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		a.writeError(w, r, fmt.Errorf("%w: request body must be JSON", shared.ErrInvalidInput))
		return
	}
	if strings.TrimSpace(body.Category) == "" {
		a.writeError(w, r, fmt.Errorf("%w: category is required", shared.ErrMissingArgument))
		return
	}

	o, err := a.engine.SetCategory(r.Context(), userID, r.PathValue("id"), body.Category)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Playlist category updated to " + o.Category,
		"playlist_id":  o.PlaylistID,
		"new_category": o.Category,
		"source":       models.SourceManual,
	})
}

func (a *App) handleClearCategory(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)

	cleared, err := a.engine.ClearCategory(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"playlist_id": r.PathValue("id"),
		"cleared":     cleared,
	})
}

func (a *App) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": a.taxonomy.Categories(),
		"fallback":   classifier.Other,
		"names":      a.taxonomy.Names(),
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, userID := a.session(w, r)

	body := map[string]any{
		"status":        "healthy",
		"authenticated": false,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	switch _, err := a.auth.Status(r.Context(), userID); {
	case err == nil:
		body["authenticated"] = true
	case !errors.Is(err, shared.ErrNotAuthenticated):
		body["error"] = err.Error()
	}
	if a.quota != nil {
		body["quota_remaining"] = a.quota.Remaining()
		body["quota_resets_at"] = a.quota.ResetsAt().UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *App) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        appName,
		"version":     a.version,
		"description": "Organize your YouTube playlists with keyword categorization",
		"features": []string{
			"Automatic playlist categorization",
			"Manual category overrides",
			"Category summary",
			"Video browsing",
		},
		"categories": a.taxonomy.Names(),
	})
}
