package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytcat/internal/formatter"
	"github.com/desertthunder/ytcat/internal/server"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

var errNoBrowser = errors.New("browser disabled")

// AuthLogin runs the OAuth consent flow for the local user and stores the credential.
//
// The consent URL is opened in a browser and the redirect is captured on the configured redirect URI.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	prompt := r.prompt()
	if cmd.Bool("no-browser") && r.consent == nil {
		lc := &server.LocalConsent{
			RedirectURL: r.oauth.RedirectURL,
			Out:         r.output,
			Logger:      r.logger,
			Open:        func(string) error { return errNoBrowser },
		}
		prompt = lc.Prompt
	}

	consent, err := r.auth.BeginConsent(shared.LocalUser)
	if err != nil {
		return err
	}
	r.logger.Debug("waiting for consent", "redirect", r.oauth.RedirectURL)

	cb, err := prompt(ctx, consent)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	cred, err := r.auth.CompleteConsent(ctx, cb)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(cred, cmd.Bool("pretty"))
	}
	r.writePlain("✓ Authentication successful\n")

	ch, err := r.fetcher.Channel(ctx, cred)
	switch {
	case err == nil:
		r.writePlain("%s", formatter.ChannelText(ch))
	case errors.Is(err, shared.ErrChannelNotFound):
		r.writePlain("This account has no YouTube channel; only its playlists will be listed.\n")
	default:
		r.logger.Warn("could not load channel", "error", err)
	}
	return nil
}

// AuthStatus reports whether a credential is stored and when its access token expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	cred, err := r.auth.Status(ctx, shared.LocalUser)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		if cmd.Bool("json") {
			return r.writeJSON(map[string]any{"authenticated": false}, cmd.Bool("pretty"))
		}
		return r.writePlain("Authentication: ✗ Not authenticated\nRun 'ytcat auth login' to sign in.\n")
	}
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"authenticated":     true,
			"client_id":         cred.ClientID,
			"expiry":            cred.Expiry,
			"has_refresh_token": cred.RefreshToken != "",
			"updated_at":        cred.UpdatedAt,
		}, cmd.Bool("pretty"))
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	r.writePlain("Client: %s\n", cred.ClientID)
	if cred.Expiry.IsZero() {
		r.writePlain("Access token: does not expire\n")
	} else if cred.Expiry.Before(time.Now()) {
		r.writePlain("Access token: expired %s (refreshed on next use)\n", humanize.Time(cred.Expiry))
	} else {
		r.writePlain("Access token: expires %s\n", humanize.Time(cred.Expiry))
	}
	if cred.RefreshToken == "" {
		r.writePlain("Refresh token: ✗ missing, sign in again when the access token expires\n")
	}

	quota := r.fetcher.Quota()
	r.writePlain("Quota remaining: %s units (resets %s)\n", humanize.Comma(int64(quota.Remaining())), humanize.Time(quota.ResetsAt()))
	return nil
}

// AuthLogout removes the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}
	if err := r.auth.Logout(ctx, shared.LocalUser); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}
