package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/desertthunder/ytcat/internal/server"
	"github.com/desertthunder/ytcat/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve runs the JSON API until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = port
	}

	app, err := web.New(web.Options{
		Engine:       r.organizer,
		Auth:         r.auth,
		Taxonomy:     r.organizer.Taxonomy(),
		Quota:        r.fetcher.Quota(),
		Metrics:      r.metrics,
		Logger:       r.logger,
		SecretKey:    cfg.SecretKey,
		SecureCookie: strings.HasPrefix(r.oauth.RedirectURL, "https://"),
		MultiUser:    cfg.MultiUser,
		Version:      version,
		MaxPlaylists: r.config.Fetch.MaxPlaylists,
		MaxVideos:    r.config.Fetch.MaxVideos,
	})
	if err != nil {
		return err
	}
	if cfg.SecretKey == "change-me" {
		r.logger.Warn("server.secret_key still has its template value; set SECRET_KEY before exposing the server")
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("serving", "addr", srv.Addr, "multi_user", cfg.MultiUser, "redirect_uri", r.oauth.RedirectURL)
	return server.Serve(ctx, srv, nil, r.logger)
}
