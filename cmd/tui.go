package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing and categorizing playlists.
//
// Logs go to the configured log file. Sign-in happens before the UI starts so the consent prompt can use the terminal.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if err := r.pipeline(); err != nil {
		return err
	}
	if _, err := r.auth.Authenticate(ctx, shared.LocalUser, r.prompt()); err != nil {
		return err
	}

	model := ui.NewModel(ctx, r.organizer, ui.Options{
		UserID:       shared.LocalUser,
		MaxPlaylists: r.config.Fetch.MaxPlaylists,
		MaxVideos:    r.config.Fetch.MaxVideos,
		Taxonomy:     r.organizer.Taxonomy(),
		Logger:       fileLogger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
