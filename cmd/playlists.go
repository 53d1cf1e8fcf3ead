package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/ytcat/internal/formatter"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints the categorized playlists, optionally filtered to one category.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch format {
	case "text", formatter.FormatCSV, formatter.FormatMarkdown:
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	lib, err := r.library(ctx, cmd.Int("max"))
	if err != nil {
		return err
	}

	if name := cmd.String("category"); name != "" {
		canonical, ok := r.organizer.Taxonomy().Canonical(name)
		if !ok {
			return fmt.Errorf("%w: %q", shared.ErrInvalidCategory, name)
		}
		lib.UserPlaylists = tasks.FilterByCategory(lib.UserPlaylists, canonical)
		lib.SystemPlaylists = tasks.FilterByCategory(lib.SystemPlaylists, canonical)
		lib.Summary = tasks.Summarize(r.organizer.Taxonomy(), lib.UserPlaylists, lib.SystemPlaylists)
	}

	if cmd.Bool("json") {
		return r.writeJSON(lib, cmd.Bool("pretty"))
	}

	all := append(append([]models.Playlist(nil), lib.UserPlaylists...), lib.SystemPlaylists...)
	switch format {
	case formatter.FormatCSV:
		data, err := formatter.PlaylistsToCSV(all)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	case formatter.FormatMarkdown:
		return r.writePlain("%s", formatter.LibraryToMarkdown(lib))
	}

	if lib.Channel != nil {
		r.writePlainHeader(lib.Channel.Title)
	}
	if len(all) == 0 {
		return r.writePlain("No playlists found.\n")
	}
	r.writePlain("%s", formatter.PlaylistsTable(all))
	if len(lib.SystemPlaylists) > 0 {
		r.writePlain("* channel playlist\n")
	}
	return r.writePlain("%d playlists\n", len(all))
}

// PlaylistVideos prints the videos of one playlist in playlist order.
func (r *Runner) PlaylistVideos(ctx context.Context, cmd *cli.Command) error {
	if err := r.pipeline(); err != nil {
		return err
	}

	id := strings.TrimSpace(cmd.String("id"))
	if id == "" {
		return fmt.Errorf("%w: --id", shared.ErrMissingArgument)
	}
	limit := cmd.Int("max")
	if limit <= 0 {
		limit = r.config.Fetch.MaxVideos
	}

	var videos []models.Video
	err := r.withSpinner(ctx, "Fetching videos...", func(ctx context.Context) error {
		var err error
		videos, err = r.organizer.Videos(ctx, shared.LocalUser, id, limit, nil)
		return err
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if videos == nil {
			videos = []models.Video{}
		}
		return r.writeJSON(videos, cmd.Bool("pretty"))
	}
	if cmd.String("format") == formatter.FormatCSV {
		data, err := formatter.VideosToCSV(videos)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if len(videos) == 0 {
		return r.writePlain("Playlist %s is empty.\n", id)
	}
	r.writePlain("%s", formatter.VideosTable(videos))
	return r.writePlain("%d videos\n", len(videos))
}

// PlaylistsSummary prints playlist and video counts per category.
func (r *Runner) PlaylistsSummary(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx, cmd.Int("max"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(lib.Summary, cmd.Bool("pretty"))
	}
	if len(lib.Summary) == 0 {
		return r.writePlain("No playlists found.\n")
	}
	r.writePlainHeader("Category summary")
	return r.writePlain("%s", formatter.SummaryTable(lib.Summary))
}

var reviewHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var reviewCell = lipgloss.NewStyle().Padding(0, 1)

// PlaylistsReview lists automatic categories that came from a tie-break, a weak match or no match at all.
func (r *Runner) PlaylistsReview(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.library(ctx, cmd.Int("max"))
	if err != nil {
		return err
	}

	items := r.organizer.Review(lib)
	if cmd.Bool("json") {
		if items == nil {
			items = []tasks.ReviewItem{}
		}
		return r.writeJSON(items, cmd.Bool("pretty"))
	}
	if len(items) == 0 {
		return r.writePlain("✓ Every automatic category looks confident.\n")
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			item.Playlist.ID,
			item.Playlist.Title,
			item.Result.Category,
			fmt.Sprintf("%.0f%%", item.Result.Confidence()*100),
			strings.Join(item.Reasons, "; "),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return reviewHeader
			}
			return reviewCell
		}).
		Headers("ID", "Title", "Category", "Confidence", "Why").
		Rows(rows...)

	r.writePlain("%s\n", t.String())
	return r.writePlain("%d playlists to review. Fix one with 'ytcat category set --id <ID>'.\n", len(items))
}

// PlaylistsExport writes every playlist and its videos into per-category directories.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	switch format {
	case formatter.FormatJSON, formatter.FormatCSV, formatter.FormatMarkdown, formatter.FormatText:
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}

	lib, err := r.library(ctx, cmd.Int("max"))
	if err != nil {
		return err
	}

	maxVideos := cmd.Int("max-videos")
	if maxVideos <= 0 {
		maxVideos = r.config.Fetch.MaxVideos
	}
	opts := tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		MaxVideos:  maxVideos,
		Covers:     cmd.Bool("covers"),
	}

	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go func() {
		for update := range progress {
			if update.Phase == tasks.ExportPlaylist {
				r.logger.Info(update.Message)
				continue
			}
			r.logger.Debug(update.Message, "phase", update.Phase)
		}
		close(done)
	}()

	result, err := r.organizer.Export(ctx, shared.LocalUser, lib, opts, progress)
	close(progress)
	<-done

	if result != nil && !cmd.Bool("json") {
		r.writePlainHeader("Export")
		r.writePlain("Directory: %s\n", result.OutputDirectory)
		r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
		if result.FailedExports > 0 {
			r.writePlain("Failed: %d (see %s)\n", result.FailedExports, result.ManifestPath)
		}
	}
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}
	return nil
}
