package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/ytcat/internal/formatter"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
)

// ExportOpts contains configuration for library exports.
type ExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: ytcat_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 4)
	MaxVideos  int    // Videos fetched per playlist (default: 50)
	Covers     bool   // Download playlist thumbnails for markdown exports
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID string   `json:"playlist_id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Videos     int      `json:"videos"`
	Files      []string `json:"files,omitempty"`
	Success    bool     `json:"success"`
	Error      string   `json:"error,omitempty"`
}

// ExportResult summarizes an export run and is written as the manifest.
type ExportResult struct {
	ExportedAt        time.Time                `json:"exported_at"`
	Format            string                   `json:"format"`
	TotalPlaylists    int                      `json:"total_playlists"`
	SuccessfulExports int                      `json:"successful_exports"`
	FailedExports     int                      `json:"failed_exports"`
	OutputDirectory   string                   `json:"output_directory"`
	ManifestPath      string                   `json:"-"`
	Summary           []models.CategorySummary `json:"category_summary"`
	Results           []PlaylistExportResult   `json:"results"`
}

type exportJob struct {
	index    int
	playlist models.Playlist
}

// fatal reports errors that will fail every remaining playlist too.
func fatal(err error) bool {
	return errors.Is(err, shared.ErrQuotaExceeded) ||
		errors.Is(err, shared.ErrReauthRequired) ||
		errors.Is(err, shared.ErrAuthFailed) ||
		errors.Is(err, shared.ErrNotAuthenticated)
}

// Export writes every playlist of lib, with its videos, into a directory per category.
//
// Playlists are fetched by a pool of workers; the fetcher's limiter paces the API calls. A quota or authorization
// failure stops the remaining work and is returned alongside the partial result. Other per-playlist failures are
// recorded in the manifest, {OutputDir}/export_manifest.json. Cancelling ctx also returns the partial result with the
// context's error.
func (o *Organizer) Export(ctx context.Context, userID string, lib *models.Library, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytcat_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.MaxVideos <= 0 {
		opts.MaxVideos = 50
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	cred, err := o.credential(ctx, userID, progress)
	if err != nil {
		return nil, err
	}

	playlists := append(append([]models.Playlist(nil), lib.UserPlaylists...), lib.SystemPlaylists...)
	total := len(playlists)
	result := &ExportResult{
		ExportedAt:      time.Now().UTC(),
		Format:          opts.Format,
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Summary:         lib.Summary,
		Results:         make([]PlaylistExportResult, total),
	}

	parent := ctx
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	jobs := make(chan exportJob)
	results := make(chan exportJob, total)
	outcomes := make([]PlaylistExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				res, err := o.exportPlaylist(ctx, cred, job.playlist, opts)
				if err != nil && fatal(err) {
					cancel(err)
				}
				outcomes[job.index] = res
				results <- job
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, p := range playlists {
			select {
			case <-ctx.Done():
				return
			case jobs <- exportJob{index: i, playlist: p}:
				o.sendProgress(progress, exportingPlaylistUpdate(i+1, total, p.Title))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for job := range results {
		completed++
		res := outcomes[job.index]
		if res.Success {
			o.sendProgress(progress, exportCompletedUpdate(completed, total, res.Title, len(res.Files)))
		} else {
			o.sendProgress(progress, exportFailedUpdate(completed, total, res.Title, errors.New(res.Error)))
		}
	}

	for i, p := range playlists {
		res := outcomes[i]
		if res.PlaylistID == "" {
			res = PlaylistExportResult{PlaylistID: p.ID, Title: p.Title, Category: p.Category, Error: "not attempted"}
		}
		if res.Success {
			result.SuccessfulExports++
		} else {
			result.FailedExports++
		}
		result.Results[i] = res
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if cause := context.Cause(ctx); cause != nil && fatal(cause) {
		return result, cause
	}
	if err := parent.Err(); err != nil {
		return result, fmt.Errorf("export interrupted: %w", context.Cause(parent))
	}
	return result, nil
}

func (o *Organizer) exportPlaylist(ctx context.Context, cred *models.Credential, p models.Playlist, opts ExportOpts) (PlaylistExportResult, error) {
	res := PlaylistExportResult{PlaylistID: p.ID, Title: p.Title, Category: p.Category}

	videos, err := o.fetcher.ListPlaylistItems(ctx, cred, p.ID, opts.MaxVideos)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}
	res.Videos = len(videos)

	dir := filepath.Join(opts.OutputDir, formatter.Slug(p.Category))
	files, err := formatter.WritePlaylistExport(ctx, p, videos, opts.Format, dir, opts.Covers)
	if err != nil {
		res.Error = err.Error()
		return res, err
	}

	res.Files = files
	res.Success = true
	return res, nil
}
