// package formatter renders categorized playlists and videos as tables, CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/dustin/go-humanize"
)

// Export formats accepted by [WritePlaylistExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func render(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String() + "\n"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sourceLabel(s models.CategorySource) string {
	if s == models.SourceManual {
		return "manual"
	}
	return "auto"
}

// PlaylistsTable renders playlists with their category and video count.
func PlaylistsTable(playlists []models.Playlist) string {
	rows := make([][]string, 0, len(playlists))
	for _, p := range playlists {
		title := truncate(p.Title, 48)
		if p.System {
			title += " *"
		}
		rows = append(rows, []string{
			p.ID,
			title,
			p.Category,
			sourceLabel(p.CategorySource),
			humanize.Comma(p.VideoCount),
		})
	}
	return render([]string{"ID", "Title", "Category", "Source", "Videos"}, rows)
}

// VideosTable renders videos in playlist order.
func VideosTable(videos []models.Video) string {
	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		published := ""
		if !v.PublishedAt.IsZero() {
			published = humanize.Time(v.PublishedAt)
		}
		rows = append(rows, []string{strconv.Itoa(v.Position + 1), truncate(v.Title, 60), v.VideoID, published})
	}
	return render([]string{"#", "Title", "Video ID", "Published"}, rows)
}

// SummaryTable renders per-category totals.
func SummaryTable(summary []models.CategorySummary) string {
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		rows = append(rows, []string{s.Category, strconv.Itoa(s.PlaylistCount), humanize.Comma(s.TotalVideos)})
	}
	return render([]string{"Category", "Playlists", "Videos"}, rows)
}

// ChannelText renders a one-paragraph channel description.
func ChannelText(ch *models.Channel) string {
	if ch == nil {
		return ""
	}
	return fmt.Sprintf("%s (%s)\n%s subscribers · %s videos · %s views\n",
		ch.Title, ch.ID,
		humanize.Comma(int64(ch.SubscriberCount)),
		humanize.Comma(int64(ch.VideoCount)),
		humanize.Comma(int64(ch.ViewCount)),
	)
}

// PlaylistsToCSV converts playlists to CSV with columns: ID, Title, Category, Source, Videos, System, Published
func PlaylistsToCSV(playlists []models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Category", "Source", "Videos", "System", "Published"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range playlists {
		record := []string{
			p.ID,
			p.Title,
			p.Category,
			string(p.CategorySource),
			strconv.FormatInt(p.VideoCount, 10),
			strconv.FormatBool(p.System),
			formatDate(p.PublishedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// VideosToCSV converts videos to CSV with columns: Position, Video ID, Title, URL, Published
func VideosToCSV(videos []models.Video) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "Video ID", "Title", "URL", "Published"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, v := range videos {
		record := []string{strconv.Itoa(v.Position), v.VideoID, v.Title, v.URL(), formatDate(v.PublishedAt)}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// LibraryToMarkdown renders the library grouped by category, in summary order.
func LibraryToMarkdown(lib *models.Library) []byte {
	var buf bytes.Buffer

	title := "Playlists"
	if lib.Channel != nil {
		title = lib.Channel.Title + " playlists"
	}
	fmt.Fprintf(&buf, "# %s\n\n", title)

	byID := make(map[string]models.Playlist)
	for _, group := range [][]models.Playlist{lib.UserPlaylists, lib.SystemPlaylists} {
		for _, p := range group {
			byID[p.ID] = p
		}
	}

	for _, s := range lib.Summary {
		fmt.Fprintf(&buf, "## %s\n\n", s.Category)
		fmt.Fprintf(&buf, "%d playlists, %s videos\n\n", s.PlaylistCount, humanize.Comma(s.TotalVideos))
		for _, id := range s.PlaylistIDs {
			p := byID[id]
			marker := ""
			if p.CategorySource == models.SourceManual {
				marker = " _(manual)_"
			}
			fmt.Fprintf(&buf, "- [%s](https://www.youtube.com/playlist?list=%s) (%d videos)%s\n", p.Title, p.ID, p.VideoCount, marker)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes()
}

// PlaylistToMarkdown renders one playlist and its videos, with an optional cover image.
func PlaylistToMarkdown(p models.Playlist, videos []models.Video, coverImage string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Title)
	if coverImage != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", coverImage)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}
	fmt.Fprintf(&buf, "**Category**: %s (%s)\n", p.Category, p.CategorySource)
	fmt.Fprintf(&buf, "**Videos**: %d\n\n", len(videos))

	buf.WriteString("## Videos\n\n")
	for _, v := range videos {
		fmt.Fprintf(&buf, "%d. [%s](%s)\n", v.Position+1, v.Title, v.URL())
	}
	return buf.Bytes()
}

// PlaylistToText renders one playlist and its videos as plain text.
func PlaylistToText(p models.Playlist, videos []models.Video) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Title)
	fmt.Fprintf(&buf, "Category: %s (%s)\n", p.Category, p.CategorySource)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", strings.TrimSpace(p.Description))
	}
	fmt.Fprintf(&buf, "Videos: %d\n\n", len(videos))

	for _, v := range videos {
		fmt.Fprintf(&buf, "%d. %s %s\n", v.Position+1, v.Title, v.URL())
	}
	return buf.Bytes()
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return imageData, nil
}

// playlistExport is the JSON document written for one playlist.
type playlistExport struct {
	Playlist models.Playlist `json:"playlist"`
	Videos   []models.Video  `json:"videos"`
}

// WritePlaylistExport writes p and its videos into dir in format and returns the files created.
//
// Markdown exports get their own directory, {dir}/{id}/README.md, plus cover.jpg when withCover is set and the
// thumbnail downloads. A failed cover download is not an error.
func WritePlaylistExport(ctx context.Context, p models.Playlist, videos []models.Video, format, dir string, withCover bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	switch format {
	case FormatCSV:
		data, err := VideosToCSV(videos)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(dir, p.ID+"_videos.csv")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}
		return []string{path}, nil

	case FormatMarkdown:
		out := filepath.Join(dir, p.ID)
		if err := os.MkdirAll(out, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		var files []string
		cover := ""
		if withCover && p.ThumbnailURL != "" {
			if img, err := DownloadImage(ctx, p.ThumbnailURL); err == nil {
				path := filepath.Join(out, "cover.jpg")
				if err := os.WriteFile(path, img, 0644); err == nil {
					cover = "cover.jpg"
					files = append(files, path)
				}
			}
		}

		path := filepath.Join(out, "README.md")
		if err := os.WriteFile(path, PlaylistToMarkdown(p, videos, cover), 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		return append(files, path), nil

	case FormatText:
		path := filepath.Join(dir, p.ID+"_videos.txt")
		if err := os.WriteFile(path, PlaylistToText(p, videos), 0644); err != nil {
			return nil, fmt.Errorf("failed to write text file: %w", err)
		}
		return []string{path}, nil

	case FormatJSON, "":
		data, err := json.MarshalIndent(playlistExport{Playlist: p, Videos: videos}, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		path := filepath.Join(dir, p.ID+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{path}, nil

	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Slug turns a category name into a directory name, e.g. "Health & Fitness" into "health-fitness".
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
