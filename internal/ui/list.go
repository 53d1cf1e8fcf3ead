package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/dustin/go-humanize"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = videoItem{}
	_ list.Item = categoryItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
}

// FilterValue includes the category so "/" can narrow the list to one category.
func (i playlistItem) FilterValue() string { return i.playlist.Title + " " + i.playlist.Category }
func (i playlistItem) Title() string {
	if i.playlist.System {
		return i.playlist.Title + " *"
	}
	return i.playlist.Title
}
func (i playlistItem) Description() string {
	source := string(i.playlist.CategorySource)
	if i.playlist.CategorySource == models.SourceManual {
		source = styles.manual.Render(source)
	}
	return fmt.Sprintf("%s • %s • %s videos", i.playlist.Category, source, humanize.Comma(i.playlist.VideoCount))
}

// videoItem wraps [models.Video] to implement [list.Item].
type videoItem struct {
	video models.Video
}

func (i videoItem) FilterValue() string { return i.video.Title }
func (i videoItem) Title() string       { return fmt.Sprintf("%d. %s", i.video.Position+1, i.video.Title) }
func (i videoItem) Description() string {
	if i.video.PublishedAt.IsZero() {
		return i.video.VideoID
	}
	return fmt.Sprintf("%s • %s", i.video.VideoID, humanize.Time(i.video.PublishedAt))
}

// categoryItem is one choice in the category picker.
type categoryItem struct {
	name    string
	current bool
}

func (i categoryItem) FilterValue() string { return i.name }
func (i categoryItem) Title() string {
	if i.current {
		return i.name + " (current)"
	}
	return i.name
}
func (i categoryItem) Description() string { return "" }
