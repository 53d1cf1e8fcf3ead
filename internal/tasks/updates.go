package tasks

import (
	"fmt"

	"github.com/desertthunder/ytcat/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Authenticate Phase = iota
	FetchChannel
	FetchPlaylists
	FetchSystemPlaylists
	Classify
	FetchVideos
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case Authenticate:
		return "authenticate"
	case FetchChannel:
		return "fetch_channel"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchSystemPlaylists:
		return "fetch_system_playlists"
	case Classify:
		return "classify"
	case FetchVideos:
		return "fetch_videos"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func authenticateUpdate(userID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Authenticate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking credentials for %s...", userID),
	}
}

func channelUpdate(ch *models.Channel) ProgressUpdate {
	if ch == nil {
		return ProgressUpdate{Phase: FetchChannel, Step: 0, Total: 1, Message: "Fetching channel..."}
	}
	return ProgressUpdate{
		Phase:   FetchChannel,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Channel: %s", ch.Title),
		Data:    ch,
	}
}

func playlistsUpdate(count int) ProgressUpdate {
	if count < 0 {
		return ProgressUpdate{Phase: FetchPlaylists, Step: 0, Total: 1, Message: "Fetching playlists..."}
	}
	return ProgressUpdate{
		Phase:   FetchPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", count),
	}
}

func systemPlaylistsUpdate(ids []string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSystemPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %d channel playlists...", len(ids)),
	}
}

func classifyUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Classify,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Categorizing %d playlists...", total),
	}
}

func videosUpdate(playlistID string, count int) ProgressUpdate {
	if count < 0 {
		return ProgressUpdate{
			Phase:   FetchVideos,
			Step:    0,
			Total:   1,
			Message: fmt.Sprintf("Fetching videos for %s...", playlistID),
		}
	}
	return ProgressUpdate{
		Phase:   FetchVideos,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d videos from %s", count, playlistID),
	}
}

func exportingPlaylistUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}
