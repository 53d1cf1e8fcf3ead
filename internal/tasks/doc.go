// Package tasks runs the categorization pipeline with real-time progress reporting.
//
// # Core Operations
//
// The [Engine] interface defines the operations shared by the CLI, the TUI and the web API:
//
//  1. [Engine.Library] : categorized view of a user's playlists
//     - Loads (and refreshes if needed) the stored credential
//     - Fetches the channel, the user's playlists and the channel's liked/uploads playlists
//     - Resolves each playlist's category: manual override first, keyword classifier otherwise
//     - Builds the per-category summary
//
//  2. [Engine.Videos] : items of one playlist in playlist order
//
//  3. [Engine.SetCategory] / [Engine.ClearCategory] : manual overrides
//
// [Organizer.Review] lists automatic results worth a second look, and [Organizer.Export] writes the whole library to
// disk with a worker pool.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
