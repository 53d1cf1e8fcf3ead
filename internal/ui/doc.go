// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI browses the categorized library:
//  1. [LoadingView] : spinner and pipeline progress while the library loads
//  2. [PlaylistListView] : playlists with their category, source and video count
//  3. [VideoListView] : videos of the selected playlist
//  4. [CategoryView] : picker that records a manual category
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the organizer, providing non-blocking status reporting while loading.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, c, x, r, /, q) with contextual help displayed via
// charmbracelet/bubbles/help. Log output goes to a file so it does not corrupt the screen.
package ui
