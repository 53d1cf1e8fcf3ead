// Package models defines the domain entities of the playlist categorizer.
//
// Fetched data (read from the YouTube Data API and never written back):
//   - [Channel] : the authenticated user's channel with its related playlists
//   - [Playlist] : playlist metadata plus its resolved category
//   - [Video] : a playlist item with its 0-based position
//
// Persisted state:
//   - [Credential] : the OAuth client and token for one user
//   - [Override] : a manual category assignment for one playlist
//
// A playlist's category is always paired with a [CategorySource] so callers can tell a manual assignment from an
// automatic classification.
package models
