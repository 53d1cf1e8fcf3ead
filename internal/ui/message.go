package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLibraryFetched MsgKind = iota
	MsgVideosFetched
	MsgProgressUpdate
	MsgCategoryChanged
)

type libraryResult struct {
	lib *models.Library
	err error
}

type videosResult struct {
	playlist models.Playlist
	videos   []models.Video
	err      error
}

// categoryResult carries a playlist re-resolved after an override change.
type categoryResult struct {
	playlist models.Playlist
	err      error
}

// libraryFetchedMsg is the constructor for [MsgLibraryFetched]
func libraryFetchedMsg(lib *models.Library, err error) Msg {
	return Msg{kind: MsgLibraryFetched, data: libraryResult{lib, err}}
}

// videosFetchedMsg is the constructor for [MsgVideosFetched]
func videosFetchedMsg(p models.Playlist, videos []models.Video, err error) Msg {
	return Msg{kind: MsgVideosFetched, data: videosResult{p, videos, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// categoryChangedMsg is the constructor for [MsgCategoryChanged]
func categoryChangedMsg(p models.Playlist, err error) Msg {
	return Msg{kind: MsgCategoryChanged, data: categoryResult{p, err}}
}
