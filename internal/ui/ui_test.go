package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/tasks"
)

type mockEngine struct {
	mu         sync.Mutex
	libErr     error
	resolveErr error
	cleared    []string
	resolved   []string
	set        map[string]string
}

func (e *mockEngine) Library(ctx context.Context, userID string, maxPlaylists int, progress chan<- tasks.ProgressUpdate) (*models.Library, error) {
	if progress != nil {
		progress <- tasks.ProgressUpdate{Phase: tasks.FetchPlaylists, Message: "Fetching playlists..."}
	}
	if e.libErr != nil {
		return nil, e.libErr
	}
	return sampleLibrary(), nil
}

func (e *mockEngine) Videos(ctx context.Context, userID, playlistID string, maxVideos int, progress chan<- tasks.ProgressUpdate) ([]models.Video, error) {
	if playlistID == "broken" {
		return nil, shared.ErrFetchFailed
	}
	return []models.Video{{VideoID: "v1", Title: "Neapolitan dough"}, {VideoID: "v2", Title: "Sauce", Position: 1}}, nil
}

func (e *mockEngine) SetCategory(ctx context.Context, userID, playlistID, category string) (*models.Override, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.set == nil {
		e.set = make(map[string]string)
	}
	e.set[playlistID] = category
	return &models.Override{UserID: userID, PlaylistID: playlistID, Category: category}, nil
}

func (e *mockEngine) ClearCategory(ctx context.Context, userID, playlistID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cleared = append(e.cleared, playlistID)
	delete(e.set, playlistID)
	return true, nil
}

func (e *mockEngine) Resolve(ctx context.Context, userID string, p models.Playlist) (models.Playlist, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resolved = append(e.resolved, p.ID)
	if e.resolveErr != nil {
		return p, e.resolveErr
	}
	if category, ok := e.set[p.ID]; ok {
		p.Category, p.CategorySource = category, models.SourceManual
		return p, nil
	}
	p.Category, p.CategorySource = classifier.New(classifier.DefaultTaxonomy()).Classify(p), models.SourceAutomatic
	return p, nil
}

func sampleLibrary() *models.Library {
	user := []models.Playlist{
		{ID: "PL1", Title: "Easy pizza recipes", Category: "Food", CategorySource: models.SourceAutomatic, VideoCount: 2},
		{ID: "PL2", Title: "Interview prep", Category: "Travel", CategorySource: models.SourceManual, VideoCount: 4},
	}
	system := []models.Playlist{
		{ID: "LL", Title: "Liked videos", Category: "Other", CategorySource: models.SourceAutomatic, System: true},
	}
	return &models.Library{
		UserPlaylists:   user,
		SystemPlaylists: system,
		Summary:         tasks.Summarize(classifier.DefaultTaxonomy(), user, system),
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, engine *mockEngine) *Model {
	t.Helper()
	m := NewModel(context.Background(), engine, Options{
		Logger: shared.NewLogger(io.Discard),
		Open:   func(string) error { return nil },
	})
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// load runs the library command to completion, feeding progress through Update.
func load(t *testing.T, m *Model) {
	t.Helper()
	cmd := m.loadLibrary()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		_, cmd = m.Update(msg)
		if mm, ok := msg.(Msg); ok && mm.kind == MsgLibraryFetched {
			return
		}
	}
	t.Fatal("library never finished loading")
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m.Update(cmd())
}

func findPlaylist(m *Model, id string) models.Playlist {
	for _, p := range append(append([]models.Playlist(nil), m.lib.UserPlaylists...), m.lib.SystemPlaylists...) {
		if p.ID == id {
			return p
		}
	}
	return models.Playlist{}
}

func TestModel(t *testing.T) {
	t.Run("loads the library", func(t *testing.T) {
		m := newTestModel(t, &mockEngine{})
		if m.View() == "" || m.view != LoadingView {
			t.Fatalf("expected the loading view first")
		}

		load(t, m)
		if m.view != PlaylistListView {
			t.Fatalf("expected the playlist view, got %v", m.view)
		}
		if n := len(m.playlistList.Items()); n != 3 {
			t.Errorf("expected 3 items, got %d", n)
		}

		out := m.View()
		for _, want := range []string{"Easy pizza recipes", "Liked videos *", "Food 1"} {
			if !strings.Contains(out, want) {
				t.Errorf("view missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("progress is shown while loading", func(t *testing.T) {
		m := newTestModel(t, &mockEngine{})
		m.Update(progressUpdateMsg(tasks.ProgressUpdate{Phase: tasks.FetchChannel, Message: "Fetching channel..."}))
		if !strings.Contains(m.View(), "Fetching channel...") {
			t.Errorf("expected the progress message:\n%s", m.View())
		}
	})

	t.Run("load failure can be retried", func(t *testing.T) {
		engine := &mockEngine{libErr: shared.ErrQuotaExceeded}
		m := newTestModel(t, engine)
		load(t, m)

		if !strings.Contains(m.View(), "quota") {
			t.Errorf("expected the error to be shown:\n%s", m.View())
		}

		engine.libErr = nil
		_, cmd := m.Update(keyPress("r"))
		if m.view != LoadingView || cmd == nil {
			t.Fatalf("expected a reload")
		}
		load(t, m)
		if m.err != nil || m.lib == nil {
			t.Errorf("expected the library after retry, err %v", m.err)
		}
	})

	t.Run("enter shows videos and esc goes back", func(t *testing.T) {
		m := newTestModel(t, &mockEngine{})
		load(t, m)

		_, cmd := m.Update(keyPress("enter"))
		run(t, m, cmd)
		if m.view != VideoListView || len(m.videoList.Items()) != 2 {
			t.Fatalf("expected 2 videos, view %v", m.view)
		}
		if !strings.Contains(m.View(), "1. Neapolitan dough") {
			t.Errorf("unexpected video view:\n%s", m.View())
		}

		m.Update(keyPress("esc"))
		if m.view != PlaylistListView {
			t.Errorf("expected to return to playlists, got %v", m.view)
		}
	})

	t.Run("video failure stays on playlists", func(t *testing.T) {
		m := newTestModel(t, &mockEngine{})
		load(t, m)

		m.Update(videosFetchedMsg(models.Playlist{ID: "broken"}, nil, shared.ErrFetchFailed))
		if m.view != PlaylistListView || !strings.Contains(m.status, "fetch failed") {
			t.Errorf("expected an error status, got view %v status %q", m.view, m.status)
		}
	})
}

func TestCategoryPicker(t *testing.T) {
	t.Run("sets a manual category", func(t *testing.T) {
		engine := &mockEngine{}
		m := newTestModel(t, engine)
		load(t, m)

		m.Update(keyPress("c"))
		if m.view != CategoryView {
			t.Fatalf("expected the picker, got %v", m.view)
		}
		if got := m.categoryList.SelectedItem().(categoryItem); got.name != "Food" || !got.current {
			t.Errorf("expected the current category preselected, got %+v", got)
		}

		for i, item := range m.categoryList.Items() {
			if item.(categoryItem).name == "Technology" {
				m.categoryList.Select(i)
			}
		}
		_, cmd := m.Update(keyPress("enter"))
		run(t, m, cmd)

		if engine.set["PL1"] != "Technology" {
			t.Errorf("expected the override to be stored, got %v", engine.set)
		}
		if len(engine.resolved) != 1 || engine.resolved[0] != "PL1" {
			t.Errorf("expected PL1 to be re-resolved by the engine, got %v", engine.resolved)
		}
		p := findPlaylist(m, "PL1")
		if p.Category != "Technology" || p.CategorySource != models.SourceManual {
			t.Errorf("unexpected playlist %+v", p)
		}
		if m.lib.Summary[0].Category != "Technology" {
			t.Errorf("summary not recomputed: %+v", m.lib.Summary)
		}
		for _, s := range m.lib.Summary {
			if s.Category == "Food" {
				t.Errorf("Food should be empty after the override: %+v", m.lib.Summary)
			}
		}
	})

	t.Run("esc leaves the picker unchanged", func(t *testing.T) {
		engine := &mockEngine{}
		m := newTestModel(t, engine)
		load(t, m)

		m.Update(keyPress("c"))
		m.Update(keyPress("esc"))
		if m.view != PlaylistListView || len(engine.set) != 0 {
			t.Errorf("expected no change, view %v set %v", m.view, engine.set)
		}
	})

	t.Run("clear falls back to the classifier", func(t *testing.T) {
		engine := &mockEngine{}
		m := newTestModel(t, engine)
		load(t, m)

		m.playlistList.Select(1)
		_, cmd := m.Update(keyPress("x"))
		run(t, m, cmd)

		if len(engine.cleared) != 1 || engine.cleared[0] != "PL2" {
			t.Fatalf("expected PL2 to be cleared, got %v", engine.cleared)
		}
		p := findPlaylist(m, "PL2")
		if p.Category != "Career" || p.CategorySource != models.SourceAutomatic {
			t.Errorf("expected the automatic category, got %+v", p)
		}
	})

	t.Run("resolution failure keeps the cached category", func(t *testing.T) {
		engine := &mockEngine{resolveErr: errors.New("database is locked")}
		m := newTestModel(t, engine)
		load(t, m)

		m.playlistList.Select(1)
		_, cmd := m.Update(keyPress("x"))
		run(t, m, cmd)

		p := findPlaylist(m, "PL2")
		if p.Category != "Travel" || p.CategorySource != models.SourceManual {
			t.Errorf("expected the cached category, got %+v", p)
		}
		if !strings.Contains(m.status, "database is locked") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("clear without an override", func(t *testing.T) {
		engine := &mockEngine{}
		m := newTestModel(t, engine)
		load(t, m)

		_, cmd := m.Update(keyPress("x"))
		if cmd != nil || len(engine.cleared) != 0 {
			t.Error("expected nothing to be cleared")
		}
		if !strings.Contains(m.status, "no manual category") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("failed change is reported", func(t *testing.T) {
		m := newTestModel(t, &mockEngine{})
		load(t, m)

		m.Update(categoryChangedMsg(models.Playlist{ID: "PL1"}, errors.New("database is locked")))
		if !strings.Contains(m.status, "database is locked") || findPlaylist(m, "PL1").Category != "Food" {
			t.Errorf("unexpected state: status %q", m.status)
		}
	})
}
