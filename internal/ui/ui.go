package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytcat/internal/classifier"
	"github.com/desertthunder/ytcat/internal/models"
	"github.com/desertthunder/ytcat/internal/shared"
	"github.com/desertthunder/ytcat/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	PlaylistListView
	VideoListView
	CategoryView
)

// Options configures a [Model].
type Options struct {
	UserID       string
	MaxPlaylists int
	MaxVideos    int
	Taxonomy     *classifier.Taxonomy
	Logger       *log.Logger
	// Open shows a URL; defaults to [shared.OpenBrowser].
	Open func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	engine       tasks.Engine
	taxonomy     *classifier.Taxonomy
	logger       *log.Logger
	open         func(string) error
	userID       string
	maxPlaylists int
	maxVideos    int

	view         ViewState
	width        int
	height       int
	playlistList list.Model
	videoList    list.Model
	categoryList list.Model
	lib          *models.Library
	selected     models.Playlist
	progressChan chan tasks.ProgressUpdate
	done         chan libraryResult
	progress     tasks.ProgressUpdate
	spinner      spinner.Model
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.Engine, opts Options) *Model {
	tax := opts.Taxonomy
	if tax == nil {
		tax = classifier.DefaultTaxonomy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	open := opts.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	userID := opts.UserID
	if userID == "" {
		userID = shared.LocalUser
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.category

	m := &Model{
		ctx:          ctx,
		engine:       engine,
		taxonomy:     tax,
		logger:       shared.WithLogger(logger, "component", "tui"),
		open:         open,
		userID:       userID,
		maxPlaylists: opts.MaxPlaylists,
		maxVideos:    opts.MaxVideos,
		view:         LoadingView,
		spinner:      sp,
		help:         help.New(),
		keys:         newKeyMap(),
	}
	m.playlistList = newList("Playlists", nil)
	m.videoList = newList("Videos", nil)
	m.categoryList = newList("Choose a category", nil)
	return m
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Styles.Title = l.Styles.Title.Background(styles.category.GetForeground())
	return l
}

// Init initializes the TUI by loading the library.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.loadLibrary())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case VideoListView:
			return m.handleVideoListKeys(msg)
		case CategoryView:
			return m.handleCategoryKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != LoadingView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgLibraryFetched:
		res := msg.data.(libraryResult)
		m.progressChan, m.done = nil, nil
		if res.err != nil {
			m.logger.Error("failed to load library", "error", res.err)
			m.err = res.err
			m.view = PlaylistListView
			return m, nil
		}
		m.err = nil
		m.lib = res.lib
		m.view = PlaylistListView
		m.status = fmt.Sprintf("%d playlists", len(res.lib.UserPlaylists)+len(res.lib.SystemPlaylists))
		return m, m.playlistList.SetItems(m.playlistItems())

	case MsgVideosFetched:
		res := msg.data.(videosResult)
		if res.err != nil {
			m.logger.Error("failed to load videos", "playlist", res.playlist.ID, "error", res.err)
			m.status = styles.err.Render(fmt.Sprintf("Error: %v", res.err))
			m.view = PlaylistListView
			return m, nil
		}
		items := make([]list.Item, len(res.videos))
		for i, v := range res.videos {
			items[i] = videoItem{video: v}
		}
		m.videoList = newList(fmt.Sprintf("Videos in '%s'", res.playlist.Title), items)
		m.resize()
		m.view = VideoListView
		return m, nil

	case MsgCategoryChanged:
		res := msg.data.(categoryResult)
		m.view = PlaylistListView
		if res.err != nil {
			m.logger.Error("failed to change category", "playlist", res.playlist.ID, "error", res.err)
			m.status = styles.err.Render(fmt.Sprintf("Error: %v", res.err))
			return m, nil
		}
		return m, m.applyCategory(res.playlist)
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case PlaylistListView:
		return m.renderPlaylistList()
	case VideoListView:
		return m.renderVideoList()
	case CategoryView:
		return m.renderCategoryPicker()
	default:
		return ""
	}
}

func (m *Model) resize() {
	w, h := m.width-4, m.height-8
	if w < 0 || h < 0 {
		return
	}
	m.playlistList.SetSize(w, h)
	m.videoList.SetSize(w, h)
	m.categoryList.SetSize(w, h)
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.view = LoadingView
		return m, tea.Batch(m.spinner.Tick, m.loadLibrary())
	}

	if m.err != nil {
		return m, nil
	}

	if p, ok := m.selectedPlaylist(); ok {
		switch {
		case key.Matches(msg, m.keys.enter):
			m.selected = p
			m.status = ""
			return m, m.fetchVideos(p)
		case key.Matches(msg, m.keys.category):
			m.selected = p
			m.openPicker(p)
			return m, nil
		case key.Matches(msg, m.keys.clear):
			if p.CategorySource != models.SourceManual {
				m.status = styles.warn.Render(fmt.Sprintf("'%s' has no manual category", p.Title))
				return m, nil
			}
			return m, m.clearCategory(p)
		case key.Matches(msg, m.keys.open):
			return m, m.openURL("https://www.youtube.com/playlist?list=" + p.ID)
		}
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleVideoListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.videoList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.videoList, cmd = m.videoList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		if m.videoList.FilterState() == list.FilterApplied {
			break
		}
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.open):
		if v, ok := m.videoList.SelectedItem().(videoItem); ok {
			return m, m.openURL(v.video.URL())
		}
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) handleCategoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.categoryList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.categoryList, cmd = m.categoryList.Update(msg)
		return m, cmd
	}

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), msg.String() == "q":
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if c, ok := m.categoryList.SelectedItem().(categoryItem); ok {
			return m, m.setCategory(m.selected, c.name)
		}
	}

	var cmd tea.Cmd
	m.categoryList, cmd = m.categoryList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case VideoListView:
		m.videoList, cmd = m.videoList.Update(msg)
	case CategoryView:
		m.categoryList, cmd = m.categoryList.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedPlaylist() (models.Playlist, bool) {
	item, ok := m.playlistList.SelectedItem().(playlistItem)
	if !ok {
		return models.Playlist{}, false
	}
	return item.playlist, true
}

func (m *Model) openPicker(p models.Playlist) {
	names := m.taxonomy.Names()
	items := make([]list.Item, len(names))
	cursor := 0
	for i, name := range names {
		items[i] = categoryItem{name: name, current: name == p.Category}
		if name == p.Category {
			cursor = i
		}
	}
	m.categoryList = newList(fmt.Sprintf("Category for '%s'", p.Title), items)
	m.categoryList.Select(cursor)
	m.resize()
	m.view = CategoryView
}

func (m *Model) playlistItems() []list.Item {
	if m.lib == nil {
		return nil
	}
	items := make([]list.Item, 0, len(m.lib.UserPlaylists)+len(m.lib.SystemPlaylists))
	for _, p := range m.lib.UserPlaylists {
		items = append(items, playlistItem{playlist: p})
	}
	for _, p := range m.lib.SystemPlaylists {
		items = append(items, playlistItem{playlist: p})
	}
	return items
}

// applyCategory copies a re-resolved playlist's category into the cached library and recomputes the summary.
func (m *Model) applyCategory(resolved models.Playlist) tea.Cmd {
	if m.lib == nil {
		return nil
	}

	update := func(playlists []models.Playlist) {
		for i := range playlists {
			if playlists[i].ID != resolved.ID {
				continue
			}
			playlists[i].Category = resolved.Category
			playlists[i].CategorySource = resolved.CategorySource
			m.status = styles.ok.Render(fmt.Sprintf("✓ '%s' is now %s (%s)",
				playlists[i].Title, playlists[i].Category, playlists[i].CategorySource))
		}
	}
	update(m.lib.UserPlaylists)
	update(m.lib.SystemPlaylists)
	m.lib.Summary = tasks.Summarize(m.taxonomy, m.lib.UserPlaylists, m.lib.SystemPlaylists)

	return m.playlistList.SetItems(m.playlistItems())
}

func (m *Model) loadLibrary() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan libraryResult, 1)
	progress, done := m.progressChan, m.done

	go func() {
		lib, err := m.engine.Library(m.ctx, m.userID, m.maxPlaylists, progress)
		done <- libraryResult{lib, err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-progress:
			return progressUpdateMsg(update)
		case res := <-done:
			return libraryFetchedMsg(res.lib, res.err)
		}
	}
}

func (m *Model) fetchVideos(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		videos, err := m.engine.Videos(m.ctx, m.userID, p.ID, m.maxVideos, nil)
		return videosFetchedMsg(p, videos, err)
	}
}

func (m *Model) setCategory(p models.Playlist, category string) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.engine.SetCategory(m.ctx, m.userID, p.ID, category); err != nil {
			return categoryChangedMsg(p, err)
		}
		return categoryChangedMsg(m.engine.Resolve(m.ctx, m.userID, p))
	}
}

func (m *Model) clearCategory(p models.Playlist) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.engine.ClearCategory(m.ctx, m.userID, p.ID); err != nil {
			return categoryChangedMsg(p, err)
		}
		return categoryChangedMsg(m.engine.Resolve(m.ctx, m.userID, p))
	}
}

func (m *Model) openURL(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.open(url); err != nil {
			m.logger.Warn("failed to open browser", "url", url, "error", err)
		}
		return nil
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Loading your playlists")
	msg := m.progress.Message
	if msg == "" {
		msg = "Starting..."
	}
	return fmt.Sprintf("%s\n\n%s %s\n\n%s", title, m.spinner.View(), msg, m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}

func (m *Model) renderSummary() string {
	if m.lib == nil || len(m.lib.Summary) == 0 {
		return ""
	}
	parts := make([]string, len(m.lib.Summary))
	for i, s := range m.lib.Summary {
		parts[i] = fmt.Sprintf("%s %d", styles.category.Render(s.Category), s.PlaylistCount)
	}
	return strings.Join(parts, " · ")
}

func (m *Model) renderPlaylistList() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	helpKeys := []key.Binding{m.keys.enter, m.keys.category, m.keys.clear, m.keys.filter, m.keys.refresh, m.keys.quit}
	out := fmt.Sprintf("%s\n%s", m.playlistList.View(), m.renderSummary())
	if m.status != "" {
		out += "\n" + m.status
	}
	return fmt.Sprintf("%s\n\n%s", out, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderVideoList() string {
	helpKeys := []key.Binding{m.keys.open, m.keys.filter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.videoList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderCategoryPicker() string {
	choose := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose"))
	helpKeys := []key.Binding{choose, m.keys.back}
	return fmt.Sprintf("%s\n\n%s", m.categoryList.View(), m.help.ShortHelpView(helpKeys))
}
