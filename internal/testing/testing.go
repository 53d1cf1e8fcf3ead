// package testing contains shared testing utilities
package testing

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/ytcat/internal/shared"
	"golang.org/x/oauth2"
	"google.golang.org/api/youtube/v3"
)

// Endpoint keys used by [FakeYouTube] for faults and hit counts.
const (
	Playlists     = "playlists"
	PlaylistItems = "playlistItems"
	Channels      = "channels"
)

// Fault is a canned error response.
type Fault struct {
	Status int
	Reason string
}

// QuotaFault is the 403 the API returns once the daily quota is spent.
var QuotaFault = Fault{Status: http.StatusForbidden, Reason: "quotaExceeded"}

// FakeYouTube serves the subset of the YouTube Data API v3 used by the fetcher.
//
// Point the client at Endpoint(). Pages hold at most PageSize items and page tokens encode the next offset.
type FakeYouTube struct {
	Server   *httptest.Server
	PageSize int

	// IgnoreMaxResults serves full PageSize pages whatever maxResults asks for.
	IgnoreMaxResults bool

	mu        sync.Mutex
	playlists []*youtube.Playlist
	items     map[string][]*youtube.PlaylistItem
	channel   *youtube.Channel
	faults    map[string][]Fault
	hits      map[string]int
	tokens    map[string]bool
}

// NewFakeYouTube starts a fake API server that is closed with the test.
func NewFakeYouTube(t *testing.T) *FakeYouTube {
	t.Helper()
	f := &FakeYouTube{
		PageSize: 50,
		items:    make(map[string][]*youtube.PlaylistItem),
		faults:   make(map[string][]Fault),
		hits:     make(map[string]int),
		tokens:   make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /youtube/v3/playlists", f.handle(Playlists, f.servePlaylists))
	mux.HandleFunc("GET /youtube/v3/playlistItems", f.handle(PlaylistItems, f.servePlaylistItems))
	mux.HandleFunc("GET /youtube/v3/channels", f.handle(Channels, f.serveChannels))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Endpoint is the base URL to hand to the API client.
func (f *FakeYouTube) Endpoint() string {
	return f.Server.URL + "/"
}

// AddPlaylists appends playlists in API order.
func (f *FakeYouTube) AddPlaylists(playlists ...*youtube.Playlist) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists = append(f.playlists, playlists...)
}

// AddItems appends items to playlistID.
func (f *FakeYouTube) AddItems(playlistID string, items ...*youtube.PlaylistItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[playlistID] = append(f.items[playlistID], items...)
}

// SetChannel sets the channel returned for mine=true.
func (f *FakeYouTube) SetChannel(c *youtube.Channel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channel = c
}

// Fail queues faults answered, in order, by the next requests to endpoint.
func (f *FakeYouTube) Fail(endpoint string, faults ...Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[endpoint] = append(f.faults[endpoint], faults...)
}

// AcceptTokens restricts the server to the given bearer tokens. Any token is accepted until this is called.
func (f *FakeYouTube) AcceptTokens(tokens ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		f.tokens[tok] = true
	}
}

// Hits returns how many requests reached endpoint, failed ones included.
func (f *FakeYouTube) Hits(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[endpoint]
}

func (f *FakeYouTube) handle(endpoint string, serve func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[endpoint]++
		var fault *Fault
		if queue := f.faults[endpoint]; len(queue) > 0 {
			fault = &queue[0]
			f.faults[endpoint] = queue[1:]
		}
		restricted := len(f.tokens) > 0
		accepted := f.tokens[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		f.mu.Unlock()

		switch {
		case restricted && !accepted:
			WriteAPIError(w, http.StatusUnauthorized, "authError")
		case fault != nil:
			WriteAPIError(w, fault.Status, fault.Reason)
		default:
			serve(w, r)
		}
	}
}

// page returns the bounds of the requested page and the token of the next one.
func (f *FakeYouTube) page(r *http.Request, total int) (start, end int, next string) {
	q := r.URL.Query()
	if tok := q.Get("pageToken"); tok != "" {
		start, _ = strconv.Atoi(strings.TrimPrefix(tok, "page-"))
	}
	size := f.PageSize
	if n, err := strconv.Atoi(q.Get("maxResults")); err == nil && n > 0 && n < size && !f.IgnoreMaxResults {
		size = n
	}
	start = min(start, total)
	end = min(start+size, total)
	if end < total {
		next = fmt.Sprintf("page-%d", end)
	}
	return start, end, next
}

func (f *FakeYouTube) servePlaylists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var ids []string
	for _, v := range r.URL.Query()["id"] {
		ids = append(ids, strings.Split(v, ",")...)
	}
	if len(ids) > 0 {
		resp := &youtube.PlaylistListResponse{Kind: "youtube#playlistListResponse"}
		for _, id := range ids {
			for _, p := range f.playlists {
				if p.Id == id {
					resp.Items = append(resp.Items, p)
				}
			}
		}
		writeJSON(w, resp)
		return
	}

	start, end, next := f.page(r, len(f.playlists))
	writeJSON(w, &youtube.PlaylistListResponse{
		Kind:          "youtube#playlistListResponse",
		Items:         f.playlists[start:end],
		NextPageToken: next,
	})
}

func (f *FakeYouTube) servePlaylistItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	items, ok := f.items[r.URL.Query().Get("playlistId")]
	if !ok {
		WriteAPIError(w, http.StatusNotFound, "playlistNotFound")
		return
	}

	start, end, next := f.page(r, len(items))
	writeJSON(w, &youtube.PlaylistItemListResponse{
		Kind:          "youtube#playlistItemListResponse",
		Items:         items[start:end],
		NextPageToken: next,
	})
}

func (f *FakeYouTube) serveChannels(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	resp := &youtube.ChannelListResponse{Kind: "youtube#channelListResponse"}
	if f.channel != nil {
		resp.Items = []*youtube.Channel{f.channel}
	}
	writeJSON(w, resp)
}

// WriteAPIError writes a Google API error body that googleapi.CheckResponse understands.
func WriteAPIError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": http.StatusText(status),
			"errors":  []map[string]string{{"reason": reason, "message": http.StatusText(status)}},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// MakePlaylist builds an API playlist.
func MakePlaylist(id, title, description string, itemCount int64) *youtube.Playlist {
	return &youtube.Playlist{
		Id: id,
		Snippet: &youtube.PlaylistSnippet{
			Title:       title,
			Description: description,
			PublishedAt: "2024-01-02T03:04:05Z",
			Thumbnails: &youtube.ThumbnailDetails{
				Default: &youtube.Thumbnail{Url: "https://i.ytimg.com/" + id + "/default.jpg"},
				High:    &youtube.Thumbnail{Url: "https://i.ytimg.com/" + id + "/hq.jpg"},
			},
		},
		ContentDetails: &youtube.PlaylistContentDetails{ItemCount: itemCount},
	}
}

// MakePlaylists builds n playlists with ids pl-0..pl-(n-1).
func MakePlaylists(n int) []*youtube.Playlist {
	out := make([]*youtube.Playlist, n)
	for i := range out {
		out[i] = MakePlaylist(fmt.Sprintf("pl-%d", i), fmt.Sprintf("Playlist %d", i), "", int64(i))
	}
	return out
}

// MakeItems builds n playlist items with video ids vid-0..vid-(n-1).
func MakeItems(n int) []*youtube.PlaylistItem {
	out := make([]*youtube.PlaylistItem, n)
	for i := range out {
		id := fmt.Sprintf("vid-%d", i)
		out[i] = &youtube.PlaylistItem{
			Id: "item-" + id,
			Snippet: &youtube.PlaylistItemSnippet{
				Title:       "Video " + strconv.Itoa(i),
				PublishedAt: "2024-01-02T03:04:05Z",
				Position:    int64(i),
				ResourceId:  &youtube.ResourceId{Kind: "youtube#video", VideoId: id},
			},
			ContentDetails: &youtube.PlaylistItemContentDetails{VideoId: id},
		}
	}
	return out
}

// FakeTokenServer is an OAuth token endpoint that counts requests.
type FakeTokenServer struct {
	Server *httptest.Server

	mu     sync.Mutex
	hits   int
	issued int
	grants []string
	fail   int
}

// NewFakeTokenServer starts a token endpoint at /token that is closed with the test.
func NewFakeTokenServer(t *testing.T) *FakeTokenServer {
	t.Helper()
	s := &FakeTokenServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", s.serveToken)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Server.Close)
	return s
}

// Config returns an OAuth config pointed at the server. Credentials travel in the form body so each
// refresh is a single request.
func (s *FakeTokenServer) Config(scopes ...string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/api/auth/callback",
		Scopes:       scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.Server.URL + "/auth",
			TokenURL:  s.Server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// FailWith makes every later request fail with status. 400 answers invalid_grant.
func (s *FakeTokenServer) FailWith(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = status
}

// Hits returns the number of token requests.
func (s *FakeTokenServer) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// Grants returns the grant_type of every request, in order.
func (s *FakeTokenServer) Grants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.grants...)
}

func (s *FakeTokenServer) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.hits++
	s.grants = append(s.grants, r.PostForm.Get("grant_type"))
	fail := s.fail
	s.issued++
	n := s.issued
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail != 0 {
		w.WriteHeader(fail)
		body := map[string]string{"error": "server_error"}
		if fail < 500 {
			body = map[string]string{"error": "invalid_grant", "error_description": "Token has been expired or revoked."}
		}
		json.NewEncoder(w).Encode(body)
		return
	}

	body := map[string]any{
		"access_token": fmt.Sprintf("access-%d", n),
		"token_type":   "Bearer",
		"expires_in":   3600,
	}
	if r.PostForm.Get("grant_type") == "authorization_code" {
		body["refresh_token"] = fmt.Sprintf("refresh-%d", n)
	}
	json.NewEncoder(w).Encode(body)
}

// SetupTestDB opens an in-memory database with every migration applied.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
