package models

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// CategorySource records how a playlist's category was decided.
type CategorySource string

const (
	SourceAutomatic CategorySource = "automatic"
	SourceManual    CategorySource = "manual"
)

// Valid reports whether s is one of the known sources.
func (s CategorySource) Valid() bool {
	return s == SourceAutomatic || s == SourceManual
}

// Credential holds the OAuth client and the token issued for one user.
//
// Only the authenticator mutates a Credential; everything else treats it as read-only.
type Credential struct {
	UserID       string    `json:"user_id"`
	ClientID     string    `json:"client_id"`
	ClientSecret string    `json:"-"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Token converts the credential into an [oauth2.Token].
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// WithToken returns a copy of c carrying tok. A token without a refresh token keeps the previous one, matching how
// Google omits it on refresh responses.
func (c Credential) WithToken(tok *oauth2.Token) *Credential {
	c.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		c.RefreshToken = tok.RefreshToken
	}
	c.TokenType = tok.TokenType
	if c.TokenType == "" {
		c.TokenType = "Bearer"
	}
	c.Expiry = tok.Expiry
	return &c
}

// ExpiresWithin reports whether the access token is expired, or will be within margin, at now.
//
// A zero expiry means the token never expires.
func (c *Credential) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if c.Expiry.IsZero() {
		return false
	}
	return !now.Before(c.Expiry.Add(-margin))
}

// Validate checks the fields required to persist a credential.
func (c *Credential) Validate() error {
	switch {
	case c.UserID == "":
		return fmt.Errorf("credential: user id is required")
	case c.ClientID == "":
		return fmt.Errorf("credential: client id is required")
	case c.AccessToken == "":
		return fmt.Errorf("credential: access token is required")
	}
	return nil
}

// Playlist is a playlist owned by (or related to) the authenticated channel.
type Playlist struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	PublishedAt    time.Time      `json:"published_at"`
	VideoCount     int64          `json:"video_count"`
	ThumbnailURL   string         `json:"thumbnail_url"`
	Category       string         `json:"category"`
	CategorySource CategorySource `json:"category_source"`
	// System marks channel playlists such as "Liked videos" and "Uploads".
	System bool `json:"system,omitempty"`
}

// Video is one item of a playlist. Position is the 0-based index in playlist order.
type Video struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	Position     int       `json:"position"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// URL returns the watch URL for the video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.VideoID
}

// RelatedPlaylists names the channel's built-in playlists.
type RelatedPlaylists struct {
	Likes   string `json:"likes,omitempty"`
	Uploads string `json:"uploads,omitempty"`
}

// IDs returns the non-empty related playlist ids, likes first.
func (r RelatedPlaylists) IDs() []string {
	var ids []string
	for _, id := range []string{r.Likes, r.Uploads} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Channel is the authenticated user's channel.
type Channel struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	ThumbnailURL     string           `json:"thumbnail_url"`
	SubscriberCount  uint64           `json:"subscriber_count"`
	VideoCount       uint64           `json:"video_count"`
	ViewCount        uint64           `json:"view_count"`
	RelatedPlaylists RelatedPlaylists `json:"related_playlists"`
}

// Override is a user's manual category choice for one playlist.
type Override struct {
	UserID     string    `json:"user_id"`
	PlaylistID string    `json:"playlist_id"`
	Category   string    `json:"category"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist an override.
func (o *Override) Validate() error {
	switch {
	case o.UserID == "":
		return fmt.Errorf("override: user id is required")
	case strings.TrimSpace(o.PlaylistID) == "":
		return fmt.Errorf("override: playlist id is required")
	case o.Category == "":
		return fmt.Errorf("override: category is required")
	}
	return nil
}

// CategorySummary aggregates the playlists resolved to one category.
type CategorySummary struct {
	Category      string   `json:"category"`
	PlaylistCount int      `json:"playlist_count"`
	TotalVideos   int64    `json:"total_videos"`
	PlaylistIDs   []string `json:"playlist_ids"`
}

// Library is the categorized view of a user's playlists.
type Library struct {
	Channel         *Channel          `json:"channel,omitempty"`
	UserPlaylists   []Playlist        `json:"user_playlists"`
	SystemPlaylists []Playlist        `json:"system_playlists"`
	Summary         []CategorySummary `json:"category_summary"`
}

// Playlist looks up a playlist by id across user and system playlists.
func (l *Library) Playlist(id string) (Playlist, bool) {
	for _, group := range [][]Playlist{l.UserPlaylists, l.SystemPlaylists} {
		for _, p := range group {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Playlist{}, false
}
