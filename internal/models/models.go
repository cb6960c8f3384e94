// package models defines the data model for the story feed client
package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Story is a story record from the shared feed.
//
// Two stories with equal ID are the same story regardless of other field drift.
type Story struct {
	ID          string    `json:"storyId"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Author      string    `json:"author"`
	SubmittedBy string    `json:"username"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SameAs reports whether s and other identify the same story.
func (s Story) SameAs(other Story) bool {
	return s.ID == other.ID
}

// Hostname returns the host portion of the story URL without a leading "www.".
//
// URLs without a scheme are treated as starting with the host.
func (s Story) Hostname() string {
	raw := s.URL
	if !strings.Contains(raw, "://") {
		raw = "//" + raw
	}

	host := ""
	if u, err := url.Parse(raw); err == nil {
		host = u.Hostname()
	}
	if host == "" {
		host, _, _ = strings.Cut(strings.TrimPrefix(raw, "//"), "/")
	}
	return strings.TrimPrefix(host, "www.")
}

// StoryDraft holds the user-supplied fields of a story before the service assigns an id.
type StoryDraft struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Author string `json:"author"`
}

// Validate checks that every field is present and the URL is an absolute http(s) URL.
func (d StoryDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if strings.TrimSpace(d.Author) == "" {
		return fmt.Errorf("author is required")
	}

	u, err := url.Parse(strings.TrimSpace(d.URL))
	if err != nil || u.Host == "" {
		return fmt.Errorf("url must be absolute: %q", d.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https: %q", d.URL)
	}
	return nil
}

// Credentials is the pair persisted between runs to restore a session.
type Credentials struct {
	AuthToken string
	Identity  string
}

// Complete reports whether both halves of the pair are present.
func (c Credentials) Complete() bool {
	return c.AuthToken != "" && c.Identity != ""
}

// Session is the authenticated identity of the current user.
type Session struct {
	Identity    string
	DisplayName string
	AuthToken   string
	Favorites   *FavoriteSet
}

// NewSession creates a session whose favorite set holds the ids of favorites.
func NewSession(identity, displayName, token string, favorites []Story) *Session {
	ids := make([]string, len(favorites))
	for i, s := range favorites {
		ids[i] = s.ID
	}
	return &Session{
		Identity:    identity,
		DisplayName: displayName,
		AuthToken:   token,
		Favorites:   NewFavoriteSet(ids...),
	}
}

// LoggedIn reports whether the session carries an auth token.
func (s *Session) LoggedIn() bool {
	return s != nil && s.AuthToken != ""
}

// Credentials returns the persistable pair for the session.
func (s *Session) Credentials() Credentials {
	return Credentials{AuthToken: s.AuthToken, Identity: s.Identity}
}

// User is the account record returned by the story service.
type User struct {
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Favorites []Story   `json:"favorites"`
	Stories   []Story   `json:"stories"`
}

// SessionWithToken builds the client session for u authenticated by token.
func (u User) SessionWithToken(token string) *Session {
	return NewSession(u.Username, u.Name, token, u.Favorites)
}
