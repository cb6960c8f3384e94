package server

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUsernameTaken  = fmt.Errorf("username already taken")
	ErrBadCredentials = fmt.Errorf("invalid username or password")
	ErrUserNotFound   = fmt.Errorf("user not found")
	ErrStoryNotFound  = fmt.Errorf("story not found")
	ErrForbidden      = fmt.Errorf("not allowed to modify another user's data")
)

type account struct {
	username  string
	name      string
	hash      []byte
	createdAt time.Time
	favorites []string // story ids, most recently added last
}

// Backend is the in-memory state of the stand-in service. Safe for concurrent use.
type Backend struct {
	mu       sync.RWMutex
	accounts map[string]*account
	tokens   map[string]string
	stories  []models.Story // newest first
	cost     int
	now      func() time.Time
}

// BackendOption configures a [Backend].
type BackendOption func(*Backend)

// WithCost sets the bcrypt cost used for new passwords.
func WithCost(cost int) BackendOption {
	return func(b *Backend) { b.cost = cost }
}

// WithClock replaces time.Now for story and account timestamps.
func WithClock(now func() time.Time) BackendOption {
	return func(b *Backend) { b.now = now }
}

// NewBackend creates an empty backend.
func NewBackend(opts ...BackendOption) *Backend {
	b := &Backend{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Signup creates an account and returns a fresh token for it.
func (b *Backend) Signup(username, password, name string) (string, models.User, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)
	if username == "" || password == "" || name == "" {
		return "", models.User{}, fmt.Errorf("%w: username, password and name are required", shared.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", models.User{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.accounts[username]; ok {
		return "", models.User{}, ErrUsernameTaken
	}

	acct := &account{username: username, name: name, hash: hash, createdAt: b.now().UTC()}
	b.accounts[username] = acct
	token := b.issueLocked(username)
	return token, b.userLocked(acct), nil
}

// Login checks the password and returns a fresh token.
func (b *Backend) Login(username, password string) (string, models.User, error) {
	b.mu.RLock()
	acct, ok := b.accounts[username]
	b.mu.RUnlock()

	if !ok {
		return "", models.User{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return "", models.User{}, ErrBadCredentials
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	token := b.issueLocked(username)
	return token, b.userLocked(acct), nil
}

func (b *Backend) issueLocked(username string) string {
	token := shared.GenerateID()
	b.tokens[token] = username
	return token
}

// Authenticate implements [TokenResolver].
func (b *Backend) Authenticate(token string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	username, ok := b.tokens[token]
	return username, ok
}

// User returns the public record for username, including full favorite and own stories.
func (b *Backend) User(username string) (models.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	acct, ok := b.accounts[username]
	if !ok {
		return models.User{}, ErrUserNotFound
	}
	return b.userLocked(acct), nil
}

func (b *Backend) userLocked(acct *account) models.User {
	u := models.User{
		Username:  acct.username,
		Name:      acct.name,
		CreatedAt: acct.createdAt,
		Favorites: []models.Story{},
		Stories:   []models.Story{},
	}
	for _, id := range acct.favorites {
		if s, ok := b.storyLocked(id); ok {
			u.Favorites = append(u.Favorites, s)
		}
	}
	for _, s := range b.stories {
		if s.SubmittedBy == acct.username {
			u.Stories = append(u.Stories, s)
		}
	}
	return u
}

func (b *Backend) storyLocked(id string) (models.Story, bool) {
	for _, s := range b.stories {
		if s.ID == id {
			return s, true
		}
	}
	return models.Story{}, false
}

// Stories returns the feed, newest first.
func (b *Backend) Stories() []models.Story {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]models.Story, len(b.stories))
	copy(out, b.stories)
	return out
}

// AddStory stores draft as a new story submitted by username.
func (b *Backend) AddStory(username string, draft models.StoryDraft) (models.Story, error) {
	if err := draft.Validate(); err != nil {
		return models.Story{}, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	story := models.Story{
		ID:          shared.GenerateID(),
		Title:       strings.TrimSpace(draft.Title),
		URL:         strings.TrimSpace(draft.URL),
		Author:      strings.TrimSpace(draft.Author),
		SubmittedBy: username,
		CreatedAt:   b.now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.stories = append([]models.Story{story}, b.stories...)
	return story, nil
}

// DeleteStory removes a story submitted by username, along with every favorite pointing at it.
func (b *Backend) DeleteStory(username, storyID string) (models.Story, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := -1
	for i, s := range b.stories {
		if s.ID == storyID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Story{}, ErrStoryNotFound
	}

	story := b.stories[idx]
	if story.SubmittedBy != username {
		return models.Story{}, ErrForbidden
	}

	b.stories = append(b.stories[:idx], b.stories[idx+1:]...)
	for _, acct := range b.accounts {
		acct.favorites = without(acct.favorites, storyID)
	}
	return story, nil
}

// SetFavorite adds or removes storyID from the favorites of username. Repeating a call is a no-op.
func (b *Backend) SetFavorite(username, storyID string, favorite bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.accounts[username]
	if !ok {
		return ErrUserNotFound
	}
	if _, ok := b.storyLocked(storyID); !ok {
		return ErrStoryNotFound
	}

	has := slices.Contains(acct.favorites, storyID)
	switch {
	case favorite && !has:
		acct.favorites = append(acct.favorites, storyID)
	case !favorite && has:
		acct.favorites = without(acct.favorites, storyID)
	}
	return nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
