// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
)

// MockService is an in-memory test double for [services.Service].
//
// Behaves like the real service (idempotent favorites, 404 on unknown story) and lets tests
// inject failures with [MockService.FailOn] or hold calls in flight with [MockService.Hold].
type MockService struct {
	mu        sync.Mutex
	stories   []models.Story
	passwords map[string]string
	names     map[string]string
	tokens    map[string]string
	favorites map[string][]string
	failures  map[string]error
	gates     map[string]*Gate
	calls     map[string]int
}

// NewMockService creates an empty mock service.
func NewMockService() *MockService {
	return &MockService{
		passwords: make(map[string]string),
		names:     make(map[string]string),
		tokens:    make(map[string]string),
		favorites: make(map[string][]string),
		failures:  make(map[string]error),
		gates:     make(map[string]*Gate),
		calls:     make(map[string]int),
	}
}

// AddUser registers an account and returns a valid token for it.
func (m *MockService) AddUser(username, password, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[username] = password
	m.names[username] = name
	return m.issueLocked(username)
}

// AddStory appends s to the feed.
func (m *MockService) AddStory(s models.Story) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories = append(m.stories, s)
}

// RevokeTokens invalidates every issued token.
func (m *MockService) RevokeTokens() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.tokens)
}

// FailOn makes every call to method return err. A nil err clears the failure.
func (m *MockService) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Calls returns how many times method was invoked.
func (m *MockService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// RemoteFavorites returns the favorite ids the mock holds for username.
func (m *MockService) RemoteFavorites(username string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.favorites[username])
}

// Gate holds calls to a method until released.
type Gate struct {
	Entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Release lets every held and future call through.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// WaitEntered blocks until a call reaches the gate or the timeout elapses.
func (g *Gate) WaitEntered(t *testing.T, timeout time.Duration) {
	t.Helper()
	select {
	case <-g.Entered:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for call to reach gate")
	}
}

// Hold installs a gate in front of method.
func (m *MockService) Hold(method string) *Gate {
	g := &Gate{Entered: make(chan struct{}, 16), release: make(chan struct{})}
	m.mu.Lock()
	m.gates[method] = g
	m.mu.Unlock()
	return g
}

func (m *MockService) enter(ctx context.Context, method string) error {
	m.mu.Lock()
	m.calls[method]++
	g := m.gates[method]
	m.mu.Unlock()

	if g != nil {
		select {
		case g.Entered <- struct{}{}:
		default:
		}
		select {
		case <-g.release:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", shared.ErrNetwork, ctx.Err())
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures[method]
}

func (m *MockService) issueLocked(username string) string {
	token := shared.GenerateID()
	m.tokens[token] = username
	return token
}

func (m *MockService) sessionLocked(username, token string) *models.Session {
	return models.NewSession(username, m.names[username], token, m.favoriteStoriesLocked(username))
}

func (m *MockService) favoriteStoriesLocked(username string) []models.Story {
	out := []models.Story{}
	for _, id := range m.favorites[username] {
		for _, s := range m.stories {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out
}

func (m *MockService) authLocked(sess *models.Session) error {
	if !sess.LoggedIn() {
		return fmt.Errorf("%w: missing auth token", shared.ErrAuth)
	}
	if m.tokens[sess.AuthToken] != sess.Identity {
		return fmt.Errorf("%w: invalid token", shared.ErrAuth)
	}
	return nil
}

func (m *MockService) Login(ctx context.Context, identity, secret string) (*models.Session, error) {
	if err := m.enter(ctx, "Login"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	pw, ok := m.passwords[identity]
	if !ok || pw != secret {
		return nil, fmt.Errorf("%w: invalid username or password", shared.ErrAuth)
	}
	return m.sessionLocked(identity, m.issueLocked(identity)), nil
}

func (m *MockService) CreateAccount(ctx context.Context, identity, secret, displayName string) (*models.Session, error) {
	if err := m.enter(ctx, "CreateAccount"); err != nil {
		return nil, err
	}
	if identity == "" || secret == "" || displayName == "" {
		return nil, fmt.Errorf("%w: username, password and name are required", shared.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.passwords[identity]; ok {
		return nil, fmt.Errorf("%w: username already taken", shared.ErrValidation)
	}
	m.passwords[identity] = secret
	m.names[identity] = displayName
	return m.sessionLocked(identity, m.issueLocked(identity)), nil
}

func (m *MockService) Validate(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	if err := m.enter(ctx, "Validate"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens[creds.AuthToken] != creds.Identity || creds.Identity == "" {
		return nil, fmt.Errorf("%w: invalid token", shared.ErrAuth)
	}
	return m.sessionLocked(creds.Identity, creds.AuthToken), nil
}

func (m *MockService) FetchFeed(ctx context.Context) ([]models.Story, error) {
	if err := m.enter(ctx, "FetchFeed"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.stories), nil
}

func (m *MockService) SubmitStory(ctx context.Context, sess *models.Session, draft models.StoryDraft) (*models.Story, error) {
	if err := m.enter(ctx, "SubmitStory"); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authLocked(sess); err != nil {
		return nil, err
	}

	story := models.Story{
		ID:          shared.GenerateID(),
		Title:       draft.Title,
		URL:         draft.URL,
		Author:      draft.Author,
		SubmittedBy: sess.Identity,
		CreatedAt:   time.Now().UTC(),
	}
	m.stories = append([]models.Story{story}, m.stories...)
	return &story, nil
}

func (m *MockService) FetchFavorites(ctx context.Context, sess *models.Session) ([]models.Story, error) {
	if err := m.enter(ctx, "FetchFavorites"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authLocked(sess); err != nil {
		return nil, err
	}
	return m.favoriteStoriesLocked(sess.Identity), nil
}

func (m *MockService) SetFavorite(ctx context.Context, sess *models.Session, storyID string, favorite bool) error {
	if err := m.enter(ctx, "SetFavorite"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.authLocked(sess); err != nil {
		return err
	}
	if !slices.ContainsFunc(m.stories, func(s models.Story) bool { return s.ID == storyID }) {
		return fmt.Errorf("%w: story not found", shared.ErrValidation)
	}

	ids := slices.DeleteFunc(m.favorites[sess.Identity], func(id string) bool { return id == storyID })
	if favorite {
		ids = append(ids, storyID)
	}
	m.favorites[sess.Identity] = ids
	return nil
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

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
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
