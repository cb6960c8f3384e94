// Package lifecycle coordinates the signed-in session with the feed and favorites.
//
// The [Controller] is a small state machine:
//
//	Anonymous ──Login/CreateAccount──▶ Authenticating ──ok──▶ Authenticated
//	    ▲                                   │                       │
//	    └──────────────fail─────────────────┘◀────────Logout────────┘
//
// [Controller.Startup] attempts to restore a persisted session before loading the feed and,
// when signed in, the favorite set. Both loads run concurrently.
//
// State changes are announced on channels returned by [Controller.Subscribe]. Delivery never
// blocks: a subscriber that falls behind misses events.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/favorites"
	"github.com/desertthunder/snooze/internal/feed"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/repositories"
	"github.com/desertthunder/snooze/internal/services"
	"github.com/desertthunder/snooze/internal/session"
	"github.com/desertthunder/snooze/internal/shared"
	"golang.org/x/sync/errgroup"
)

// State is the authentication state of the controller.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return ""
	}
}

const defaultEventBuffer = 32

// Options configures a [Controller].
type Options struct {
	Service     services.Service
	Medium      repositories.Medium
	Logger      *log.Logger
	EventBuffer int // per-subscriber channel capacity
}

// Controller owns the session, the feed cache and the favorites reconciler.
type Controller struct {
	mu      sync.RWMutex
	state   State
	session *models.Session

	service   services.Service
	store     *session.Store
	feed      *feed.Cache
	favorites *favorites.Reconciler

	subMu  sync.Mutex
	subs   []chan Event
	buffer int
	closed bool

	logger *log.Logger
}

// New creates an anonymous controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	cache := feed.NewCache(opts.Service, logger)
	return &Controller{
		state:     Anonymous,
		service:   opts.Service,
		store:     session.NewStore(opts.Medium, opts.Service, logger),
		feed:      cache,
		favorites: favorites.New(opts.Service, cache, logger),
		buffer:    buffer,
		logger:    logger.WithPrefix("lifecycle"),
	}
}

// Subscribe returns a channel receiving every event emitted from now on.
func (c *Controller) Subscribe() <-chan Event {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	ch := make(chan Event, c.buffer)
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Close closes all subscriber channels. Later events are dropped.
func (c *Controller) Close() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

// emit sends an event to every subscriber without blocking.
func (c *Controller) emit(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Debug("dropping event for slow subscriber", "kind", ev.Kind)
		}
	}
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Session returns a copy of the current session, or nil when not signed in.
//
// The copy's favorite set is a snapshot.
func (c *Controller) Session() *models.Session {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()

	if sess == nil {
		return nil
	}
	return &models.Session{
		Identity:    sess.Identity,
		DisplayName: sess.DisplayName,
		AuthToken:   sess.AuthToken,
		Favorites:   models.NewFavoriteSet(c.favorites.Favorites()...),
	}
}

// Credentials returns the persisted credential pair without validating it.
func (c *Controller) Credentials(ctx context.Context) (models.Credentials, bool) {
	return c.store.Credentials(ctx)
}

func (c *Controller) authenticated() (*models.Session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state != Authenticated || c.session == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return c.session, nil
}

// Startup restores a persisted session if one validates, then loads the feed and favorites.
//
// A rejected or missing session leaves the controller anonymous and is not an error.
func (c *Controller) Startup(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Anonymous {
		c.mu.Unlock()
		return fmt.Errorf("%w: startup while %s", shared.ErrBusy, c.state)
	}
	c.state = Authenticating
	c.mu.Unlock()

	sess, ok := c.store.Restore(ctx)

	c.mu.Lock()
	if ok {
		c.favorites.Bind(sess, nil)
		c.session = sess
		c.state = Authenticated
	} else {
		c.state = Anonymous
	}
	c.mu.Unlock()

	if ok {
		c.logger.Info("session restored", "identity", sess.Identity)
		c.emit(restoredEvent(sess))
	}

	var g errgroup.Group
	g.Go(func() error {
		_, err := c.RefreshFeed(ctx)
		return err
	})
	if ok {
		g.Go(func() error {
			err := c.favorites.Load(ctx)
			if errors.Is(err, shared.ErrStaleSession) || errors.Is(err, shared.ErrNotAuthenticated) {
				c.logger.Info("restored session ended before favorites loaded", "identity", sess.Identity)
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func (c *Controller) beginAuth() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Authenticating:
		return fmt.Errorf("%w: sign in already in progress", shared.ErrBusy)
	case Authenticated:
		return fmt.Errorf("%w: already signed in as %s, log out first", shared.ErrBusy, c.session.Identity)
	}
	c.state = Authenticating
	return nil
}

// Login authenticates with the story service and persists the resulting session.
func (c *Controller) Login(ctx context.Context, identity, secret string) (*models.Session, error) {
	if err := c.beginAuth(); err != nil {
		return nil, err
	}

	sess, err := c.service.Login(ctx, identity, secret)
	return c.finishAuth(ctx, identity, sess, err)
}

// CreateAccount registers a new identity and signs in as it.
func (c *Controller) CreateAccount(ctx context.Context, identity, secret, displayName string) (*models.Session, error) {
	if err := c.beginAuth(); err != nil {
		return nil, err
	}

	sess, err := c.service.CreateAccount(ctx, identity, secret, displayName)
	return c.finishAuth(ctx, identity, sess, err)
}

func (c *Controller) finishAuth(ctx context.Context, identity string, sess *models.Session, err error) (*models.Session, error) {
	if err != nil {
		c.mu.Lock()
		c.state = Anonymous
		c.mu.Unlock()

		c.logger.Warn("sign in failed", "identity", identity, "error", err)
		c.emit(loginFailedEvent(identity, err))
		return nil, err
	}

	if err := c.store.Persist(ctx, sess); err != nil {
		c.logger.Warn("failed to persist session; it will not survive a restart", "identity", sess.Identity, "error", err)
	}

	c.mu.Lock()
	c.favorites.Bind(sess, nil)
	c.session = sess
	c.state = Authenticated
	c.mu.Unlock()

	loadErr := c.favorites.Load(ctx)

	c.mu.RLock()
	current := c.session == sess
	c.mu.RUnlock()
	if !current || errors.Is(loadErr, shared.ErrStaleSession) {
		c.logger.Info("sign in superseded while loading favorites", "identity", sess.Identity)
		return nil, fmt.Errorf("%w: signed out before %s finished signing in", shared.ErrStaleSession, sess.Identity)
	}
	if loadErr != nil {
		c.logger.Warn("failed to load favorites", "identity", sess.Identity, "error", loadErr)
	}

	c.logger.Info("signed in", "identity", sess.Identity)
	c.emit(loginSucceededEvent(sess))
	return c.Session(), nil
}

// Logout discards the session and its favorites and clears persisted credentials.
//
// Logging out while anonymous only clears storage.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Authenticating {
		c.mu.Unlock()
		return fmt.Errorf("%w: sign in in progress", shared.ErrBusy)
	}

	identity := ""
	if c.session != nil {
		identity = c.session.Identity
	}
	c.session = nil
	c.state = Anonymous
	c.favorites.Unbind()
	c.mu.Unlock()

	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stored session: %w", err)
	}

	c.logger.Info("signed out", "identity", identity)
	c.emit(loggedOutEvent(identity))
	return nil
}

// RefreshFeed reloads the story feed.
func (c *Controller) RefreshFeed(ctx context.Context) ([]models.Story, error) {
	stories, err := c.feed.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	c.emit(feedRefreshedEvent(len(stories)))
	return stories, nil
}

// SubmitStory creates a story and places it at the top of the feed.
func (c *Controller) SubmitStory(ctx context.Context, draft models.StoryDraft) (*models.Story, error) {
	sess, err := c.authenticated()
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	story, err := c.service.SubmitStory(ctx, sess, draft)
	if err != nil {
		c.logger.Warn("story submission failed", "error", err)
		return nil, err
	}

	c.feed.Prepend(*story)
	if current, err := c.authenticated(); err != nil || current != sess {
		c.logger.Info("session ended before submission completed", "identity", sess.Identity, "id", story.ID)
		return story, nil
	}
	c.emit(storySubmittedEvent(sess.Identity, story))
	return story, nil
}

// ToggleFavorite flips the favorite state of storyID and returns the resulting membership.
func (c *Controller) ToggleFavorite(ctx context.Context, storyID string) (bool, error) {
	sess, err := c.authenticated()
	if err != nil {
		return false, err
	}

	favorite, err := c.favorites.Toggle(ctx, storyID)

	// The story was deleted remotely since the feed was fetched.
	var status *services.StatusError
	if errors.As(err, &status) && status.Status == http.StatusNotFound && c.feed.Remove(storyID) {
		c.logger.Info("dropped story missing from the service", "id", storyID)
	}

	c.emit(toggleEvent(sess.Identity, storyID, favorite, err))
	return favorite, err
}

// SetFavorite makes the membership of storyID equal to favorite, toggling only when needed.
func (c *Controller) SetFavorite(ctx context.Context, storyID string, favorite bool) (bool, error) {
	if _, err := c.authenticated(); err != nil {
		return false, err
	}
	if c.favorites.IsFavorite(storyID) == favorite {
		return favorite, nil
	}
	return c.ToggleFavorite(ctx, storyID)
}

// Feed returns a snapshot of the cached feed.
func (c *Controller) Feed() []models.Story {
	return c.feed.All()
}

func (c *Controller) IsFavorite(storyID string) bool {
	return c.favorites.IsFavorite(storyID)
}

// Pending reports whether a favorite toggle for storyID is in flight.
func (c *Controller) Pending(storyID string) bool {
	return c.favorites.Pending(storyID)
}

// FavoriteStories returns the full records of the current user's favorites.
func (c *Controller) FavoriteStories() []models.Story {
	return c.favorites.FavoriteStories()
}
