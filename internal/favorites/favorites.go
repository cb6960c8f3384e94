// Package favorites keeps the signed-in user's favorite set in step with the story service.
//
// # Optimistic Toggle
//
// [Reconciler.Toggle] runs in two phases. The first flips membership locally under the lock and
// marks the story as pending. The remote call then runs with no lock held. The second phase either
// keeps the flipped value (success) or restores the value from before the toggle (failure) and
// returns the error to the caller.
//
// While a toggle for a story is pending, a second toggle for the same story fails with
// [shared.ErrBusy]. Toggles for different stories run independently.
//
// # Session Generations
//
// Every [Reconciler.Bind] and [Reconciler.Unbind] bumps a generation counter. A response that
// returns after the generation moved on belongs to a session that no longer exists; it is discarded
// without touching the current set and reported as [shared.ErrStaleSession].
package favorites

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/models"
	"github.com/desertthunder/snooze/internal/shared"
)

// Remote is the part of the story service the reconciler talks to.
type Remote interface {
	FetchFavorites(ctx context.Context, sess *models.Session) ([]models.Story, error)
	SetFavorite(ctx context.Context, sess *models.Session, storyID string, favorite bool) error
}

// Catalog resolves story ids against the known feed.
type Catalog interface {
	Get(id string) (models.Story, bool)
	Contains(id string) bool
}

// Reconciler owns the favorite set of the bound session. Safe for concurrent use.
type Reconciler struct {
	mu         sync.Mutex
	remote     Remote
	catalog    Catalog
	session    *models.Session
	generation uint64
	pending    map[string]struct{}
	records    map[string]models.Story
	logger     *log.Logger
}

// New creates an unbound reconciler.
func New(remote Remote, catalog Catalog, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Default()
	}
	return &Reconciler{
		remote:  remote,
		catalog: catalog,
		pending: make(map[string]struct{}),
		records: make(map[string]models.Story),
		logger:  logger.WithPrefix("favorites"),
	}
}

// Bind attaches sess and seeds its set from favorites when given.
//
// In-flight toggles for a previously bound session become stale.
func (r *Reconciler) Bind(sess *models.Session, favorites []models.Story) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.session = sess
	r.pending = make(map[string]struct{})
	r.records = make(map[string]models.Story)

	if sess.Favorites == nil {
		sess.Favorites = models.NewFavoriteSet()
	}
	for _, s := range favorites {
		sess.Favorites.Add(s.ID)
		r.records[s.ID] = s
	}
}

// Unbind detaches the current session and discards its favorites.
func (r *Reconciler) Unbind() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	r.session = nil
	r.pending = make(map[string]struct{})
	r.records = make(map[string]models.Story)
}

// Bound reports whether a session is attached.
func (r *Reconciler) Bound() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session != nil
}

// Load replaces the favorite set with the remote one.
//
// Stories with a pending toggle keep their local value.
func (r *Reconciler) Load(ctx context.Context) error {
	r.mu.Lock()
	sess, gen := r.session, r.generation
	r.mu.Unlock()

	if sess == nil {
		return shared.ErrNotAuthenticated
	}

	stories, err := r.remote.FetchFavorites(ctx, sess)
	if err != nil {
		r.logger.Warn("failed to load favorites", "identity", sess.Identity, "error", err)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		return fmt.Errorf("%w: favorites load for %s", shared.ErrStaleSession, sess.Identity)
	}

	next := models.NewFavoriteSet()
	records := make(map[string]models.Story, len(stories))
	for _, s := range stories {
		next.Add(s.ID)
		records[s.ID] = s
	}
	for id := range r.pending {
		next.Set(id, sess.Favorites.Has(id))
		if s, ok := r.records[id]; ok {
			records[id] = s
		}
	}

	sess.Favorites = next
	r.records = records
	r.logger.Debug("favorites loaded", "identity", sess.Identity, "count", next.Len())
	return nil
}

// IsFavorite reports whether storyID is in the bound session's set.
func (r *Reconciler) IsFavorite(storyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return false
	}
	return r.session.Favorites.Has(storyID)
}

// Pending reports whether a toggle for storyID is in flight.
func (r *Reconciler) Pending(storyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.pending[storyID]
	return ok
}

// Favorites returns the favorite ids in lexical order.
func (r *Reconciler) Favorites() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}
	return r.session.Favorites.IDs()
}

// FavoriteStories returns the full records of the favorite set, newest first.
//
// Ids with no known record are skipped.
func (r *Reconciler) FavoriteStories() []models.Story {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil
	}

	out := make([]models.Story, 0, r.session.Favorites.Len())
	for _, id := range r.session.Favorites.IDs() {
		if s, ok := r.lookupLocked(id); ok {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b models.Story) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (r *Reconciler) lookupLocked(id string) (models.Story, bool) {
	if s, ok := r.records[id]; ok {
		return s, true
	}
	if r.catalog != nil {
		return r.catalog.Get(id)
	}
	return models.Story{}, false
}

// Toggle flips the favorite state of storyID and confirms it with the story service.
//
// It returns the resulting membership. On failure the previous membership is restored and returned
// along with the error. A story that is neither in the feed nor already a favorite is rejected
// with [shared.ErrValidation] without calling the service.
func (r *Reconciler) Toggle(ctx context.Context, storyID string) (bool, error) {
	r.mu.Lock()

	sess, gen := r.session, r.generation
	if sess == nil {
		r.mu.Unlock()
		return false, shared.ErrNotAuthenticated
	}
	if _, busy := r.pending[storyID]; busy {
		r.mu.Unlock()
		return sess.Favorites.Has(storyID), fmt.Errorf("%w: favorite toggle for %s", shared.ErrBusy, storyID)
	}

	was := sess.Favorites.Has(storyID)
	if !was && (r.catalog == nil || !r.catalog.Contains(storyID)) {
		r.mu.Unlock()
		return false, fmt.Errorf("%w: unknown story %q", shared.ErrValidation, storyID)
	}

	want := !was
	sess.Favorites.Set(storyID, want)
	r.pending[storyID] = struct{}{}
	if want {
		if s, ok := r.catalog.Get(storyID); ok {
			r.records[storyID] = s
		}
	}
	r.mu.Unlock()

	err := r.remote.SetFavorite(ctx, sess, storyID, want)

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		r.logger.Debug("discarding stale toggle", "story", storyID, "error", err)
		return false, fmt.Errorf("%w: favorite toggle for %s", shared.ErrStaleSession, storyID)
	}

	delete(r.pending, storyID)
	if err != nil {
		sess.Favorites.Set(storyID, was)
		r.logger.Warn("favorite toggle reverted", "story", storyID, "error", err)
		return was, err
	}

	r.logger.Debug("favorite toggle confirmed", "story", storyID, "favorite", want)
	return want, nil
}
