// Package feed caches the shared story feed.
//
// The [Cache] holds an ordered list of stories with no two sharing an id. [Cache.Refresh] swaps in a
// freshly fetched page in one step and leaves the previous contents untouched on failure.
// [Cache.Prepend] inserts a story at the front only if its id is new, so a story that arrives both
// from a submission and a later refresh shows up once.
package feed

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/snooze/internal/models"
)

// Fetcher loads the current feed from the remote service.
type Fetcher interface {
	FetchFeed(ctx context.Context) ([]models.Story, error)
}

// Cache is the in-memory story feed. Safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	fetcher     Fetcher
	stories     []models.Story
	index       map[string]int
	refreshedAt time.Time
	logger      *log.Logger
}

// NewCache creates an empty cache that refreshes from fetcher.
func NewCache(fetcher Fetcher, logger *log.Logger) *Cache {
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		fetcher: fetcher,
		index:   make(map[string]int),
		logger:  logger.WithPrefix("feed"),
	}
}

// Refresh replaces the cache with the remote feed and returns a snapshot of it.
//
// Stories repeating an earlier id in the fetched page are dropped. On error the cache is unchanged.
func (c *Cache) Refresh(ctx context.Context) ([]models.Story, error) {
	fetched, err := c.fetcher.FetchFeed(ctx)
	if err != nil {
		c.logger.Warn("feed refresh failed", "error", err)
		return nil, err
	}

	stories := make([]models.Story, 0, len(fetched))
	index := make(map[string]int, len(fetched))
	for _, s := range fetched {
		if _, dup := index[s.ID]; dup {
			c.logger.Debug("dropping duplicate story", "id", s.ID)
			continue
		}
		index[s.ID] = len(stories)
		stories = append(stories, s)
	}

	c.mu.Lock()
	c.stories = stories
	c.index = index
	c.refreshedAt = time.Now()
	c.mu.Unlock()

	c.logger.Debug("feed refreshed", "count", len(stories))
	return slices.Clone(stories), nil
}

// Prepend inserts story at the front unless a story with the same id is cached.
//
// Reports whether the story was inserted.
func (c *Cache) Prepend(story models.Story) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[story.ID]; ok {
		return false
	}

	c.stories = slices.Insert(c.stories, 0, story)
	for id, i := range c.index {
		c.index[id] = i + 1
	}
	c.index[story.ID] = 0
	return true
}

// Remove drops the story with id, reporting whether it was cached.
func (c *Cache) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.index[id]
	if !ok {
		return false
	}

	c.stories = slices.Delete(c.stories, i, i+1)
	delete(c.index, id)
	for other, j := range c.index {
		if j > i {
			c.index[other] = j - 1
		}
	}
	return true
}

// All returns a copy of the cached stories in order.
func (c *Cache) All() []models.Story {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.stories)
}

func (c *Cache) Get(id string) (models.Story, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.index[id]
	if !ok {
		return models.Story{}, false
	}
	return c.stories[i], true
}

func (c *Cache) Contains(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[id]
	return ok
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.stories)
}

// RefreshedAt returns the time of the last successful refresh, or the zero time.
func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
