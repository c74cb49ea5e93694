package tracking

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/ternarybob/shiftlog/internal/models"
)

// historyCache holds recent event lists per subject for a bounded time.
// Entries are dropped when a new event is recorded for the subject.
type historyCache struct {
	cache *ristretto.Cache[string, []*models.TrackingEvent]
	ttl   time.Duration
}

// newHistoryCache returns nil when ttl is not positive, which disables caching
func newHistoryCache(maxEntries int64, ttl time.Duration) (*historyCache, error) {
	if ttl <= 0 {
		return nil, nil
	}
	if maxEntries <= 0 {
		maxEntries = 10000
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, []*models.TrackingEvent]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
		// Cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracking cache: %w", err)
	}

	return &historyCache{cache: cache, ttl: ttl}, nil
}

func (c *historyCache) get(subjectID string) ([]*models.TrackingEvent, bool) {
	if c == nil {
		return nil, false
	}
	return c.cache.Get(subjectID)
}

// set stores one entry with cost 1, so MaxCost bounds the number of subjects
func (c *historyCache) set(subjectID string, events []*models.TrackingEvent) {
	if c == nil {
		return
	}
	c.cache.SetWithTTL(subjectID, events, 1, c.ttl)
}

func (c *historyCache) invalidate(subjectID string) {
	if c == nil {
		return
	}
	c.cache.Del(subjectID)
}

func (c *historyCache) close() {
	if c == nil {
		return
	}
	c.cache.Close()
}
