package rules

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Cache holds the last-fetched rules document in a single process-wide slot.
// The slot is replaced wholesale by an atomic pointer swap, so concurrent
// requests never observe a partially written document. Concurrent refreshes
// may race; the loser merely wastes one store call (last writer wins).
type Cache struct {
	store        Store
	ttl          time.Duration
	fallbackSalt string
	logger       *zap.Logger
	slot         atomic.Pointer[cacheEntry]
}

type cacheEntry struct {
	doc       Document
	fetchedAt time.Time
}

// NewCache creates a rules cache over the given store. A nil store is
// allowed and always yields the fallback document.
func NewCache(store Store, ttl time.Duration, fallbackSalt string, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		store:        store,
		ttl:          ttl,
		fallbackSalt: fallbackSalt,
		logger:       logger,
	}
}

// Get returns the current rules document. A cached document younger than the
// TTL is returned without touching the store. On any fetch failure the
// fallback document is cached with a fresh TTL, so a persistently failing
// store costs one call per TTL window, not one per request.
func (c *Cache) Get(ctx context.Context) Document {
	if entry := c.slot.Load(); entry != nil && time.Since(entry.fetchedAt) < c.ttl {
		return entry.doc
	}

	doc, err := c.fetch(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformed):
			c.logger.Warn("Rules document malformed, using fallback rules", zap.Error(err))
		default:
			c.logger.Warn("Rules store unavailable, using fallback rules", zap.Error(err))
		}
		doc = Fallback(c.fallbackSalt)
	} else {
		c.logger.Debug("Rules document refreshed",
			zap.Strings("redact", doc.Redact),
			zap.Duration("ttl", c.ttl))
	}

	c.slot.Store(&cacheEntry{doc: doc, fetchedAt: time.Now()})
	return doc
}

func (c *Cache) fetch(ctx context.Context) (Document, error) {
	if c.store == nil {
		return Document{}, ErrUnavailable
	}
	return c.store.Fetch(ctx)
}
