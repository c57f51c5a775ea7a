package slack

import (
	"context"
	"sync"
	"time"
)

// cacheEntry pairs conversation metadata with its fetch time. An entry is
// valid only while now-fetchedAt < ttl; expired entries are treated as
// absent and purged on next access.
type cacheEntry struct {
	conv      *Conversation
	fetchedAt time.Time
}

// ConversationCache is a TTL-bounded store of conversation metadata with
// fetch-on-miss semantics. Eviction is lazy: nothing is removed except by
// being overwritten on a fresh fetch, and there is no background sweep.
type ConversationCache struct {
	mu      sync.Mutex
	api     ConversationAPI
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

// NewConversationCache creates a cache backed by the given API with the
// given entry lifetime. The TTL is validated at config load; a zero TTL
// here simply makes every access a fresh fetch.
func NewConversationCache(api ConversationAPI, ttl time.Duration) *ConversationCache {
	return &ConversationCache{
		api:     api,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// Resolve returns conversation metadata, serving from cache while the entry
// is within TTL and fetching fresh metadata otherwise. A fetch failure is
// propagated to the caller and nothing is cached for it.
func (c *ConversationCache) Resolve(ctx context.Context, conversationID string) (*Conversation, error) {
	c.mu.Lock()
	entry, ok := c.entries[conversationID]
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return entry.conv, nil
	}
	if ok {
		delete(c.entries, conversationID)
	}
	c.mu.Unlock()

	conv, err := c.api.GetConversationInfo(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[conversationID] = cacheEntry{conv: conv, fetchedAt: c.now()}
	c.mu.Unlock()
	return conv, nil
}
