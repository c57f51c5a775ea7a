package slack

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(api *fakeConversationAPI, ttl time.Duration) (*ConversationCache, *time.Time) {
	cache := NewConversationCache(api, ttl)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	return cache, &now
}

func TestResolveServesFromCacheWithinTTL(t *testing.T) {
	api := &fakeConversationAPI{convs: map[string]*Conversation{
		"C1": {ID: "C1", Name: "general"},
	}}
	cache, now := newTestCache(api, 5*time.Minute)

	conv, err := cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "general", conv.Name)
	assert.Equal(t, 1, api.calls)

	*now = now.Add(4 * time.Minute)
	_, err = cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls, "a resolve within TTL must not hit the network")
}

func TestResolveRefetchesAfterExpiry(t *testing.T) {
	api := &fakeConversationAPI{convs: map[string]*Conversation{
		"C1": {ID: "C1", Name: "general"},
	}}
	cache, now := newTestCache(api, 5*time.Minute)

	_, err := cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)

	*now = now.Add(5 * time.Minute)
	_, err = cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls, "a resolve after expiry must fetch exactly once more")

	*now = now.Add(time.Minute)
	_, err = cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, api.calls, "the refreshed entry restarts the TTL window")
}

func TestResolveFetchFailureIsNotCached(t *testing.T) {
	api := &fakeConversationAPI{err: &APIError{Method: "conversations.info", Code: "fatal_error"}}
	cache, _ := newTestCache(api, 5*time.Minute)

	_, err := cache.Resolve(context.Background(), "C1")
	require.Error(t, err)
	assert.Equal(t, 1, api.calls)

	// A later resolve retries the fetch and succeeds.
	api.mu.Lock()
	api.err = nil
	api.convs = map[string]*Conversation{"C1": {ID: "C1"}}
	api.mu.Unlock()

	conv, err := cache.Resolve(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", conv.ID)
	assert.Equal(t, 2, api.calls)
}

func TestResolveZeroTTLAlwaysFetches(t *testing.T) {
	api := &fakeConversationAPI{convs: map[string]*Conversation{
		"C1": {ID: "C1"},
	}}
	cache, _ := newTestCache(api, 0)

	for i := 0; i < 3; i++ {
		_, err := cache.Resolve(context.Background(), "C1")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, api.calls)
}
