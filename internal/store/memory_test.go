package store

import (
	"testing"

	"github.com/keepmind9/slackbridge/internal/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()

	_, ok := s.Get("U1")
	assert.False(t, ok)

	require.NoError(t, s.Set(&slack.User{ID: "U1", Name: "alice"}))

	u, ok := s.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreReplacesOnSet(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(&slack.User{ID: "U1", Name: "alice"}))
	require.NoError(t, s.Set(&slack.User{ID: "U1", Name: "alicia"}))

	u, ok := s.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "alicia", u.Name)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStoreCopiesRecords(t *testing.T) {
	s := NewMemoryStore()
	original := &slack.User{
		ID:      "U1",
		Name:    "alice",
		Profile: map[string]any{"email": "alice@example.com"},
		Extra:   map[string]any{"vip": true},
	}
	require.NoError(t, s.Set(original))

	// Mutating the caller's record must not leak into the store.
	original.Name = "mutated"
	original.Extra["vip"] = false

	u, ok := s.Get("U1")
	require.True(t, ok)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, true, u.Extra["vip"])

	// Mutating a returned record must not leak either.
	u.Profile["email"] = "evil@example.com"
	again, _ := s.Get("U1")
	assert.Equal(t, "alice@example.com", again.Profile["email"])
}

func TestMemoryStoreClose(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Close())
}
