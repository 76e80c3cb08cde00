package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededCache(maxAge, staleFor time.Duration) (*Cache, *MemoryStore) {
	store := NewMemoryStore()
	return NewWithOpts(Opts{Store: store, MaxAge: maxAge, StaleFor: staleFor}), store
}

// TestLookup_Fresh tests that an entry younger than maxAge serves fresh.
func TestLookup_Fresh(t *testing.T) {
	c, store := seededCache(time.Hour, time.Hour)
	store.Set(context.Background(), "k", &Entry{Status: 200, Body: []byte("hi"), StoredAt: time.Now()}, 0)

	e, fresh, ok := c.Lookup(context.Background(), "k")
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, 200, e.Status)
	assert.Equal(t, []byte("hi"), e.Body)
}

// TestLookup_Stale tests the serve-stale window between maxAge and
// maxAge+staleFor.
func TestLookup_Stale(t *testing.T) {
	c, store := seededCache(time.Hour, time.Hour)
	store.Set(context.Background(), "k", &Entry{Status: 200, StoredAt: time.Now().Add(-90 * time.Minute)}, 0)

	e, fresh, ok := c.Lookup(context.Background(), "k")
	require.True(t, ok)
	assert.False(t, fresh)
	assert.NotNil(t, e)
}

// TestLookup_Expired tests that entries past maxAge+staleFor read as absent.
func TestLookup_Expired(t *testing.T) {
	c, store := seededCache(time.Hour, time.Hour)
	store.Set(context.Background(), "k", &Entry{Status: 200, StoredAt: time.Now().Add(-3 * time.Hour)}, 0)

	_, _, ok := c.Lookup(context.Background(), "k")
	assert.False(t, ok)
}

// TestLookup_Miss tests the absent-key path.
func TestLookup_Miss(t *testing.T) {
	c, _ := seededCache(time.Hour, time.Hour)

	_, _, ok := c.Lookup(context.Background(), "nope")
	assert.False(t, ok)
}

// TestStore_RoundTrip tests that a stored payload comes back fresh.
func TestStore_RoundTrip(t *testing.T) {
	c, _ := seededCache(time.Hour, time.Hour)
	c.Store(context.Background(), "k", 201, []byte(`{"ok":true}`))

	e, fresh, ok := c.Lookup(context.Background(), "k")
	require.True(t, ok)
	assert.True(t, fresh)
	assert.Equal(t, 201, e.Status)
	assert.JSONEq(t, `{"ok":true}`, string(e.Body))
}

// TestStore_Overwrite tests last-write-wins per key.
func TestStore_Overwrite(t *testing.T) {
	c, _ := seededCache(time.Hour, time.Hour)
	c.Store(context.Background(), "k", 200, []byte("old"))
	c.Store(context.Background(), "k", 200, []byte("new"))

	e, _, ok := c.Lookup(context.Background(), "k")
	require.True(t, ok)
	assert.Equal(t, []byte("new"), e.Body)
}

// TestNewWithOpts_Defaults tests the zero-value option fallbacks.
func TestNewWithOpts_Defaults(t *testing.T) {
	c := NewWithOpts(Opts{})
	assert.Equal(t, DefaultMaxAge, c.MaxAge())
	assert.Equal(t, DefaultStaleFor, c.StaleFor())

	// The default store is usable immediately.
	c.Store(context.Background(), "k", 200, []byte("x"))
	_, _, ok := c.Lookup(context.Background(), "k")
	assert.True(t, ok)
}
