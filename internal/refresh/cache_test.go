package refresh

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheServesFreshEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache[string](clock, 5*time.Minute)

	cache.Set("a", "first")
	clock.Advance(4 * time.Minute)

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, "first", got)
}

func TestCacheNeverServesExpiredEntries(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache[string](clock, 5*time.Minute)

	cache.Set("a", "first")

	// An entry exactly at its TTL is already expired.
	clock.Advance(5 * time.Minute)
	_, ok := cache.Get("a")
	assert.False(t, ok)
}

func TestCacheSetResetsAge(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache[int](clock, time.Minute)

	cache.Set("a", 1)
	clock.Advance(50 * time.Second)
	cache.Set("a", 2)
	clock.Advance(30 * time.Second)

	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestCacheMissOnUnknownKey(t *testing.T) {
	cache := NewCache[string](clockwork.NewFakeClock(), time.Minute)

	_, ok := cache.Get("nope")
	assert.False(t, ok)
}

func TestCacheDeletePrefix(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := NewCache[int](clock, time.Hour)

	cache.Set("sleeper:99:w1", 1)
	cache.Set("sleeper:99:w2", 2)
	cache.Set("espn:77:w1", 3)

	cache.DeletePrefix("sleeper:99:")

	_, ok := cache.Get("sleeper:99:w1")
	assert.False(t, ok)
	_, ok = cache.Get("sleeper:99:w2")
	assert.False(t, ok)

	got, ok := cache.Get("espn:77:w1")
	require.True(t, ok)
	assert.Equal(t, 3, got)
}
