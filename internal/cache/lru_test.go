package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var evicted []string
	c := NewLRUCache[int](10, time.Minute,
		WithClock[int](clock.Now),
		WithEvictHook(func(key string, _ int) { evicted = append(evicted, key) }),
	)

	c.Set("a", 1)
	clock.Advance(50 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	// The read above pushed the deadline out by another minute.
	clock.Advance(50 * time.Second)
	_, ok = c.Get("a")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, evicted)
}

func TestLRUCache_Capacity(t *testing.T) {
	var evicted []string
	c := NewLRUCache[string](2, time.Hour,
		WithEvictHook(func(key string, _ string) { evicted = append(evicted, key) }),
	)

	c.Set("a", "A")
	c.Set("b", "B")
	_, _ = c.Get("a")
	c.Set("c", "C")

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, evicted)
	assert.Equal(t, []string{"c", "a"}, c.Keys())

	c.Delete("a")
	assert.Equal(t, 1, c.Size())
	assert.Equal(t, []string{"b"}, evicted)

	assert.True(t, c.Remove("c"))
	assert.False(t, c.Remove("c"))
	assert.Zero(t, c.Size())
	assert.Equal(t, []string{"b"}, evicted)
}

func TestManager_Sweep(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewLRUCache[int](10, time.Second, WithClock[int](clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)

	m := NewManager(nil)
	m.Register("numbers", c)

	assert.Empty(t, m.Sweep())
	clock.Advance(2 * time.Second)
	assert.Equal(t, map[string]int{"numbers": 2}, m.Sweep())
	assert.Zero(t, c.Size())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
