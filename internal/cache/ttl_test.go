package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func TestTTL_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)}
	c := NewTTL[string](30*time.Second, clock.Now)

	c.Set("mode", "on")
	v, ok := c.Get("mode")
	require.True(t, ok)
	assert.Equal(t, "on", v)

	clock.Advance(29 * time.Second)
	_, ok = c.Get("mode")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("mode")
	assert.False(t, ok)
}

func TestTTL_GetOrLoad(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewTTL[int](time.Minute, clock.Now)
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, calls)

	c.Invalidate("k")
	_, _ = c.GetOrLoad("k", load)
	assert.Equal(t, 2, calls)

	_, err := c.GetOrLoad("bad", func() (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok)
}
