package cache

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestGetEmpty(t *testing.T) {
	c := New[int](time.Minute)

	_, ok := c.Get()
	require.False(t, ok)
}

func TestSetGet(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("hello")

	v, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, "hello", v)
}

func TestExpiry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](10 * time.Minute)
	c.now = func() time.Time { return now }

	c.Set(42)

	now = now.Add(9 * time.Minute)
	v, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, 42, v)

	now = now.Add(time.Minute)
	_, ok = c.Get()
	require.False(t, ok)
}

func TestSetResetsWindow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](10 * time.Minute)
	c.now = func() time.Time { return now }

	c.Set(1)
	now = now.Add(9 * time.Minute)
	c.Set(2)
	now = now.Add(9 * time.Minute)

	v, ok := c.Get()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestGetOrFill(t *testing.T) {
	c := New[map[string]string](time.Minute)

	calls := 0
	fill := func() (map[string]string, error) {
		calls++
		return map[string]string{"alice": "Alice"}, nil
	}

	v, err := c.GetOrFill(fill)
	require.NoError(t, err)
	require.Equal(t, "Alice", v["alice"])

	_, err = c.GetOrFill(fill)
	require.NoError(t, err)
	require.Equal(t, 1, calls, "fresh cache must not refill")
}

func TestGetOrFillError(t *testing.T) {
	c := New[int](time.Minute)

	_, err := c.GetOrFill(func() (int, error) { return 0, errors.New("upstream down") })
	require.Error(t, err)

	_, ok := c.Get()
	require.False(t, ok, "failed fill must not populate the cache")
}
