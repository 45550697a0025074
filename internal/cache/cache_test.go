package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetReturnsStoredValue(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", 42)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestGetMissingKey(t *testing.T) {
	c := New(time.Minute)
	_, ok := c.Get("absent")
	assert.False(t, ok)
}

func TestExpiredEntryNotReturned(t *testing.T) {
	c := New(time.Nanosecond)
	c.Set("k", "v")
	time.Sleep(time.Millisecond)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestSetResetsExpiry(t *testing.T) {
	c := New(50 * time.Millisecond)
	c.Set("k", "old")
	c.Set("k", "new")

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute)
	c.Set("k", "v")
	c.Invalidate("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
}
