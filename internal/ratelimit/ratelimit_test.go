package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinLimit(t *testing.T) {
	l := New(3, time.Minute)
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.True(t, l.Allow("client-a"))
	assert.False(t, l.Allow("client-a"))
}

func TestAllowPerClientIsolated(t *testing.T) {
	l := New(1, time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	assert.False(t, l.Allow("a"))
}

func TestAllowWindowSlides(t *testing.T) {
	l := New(1, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	l.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.True(t, l.Allow("a"))
}
