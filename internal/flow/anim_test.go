package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEaseOutCubic(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{in: -1, want: 0},
		{in: 0, want: 0},
		{in: 0.5, want: 0.875},
		{in: 1, want: 1},
		{in: 2, want: 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, EaseOutCubic(tt.in), 1e-12, "t=%v", tt.in)
	}
}

func TestAnimation_At(t *testing.T) {
	t0 := time.Unix(1000, 0)
	a := Animation{From: 100, To: 200, Start: t0, Duration: 200 * time.Millisecond, Ease: Linear}

	y, done := a.At(t0.Add(-time.Second))
	assert.Equal(t, 100.0, y)
	assert.False(t, done)

	y, done = a.At(t0.Add(50 * time.Millisecond))
	assert.InDelta(t, 125, y, 1e-9)
	assert.False(t, done)

	y, done = a.At(t0.Add(200 * time.Millisecond))
	assert.Equal(t, 200.0, y)
	assert.True(t, done)

	a.Duration = 0
	y, done = a.At(t0)
	assert.Equal(t, 200.0, y)
	assert.True(t, done)
}

func TestAnimator(t *testing.T) {
	t0 := time.Unix(1000, 0)
	a := NewAnimator(100*time.Millisecond, Linear)

	a.Start("b", 0, 10, t0)
	a.Start("a", 0, 10, t0)
	a.Start("a", 50, 60, t0.Add(50*time.Millisecond))
	assert.Equal(t, 2, a.Len())

	to, ok := a.Target("a")
	require.True(t, ok)
	assert.Equal(t, 60.0, to)

	steps := a.Advance(t0.Add(100 * time.Millisecond))
	require.Len(t, steps, 2)
	assert.Equal(t, Step{NodeID: "a", Y: 55, Done: false}, steps[0])
	assert.Equal(t, Step{NodeID: "b", Y: 10, Done: true}, steps[1])
	assert.Equal(t, 1, a.Len())

	a.Cancel("a")
	assert.False(t, a.Active())
	_, ok = a.Target("a")
	assert.False(t, ok)
	assert.Empty(t, a.Advance(t0.Add(time.Second)))
}
