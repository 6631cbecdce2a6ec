package flow

import (
	"sort"
	"time"
)

// EaseFunc maps linear progress in [0,1] to eased progress in [0,1].
type EaseFunc func(t float64) float64

// EaseOutCubic decelerates towards the end.
func EaseOutCubic(t float64) float64 {
	t = clamp(t, 0, 1) - 1
	return t*t*t + 1
}

// Linear is the identity ease.
func Linear(t float64) float64 { return clamp(t, 0, 1) }

// Animation moves one node's top edge from From to To.
type Animation struct {
	NodeID   string
	From     float64
	To       float64
	Start    time.Time
	Duration time.Duration
	Ease     EaseFunc
}

// At returns the animated value at now and whether the animation is over.
func (a Animation) At(now time.Time) (float64, bool) {
	if a.Duration <= 0 {
		return a.To, true
	}
	elapsed := now.Sub(a.Start)
	if elapsed >= a.Duration {
		return a.To, true
	}
	if elapsed < 0 {
		elapsed = 0
	}
	ease := a.Ease
	if ease == nil {
		ease = Linear
	}
	p := ease(float64(elapsed) / float64(a.Duration))
	return a.From + (a.To-a.From)*p, false
}

// Animator is the table of in-flight animations, at most one per node.
// Starting an animation for a node replaces whatever that node was doing.
type Animator struct {
	duration time.Duration
	ease     EaseFunc
	tracks   map[string]Animation
}

// NewAnimator returns an empty table using the given timing for new tracks.
func NewAnimator(duration time.Duration, ease EaseFunc) *Animator {
	return &Animator{duration: duration, ease: ease, tracks: map[string]Animation{}}
}

// Start begins moving id from 'from' to 'to'.
func (a *Animator) Start(id string, from, to float64, now time.Time) {
	a.tracks[id] = Animation{
		NodeID:   id,
		From:     from,
		To:       to,
		Start:    now,
		Duration: a.duration,
		Ease:     a.ease,
	}
}

// Cancel drops id's animation. The node stays wherever it was last put.
func (a *Animator) Cancel(id string) { delete(a.tracks, id) }

// Target returns where id is heading, if it is animating.
func (a *Animator) Target(id string) (float64, bool) {
	t, ok := a.tracks[id]
	return t.To, ok
}

// Active reports whether anything is still moving.
func (a *Animator) Active() bool { return len(a.tracks) > 0 }

// Len is the number of in-flight animations.
func (a *Animator) Len() int { return len(a.tracks) }

// Step is one node's position for the current frame.
type Step struct {
	NodeID string
	Y      float64
	Done   bool
}

// Advance evaluates every animation at now, removes the finished ones and
// returns the positions sorted by node id.
func (a *Animator) Advance(now time.Time) []Step {
	steps := make([]Step, 0, len(a.tracks))
	for id, t := range a.tracks {
		y, done := t.At(now)
		steps = append(steps, Step{NodeID: id, Y: y, Done: done})
		if done {
			delete(a.tracks, id)
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].NodeID < steps[j].NodeID })
	return steps
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
