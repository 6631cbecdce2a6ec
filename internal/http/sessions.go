package http

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/flow"
	"bilancio/internal/metrics"
)

// session is one interactive diagram held in memory between requests. A nil
// diagram means the entries had nothing to draw.
type session struct {
	mu       sync.Mutex
	id       string
	budgetID string
	diagram  *flow.Diagram
	empty    flow.Scene
}

// pointerEvent is a pointer action in screen coordinates.
type pointerEvent struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// clickEvent selects exactly one of a node, a link or the background.
type clickEvent struct {
	Node       string `json:"node,omitempty"`
	Link       *int   `json:"link,omitempty"`
	Background bool   `json:"background,omitempty"`
}

// viewEvent zooms by Zoom around (CX, CY), then pans by (DX, DY). Reset
// returns to the identity view first.
type viewEvent struct {
	Zoom  float64 `json:"zoom,omitempty"`
	CX    float64 `json:"cx,omitempty"`
	CY    float64 `json:"cy,omitempty"`
	DX    float64 `json:"dx,omitempty"`
	DY    float64 `json:"dy,omitempty"`
	Reset bool    `json:"reset,omitempty"`
}

var errBadEvent = errors.New("invalid event")

func (s *session) scene() flow.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneLocked()
}

func (s *session) sceneLocked() flow.Scene {
	if s.diagram == nil {
		return s.empty
	}
	return s.diagram.Scene()
}

func (s *session) pointer(ev pointerEvent, now time.Time) (flow.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return s.empty, nil
	}
	switch ev.Type {
	case "down":
		s.diagram.PointerDown(ev.X, ev.Y, now)
	case "move":
		s.diagram.PointerMove(ev.X, ev.Y, now)
	case "up":
		s.diagram.PointerUp(now)
	default:
		return flow.Scene{}, fmt.Errorf("%w: pointer type %q", errBadEvent, ev.Type)
	}
	return s.diagram.Scene(), nil
}

func (s *session) tick(now time.Time) flow.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return s.empty
	}
	s.diagram.Tick(now)
	return s.diagram.Scene()
}

func (s *session) click(ev clickEvent) (flow.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return s.empty, nil
	}
	var err error
	switch {
	case ev.Node != "":
		err = s.diagram.ClickNode(ev.Node)
	case ev.Link != nil:
		err = s.diagram.ClickLink(*ev.Link)
	case ev.Background:
		s.diagram.ClickBackground()
	default:
		err = fmt.Errorf("%w: click needs node, link or background", errBadEvent)
	}
	if err != nil {
		return flow.Scene{}, err
	}
	return s.diagram.Scene(), nil
}

func (s *session) view(ev viewEvent) flow.Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.diagram == nil {
		return s.empty
	}
	if ev.Reset {
		s.diagram.ResetView()
	}
	if ev.Zoom != 0 {
		s.diagram.Zoom(ev.Zoom, ev.CX, ev.CY)
	}
	if ev.DX != 0 || ev.DY != 0 {
		s.diagram.Pan(ev.DX, ev.DY)
	}
	return s.diagram.Scene()
}

// sessionStore keeps the most recently used sessions; idle ones expire.
type sessionStore struct {
	cache  *cache.LRUCache[*session]
	params flow.Params
	newID  func() string
}

func newSessionStore(maxSize int, ttl time.Duration, p flow.Params, now func() time.Time) *sessionStore {
	c := cache.NewLRUCache[*session](maxSize, ttl,
		cache.WithClock[*session](now),
		cache.WithEvictHook(func(string, *session) { metrics.ActiveSessions.Dec() }),
	)
	return &sessionStore{cache: c, params: p, newID: uuid.NewString}
}

// create builds a diagram from the entries and stores it under a new id.
func (st *sessionStore) create(budgetID string, income, expense []core.RawEntry, width, height float64) (*session, error) {
	s := &session{id: st.newID(), budgetID: budgetID}
	d, err := flow.Render(income, expense, width, height, st.params)
	switch {
	case errors.Is(err, flow.ErrEmpty):
		s.empty = flow.EmptyScene(width, height, st.params)
	case err != nil:
		return nil, err
	default:
		s.diagram = d
	}

	st.cache.Set(s.id, s)
	metrics.ActiveSessions.Inc()
	return s, nil
}

func (st *sessionStore) get(id string) (*session, bool) {
	return st.cache.Get(id)
}

func (st *sessionStore) delete(id string) bool {
	if !st.cache.Remove(id) {
		return false
	}
	metrics.ActiveSessions.Dec()
	return true
}
