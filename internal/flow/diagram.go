package flow

import (
	"fmt"
	"math"
	"slices"
	"time"

	"bilancio/internal/core"
)

// DragState is where a node is in the drag cycle.
type DragState int

const (
	StateIdle DragState = iota
	StateDragging
	StateSettling
)

var stateNames = [...]string{"idle", "dragging", "settling"}

func (s DragState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText makes states readable in JSON scenes.
func (s DragState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

type drag struct {
	id string
	// offset is the pointer's distance from the node's top edge at grab time.
	offset float64
	// snapY is the slot the node commits to on release.
	snapY float64
}

// Diagram is one interactive flow diagram. It is not safe for concurrent
// use; callers serialise pointer events, ticks and reads.
type Diagram struct {
	params    Params
	graph     Graph
	layout    *Layout
	anim      *Animator
	states    map[string]DragState
	active    *drag
	highlight Highlight
	view      Viewport
	ribbons   []Ribbon
}

// Render parses the raw entries, builds the graph and lays it out on a
// width×height canvas. It returns ErrEmpty when there is nothing to draw.
func Render(income, expense []core.RawEntry, width, height float64, p Params) (*Diagram, error) {
	g, err := BuildGraph(core.ParseAll(income), core.ParseAll(expense))
	if err != nil {
		return nil, err
	}
	return New(g, width, height, p), nil
}

// New lays out an already built graph.
func New(g Graph, width, height float64, p Params) *Diagram {
	p = p.withDefaults()
	d := &Diagram{
		params: p,
		graph:  g,
		layout: NewLayout(g, width, height, p),
		anim:   NewAnimator(p.SettleDuration, p.Ease),
		states: make(map[string]DragState, len(g.Nodes)),
		view:   newViewport(p.MinZoom, p.MaxZoom),
	}
	d.reroute()
	return d
}

// Graph returns the diagram's graph.
func (d *Diagram) Graph() Graph { return d.graph }

// Layout exposes the live layout for read access.
func (d *Diagram) Layout() *Layout { return d.layout }

// Ribbons returns the link geometry computed after the last mutation.
func (d *Diagram) Ribbons() []Ribbon { return slices.Clone(d.ribbons) }

// State returns the drag state of a node.
func (d *Diagram) State(id string) DragState { return d.states[id] }

// Dragging returns the node currently held by the pointer.
func (d *Diagram) Dragging() (string, bool) {
	if d.active == nil {
		return "", false
	}
	return d.active.id, true
}

// Animating reports whether a tick would still move something.
func (d *Diagram) Animating() bool { return d.anim.Active() }

// Order returns the current top-to-bottom order of a column.
func (d *Diagram) Order(r Rank) []string {
	for _, c := range d.layout.columns {
		if c.Rank == r {
			return slices.Clone(c.Order)
		}
	}
	return nil
}

func (d *Diagram) reroute() {
	d.ribbons = Route(d.graph, d.layout)
}

// HitTest returns the node under the screen point. The dragged node wins
// over anything it overlaps.
func (d *Diagram) HitTest(x, y float64) (string, bool) {
	px, py := d.view.ToDiagram(x, y)
	if d.active != nil && d.layout.boxes[d.active.id].Contains(px, py) {
		return d.active.id, true
	}
	for _, n := range d.graph.Nodes {
		if d.layout.boxes[n.ID].Contains(px, py) {
			return n.ID, true
		}
	}
	return "", false
}

// PointerDown grabs the node under the screen point, if any.
func (d *Diagram) PointerDown(x, y float64, now time.Time) (string, bool) {
	id, ok := d.HitTest(x, y)
	if !ok {
		return "", false
	}
	if err := d.BeginDrag(id, y, now); err != nil {
		return "", false
	}
	return id, true
}

// BeginDrag grabs node id with the pointer at screen height y. Any easing
// still running on that node is interrupted and the node stays where it was,
// but its snap target is the committed slot for the column's current order.
// A drag already in progress on another node is released first.
func (d *Diagram) BeginDrag(id string, y float64, now time.Time) error {
	box, ok := d.layout.boxes[id]
	if !ok {
		return fmt.Errorf("begin drag %q: %w", id, ErrUnknownNode)
	}
	if d.active != nil && d.active.id != id {
		d.PointerUp(now)
	}
	d.anim.Cancel(id)
	_, py := d.view.ToDiagram(0, y)
	d.active = &drag{id: id, offset: py - box.Y, snapY: d.layout.Targets(id)[id]}
	d.states[id] = StateDragging
	d.reroute()
	return nil
}

// PointerMove follows the pointer with the dragged node, reorders its column
// live and recomputes the link geometry before returning.
func (d *Diagram) PointerMove(x, y float64, now time.Time) {
	if d.active == nil {
		return
	}
	id := d.active.id
	box := d.layout.boxes[id]
	_, py := d.view.ToDiagram(x, y)
	top, bottom := d.layout.bounds(id)
	box.Y = clamp(py-d.active.offset, top, bottom)

	d.reorder(id, now)
	d.reroute()
}

// reorder finds the slot the dragged node's centre falls into, moves it
// there and sends every other node of the column easing to its new slot.
func (d *Diagram) reorder(id string, now time.Time) {
	c := d.layout.column(id)
	box := d.layout.boxes[id]
	center := box.CenterY()
	top := d.params.Margins.Top
	bottom := top + d.layout.innerHeight()

	current := slices.Index(c.Order, id)
	others := slices.Delete(slices.Clone(c.Order), current, current+1)

	// The insertion index is the number of slot centres the dragged centre
	// lies strictly below.
	idx := len(others)
	switch {
	case center <= top+d.params.SnapZone:
		idx = 0
	case center >= bottom-d.params.SnapZone:
		idx = len(others)
	default:
		y := top
		for i, o := range others {
			h := d.layout.boxes[o].Height
			if center <= y+h/2 {
				idx = i
				break
			}
			y += h + d.params.NodePadding
		}
	}
	if idx != current {
		c.Order = slices.Insert(others, idx, id)
	}

	targets := d.layout.stack(c.Order)
	d.active.snapY = targets[id]
	for _, o := range c.Order {
		if o == id {
			continue
		}
		target := targets[o]
		if heading, ok := d.anim.Target(o); ok {
			if heading != target {
				d.anim.Start(o, d.layout.boxes[o].Y, target, now)
			}
			continue
		}
		if math.Abs(d.layout.boxes[o].Y-target) > d.params.SettleEpsilon {
			d.anim.Start(o, d.layout.boxes[o].Y, target, now)
		}
	}
}

// PointerUp releases the dragged node. It eases into its slot, or commits at
// once when it is already there.
func (d *Diagram) PointerUp(now time.Time) {
	if d.active == nil {
		return
	}
	id, snap := d.active.id, d.active.snapY
	d.active = nil

	box := d.layout.boxes[id]
	if math.Abs(box.Y-snap) <= d.params.SettleEpsilon {
		box.Y = snap
		d.states[id] = StateIdle
	} else {
		d.states[id] = StateSettling
		d.anim.Start(id, box.Y, snap, now)
	}
	d.reroute()
}

// Tick advances every running animation to now, applies the positions and
// recomputes the links. It reports whether more ticks are needed.
func (d *Diagram) Tick(now time.Time) bool {
	for _, s := range d.anim.Advance(now) {
		d.layout.boxes[s.NodeID].Y = s.Y
		if s.Done && d.states[s.NodeID] == StateSettling {
			d.states[s.NodeID] = StateIdle
		}
	}
	d.reroute()
	return d.anim.Active()
}

// ClickNode focuses the highlight on everything connected to id.
func (d *Diagram) ClickNode(id string) error {
	if _, ok := d.graph.Node(id); !ok {
		return fmt.Errorf("click %q: %w", id, ErrUnknownNode)
	}
	d.highlight = Connected(d.graph, id)
	return nil
}

// ClickLink focuses the highlight starting from the link's source node.
func (d *Diagram) ClickLink(index int) error {
	if index < 0 || index >= len(d.graph.Links) {
		return fmt.Errorf("click link %d: out of range", index)
	}
	d.highlight = Connected(d.graph, d.graph.Links[index].Source)
	return nil
}

// ClickBackground clears the highlight.
func (d *Diagram) ClickBackground() { d.highlight = Highlight{} }

// Highlight returns the current focus.
func (d *Diagram) Highlight() Highlight { return d.highlight }

// Zoom scales the view around a screen point.
func (d *Diagram) Zoom(factor, cx, cy float64) { d.view.Zoom(factor, cx, cy) }

// Pan moves the view.
func (d *Diagram) Pan(dx, dy float64) { d.view.Pan(dx, dy) }

// ResetView goes back to the unzoomed, unpanned view.
func (d *Diagram) ResetView() { d.view.Reset() }

// View returns the current pan/zoom transform.
func (d *Diagram) View() Viewport { return d.view }
