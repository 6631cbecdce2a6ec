package flow

import (
	"math"
	"slices"
)

// Rank identifies a column.
type Rank int

const (
	RankSource Rank = iota
	RankPool
	RankSink
)

// Box is a node's rectangle in diagram coordinates. Y is the top edge.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CenterY is the vertical middle of the box.
func (b Box) CenterY() float64 { return b.Y + b.Height/2 }

// Contains reports whether the point lies inside the box.
func (b Box) Contains(x, y float64) bool {
	return x >= b.X && x <= b.X+b.Width && y >= b.Y && y <= b.Y+b.Height
}

// Column is a vertical rank of nodes. Order changes while dragging; the set
// of members never does.
type Column struct {
	Rank  Rank
	X     float64
	Order []string
}

// Layout is the mutable geometry of one diagram: a box per node and the
// column each node lives in.
type Layout struct {
	params  Params
	width   float64
	height  float64
	scale   float64
	boxes   map[string]*Box
	rank    map[string]Rank
	columns []*Column
}

// NewLayout places every node of g on a canvas of the given size. Nodes keep
// graph order inside their column.
func NewLayout(g Graph, width, height float64, p Params) *Layout {
	p = p.withDefaults()
	l := &Layout{
		params: p,
		width:  width,
		height: height,
		boxes:  make(map[string]*Box, len(g.Nodes)),
		rank:   make(map[string]Rank, len(g.Nodes)),
	}

	byRank := map[Rank]*Column{}
	for _, n := range g.Nodes {
		r := n.Kind.Rank()
		c, ok := byRank[r]
		if !ok {
			c = &Column{Rank: r}
			byRank[r] = c
		}
		c.Order = append(c.Order, n.ID)
		l.rank[n.ID] = r
	}
	for _, r := range []Rank{RankSource, RankPool, RankSink} {
		if c, ok := byRank[r]; ok {
			l.columns = append(l.columns, c)
		}
	}

	innerW := l.innerWidth()
	span := innerW - p.NodeWidth
	for i, c := range l.columns {
		c.X = p.Margins.Left
		if len(l.columns) > 1 && span > 0 {
			c.X += span * float64(i) / float64(len(l.columns)-1)
		}
	}

	values := make(map[string]float64, len(g.Nodes))
	for _, n := range g.Nodes {
		values[n.ID] = n.Value
	}
	l.scale = l.computeScale(values)

	for _, c := range l.columns {
		for _, id := range c.Order {
			l.boxes[id] = &Box{
				X:      c.X,
				Width:  p.NodeWidth,
				Height: max(p.MinNodeHeight, values[id]*l.scale),
			}
		}
		for id, y := range l.stack(c.Order) {
			l.boxes[id].Y = y
		}
	}
	return l
}

func (l *Layout) innerWidth() float64 {
	return max(0, l.width-l.params.Margins.Left-l.params.Margins.Right)
}

func (l *Layout) innerHeight() float64 {
	return max(0, l.height-l.params.Margins.Top-l.params.Margins.Bottom)
}

// computeScale finds the pixels-per-unit factor shared by all columns. The
// most crowded column dictates it so bar heights compare across columns.
func (l *Layout) computeScale(values map[string]float64) float64 {
	innerH := l.innerHeight()
	k := math.Inf(1)
	for _, c := range l.columns {
		var sum float64
		for _, id := range c.Order {
			sum += values[id]
		}
		cand := (innerH - l.params.NodePadding*float64(len(c.Order)-1)) / sum
		if isUsable(cand) && cand < k {
			k = cand
		}
	}
	if isUsable(k) {
		return k
	}

	var maxValue float64
	for _, v := range values {
		maxValue = max(maxValue, v)
	}
	if k = innerH / maxValue; isUsable(k) {
		return k
	}
	return 1
}

func isUsable(k float64) bool {
	return k > 0 && !math.IsInf(k, 0) && !math.IsNaN(k)
}

// stack returns the top edge each node would get if the column were laid out
// in the given order.
func (l *Layout) stack(order []string) map[string]float64 {
	ys := make(map[string]float64, len(order))
	y := l.params.Margins.Top
	for _, id := range order {
		ys[id] = y
		y += l.boxes[id].Height + l.params.NodePadding
	}
	return ys
}

// Scale is the global value-to-pixel factor.
func (l *Layout) Scale() float64 { return l.scale }

// Size returns the canvas dimensions the layout was computed for.
func (l *Layout) Size() (width, height float64) { return l.width, l.height }

// Box returns a copy of the node's rectangle.
func (l *Layout) Box(id string) (Box, bool) {
	b, ok := l.boxes[id]
	if !ok {
		return Box{}, false
	}
	return *b, true
}

// Boxes returns a copy of every rectangle keyed by node id.
func (l *Layout) Boxes() map[string]Box {
	out := make(map[string]Box, len(l.boxes))
	for id, b := range l.boxes {
		out[id] = *b
	}
	return out
}

// Columns returns copies of the non-empty columns, left to right.
func (l *Layout) Columns() []Column {
	out := make([]Column, 0, len(l.columns))
	for _, c := range l.columns {
		out = append(out, Column{Rank: c.Rank, X: c.X, Order: slices.Clone(c.Order)})
	}
	return out
}

// column returns the live column holding id.
func (l *Layout) column(id string) *Column {
	r, ok := l.rank[id]
	if !ok {
		return nil
	}
	for _, c := range l.columns {
		if c.Rank == r {
			return c
		}
	}
	return nil
}

// bounds returns the vertical range a node's top edge may take.
func (l *Layout) bounds(id string) (top, bottom float64) {
	top = l.params.Margins.Top
	bottom = top + l.innerHeight() - l.boxes[id].Height
	if bottom < top {
		bottom = top
	}
	return top, bottom
}

// Targets returns the committed top edge of every node in id's column for
// the column's current order.
func (l *Layout) Targets(id string) map[string]float64 {
	c := l.column(id)
	if c == nil {
		return nil
	}
	return l.stack(c.Order)
}

// Reorder moves the column order to order, which must be a permutation of the
// current one, and snaps every box of that column to its slot.
func (l *Layout) Reorder(rank Rank, order []string) bool {
	for _, c := range l.columns {
		if c.Rank != rank {
			continue
		}
		if !samePermutation(c.Order, order) {
			return false
		}
		c.Order = slices.Clone(order)
		for id, y := range l.stack(c.Order) {
			l.boxes[id].Y = y
		}
		return true
	}
	return false
}

func samePermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
