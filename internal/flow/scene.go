package flow

// EmptyMessage is shown instead of a diagram when there is nothing to draw.
const EmptyMessage = "Add some income or expenses to see where your money goes."

// Scene is an immutable snapshot of a diagram, ready for a renderer.
type Scene struct {
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	Empty     bool        `json:"empty"`
	Message   string      `json:"message,omitempty"`
	Nodes     []SceneNode `json:"nodes"`
	Links     []SceneLink `json:"links"`
	View      Viewport    `json:"view"`
	Focus     string      `json:"focus,omitempty"`
	Animating bool        `json:"animating"`
	// SettleMS and FadeMS are the transition lengths, in milliseconds, a
	// renderer should use for position and opacity changes.
	SettleMS int64 `json:"settle_ms"`
	FadeMS   int64 `json:"fade_ms"`
}

// SceneNode is a node with its resolved style.
type SceneNode struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	Value       float64   `json:"value"`
	Box         Box       `json:"box"`
	Color       string    `json:"color"`
	Opacity     float64   `json:"opacity"`
	StrokeWidth float64   `json:"stroke_width"`
	Active      bool      `json:"active"`
	State       DragState `json:"state"`
}

// SceneLink is a ribbon with its resolved style.
type SceneLink struct {
	Ribbon
	Path    string  `json:"path"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
	Active  bool    `json:"active"`
}

// EmptyScene is the placeholder scene for a canvas with no usable entries.
func EmptyScene(width, height float64, p Params) Scene {
	p = p.withDefaults()
	return Scene{
		Width:    width,
		Height:   height,
		Empty:    true,
		Message:  EmptyMessage,
		View:     newViewport(p.MinZoom, p.MaxZoom),
		SettleMS: p.SettleDuration.Milliseconds(),
		FadeMS:   p.FadeDuration.Milliseconds(),
	}
}

// Scene snapshots the diagram. The dragged node is listed last so renderers
// paint it on top.
func (d *Diagram) Scene() Scene {
	w, h := d.layout.Size()
	s := Scene{
		Width:     w,
		Height:    h,
		View:      d.view,
		Focus:     d.highlight.Focus,
		Animating: d.anim.Active(),
		SettleMS:  d.params.SettleDuration.Milliseconds(),
		FadeMS:    d.params.FadeDuration.Milliseconds(),
		Nodes:     make([]SceneNode, 0, len(d.graph.Nodes)),
		Links:     make([]SceneLink, 0, len(d.ribbons)),
	}
	op := d.params.Opacity
	hl := d.highlight

	kinds := make(map[string]Kind, len(d.graph.Nodes))
	var dragged *SceneNode
	for _, n := range d.graph.Nodes {
		kinds[n.ID] = n.Kind
		sn := SceneNode{
			ID:          n.ID,
			Name:        n.Name,
			Kind:        n.Kind,
			Value:       n.Value,
			Box:         *d.layout.boxes[n.ID],
			Color:       d.params.Colors.Color(n.Kind),
			Opacity:     op.NodeNeutral,
			StrokeWidth: op.StrokeThin,
			State:       d.states[n.ID],
		}
		if hl.Active() {
			if hl.Nodes[n.ID] {
				sn.Active = true
				sn.StrokeWidth = op.StrokeActive
			} else {
				sn.Opacity = op.NodeDimmed
			}
		}
		if d.active != nil && d.active.id == n.ID {
			dragged = &sn
			continue
		}
		s.Nodes = append(s.Nodes, sn)
	}
	if dragged != nil {
		s.Nodes = append(s.Nodes, *dragged)
	}

	for _, r := range d.ribbons {
		sl := SceneLink{
			Ribbon:  r,
			Path:    r.Path(),
			Color:   d.params.Colors.Color(kinds[r.Source]),
			Opacity: op.LinkNeutral,
		}
		if hl.Active() {
			if hl.Links[r.Index] {
				sl.Active = true
				sl.Opacity = op.LinkActive
			} else {
				sl.Opacity = op.LinkDimmed
			}
		}
		s.Links = append(s.Links, sl)
	}
	return s
}
