package flow

import (
	"strconv"
	"strings"
)

// Ribbon is the drawable shape of one link: a band leaving a slice of the
// source node's right edge and entering a slice of the target node's left
// edge.
type Ribbon struct {
	Index  int     `json:"index"`
	Source string  `json:"source"`
	Target string  `json:"target"`
	Value  float64 `json:"value"`

	X0       float64 `json:"x0"`
	X1       float64 `json:"x1"`
	Y0Top    float64 `json:"y0_top"`
	Y0Bottom float64 `json:"y0_bottom"`
	Y1Top    float64 `json:"y1_top"`
	Y1Bottom float64 `json:"y1_bottom"`
}

// Route computes a ribbon for every link of g against the current boxes of l.
// Slices are stacked per node in link order. No state survives the call, so
// it is safe to run on every pointer move or animation tick.
func Route(g Graph, l *Layout) []Ribbon {
	in, out := g.Flows()
	srcOffset := make(map[string]float64, len(g.Nodes))
	dstOffset := make(map[string]float64, len(g.Nodes))

	ribbons := make([]Ribbon, 0, len(g.Links))
	for i, link := range g.Links {
		src, okS := l.boxes[link.Source]
		dst, okD := l.boxes[link.Target]
		if !okS || !okD {
			continue
		}
		h0 := slice(link.Value, out[link.Source], src.Height)
		h1 := slice(link.Value, in[link.Target], dst.Height)

		r := Ribbon{
			Index:  i,
			Source: link.Source,
			Target: link.Target,
			Value:  link.Value,
			X0:     src.X + src.Width,
			X1:     dst.X,
		}
		r.Y0Top = src.Y + srcOffset[link.Source]
		r.Y0Bottom = r.Y0Top + h0
		r.Y1Top = dst.Y + dstOffset[link.Target]
		r.Y1Bottom = r.Y1Top + h1
		srcOffset[link.Source] += h0
		dstOffset[link.Target] += h1

		ribbons = append(ribbons, r)
	}
	return ribbons
}

func slice(value, total, height float64) float64 {
	if total <= 0 {
		return 0
	}
	return value / total * height
}

// Path returns SVG path data for the ribbon: two cubic curves with control
// points at the horizontal midpoint, closed along the node edges.
func (r Ribbon) Path() string {
	xm := (r.X0 + r.X1) / 2
	var b strings.Builder
	b.Grow(128)
	b.WriteString("M")
	point(&b, r.X0, r.Y0Top)
	b.WriteString("C")
	point(&b, xm, r.Y0Top)
	b.WriteByte(' ')
	point(&b, xm, r.Y1Top)
	b.WriteByte(' ')
	point(&b, r.X1, r.Y1Top)
	b.WriteString("L")
	point(&b, r.X1, r.Y1Bottom)
	b.WriteString("C")
	point(&b, xm, r.Y1Bottom)
	b.WriteByte(' ')
	point(&b, xm, r.Y0Bottom)
	b.WriteByte(' ')
	point(&b, r.X0, r.Y0Bottom)
	b.WriteString("Z")
	return b.String()
}

func point(b *strings.Builder, x, y float64) {
	b.WriteString(strconv.FormatFloat(x, 'f', 2, 64))
	b.WriteByte(',')
	b.WriteString(strconv.FormatFloat(y, 'f', 2, 64))
}
