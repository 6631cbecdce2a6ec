// Package render draws flow scenes as standalone SVG documents.
package render

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"

	"bilancio/internal/core"
	"bilancio/internal/flow"
)

// ContentType is the media type of SVG output.
const ContentType = "image/svg+xml"

// DefaultTitle is the accessible name given to every diagram.
const DefaultTitle = "Budget flow diagram"

// labelGap is the distance between a node's right edge and its label.
const labelGap = 6

//go:embed diagram.svg.tmpl
var diagramTemplate string

var tmpl = template.Must(template.New("diagram.svg").Funcs(template.FuncMap{
	"num":    formatNumber,
	"amount": core.FormatAmount,
	"labelX": func(b flow.Box) string { return formatNumber(b.X + b.Width + labelGap) },
}).Parse(diagramTemplate))

type sceneView struct {
	flow.Scene
	Title string
}

func (v sceneView) CenterX() float64 { return v.Width / 2 }
func (v sceneView) CenterY() float64 { return v.Height / 2 }

// SVG writes the scene as an SVG document. Labels and colours are escaped,
// so entry names typed by users are safe to embed in a page.
func SVG(w io.Writer, s flow.Scene) error {
	if err := tmpl.Execute(w, sceneView{Scene: s, Title: DefaultTitle}); err != nil {
		return fmt.Errorf("render svg: %w", err)
	}
	return nil
}

// Bytes renders the scene into memory.
func Bytes(s flow.Scene) ([]byte, error) {
	var buf bytes.Buffer
	if err := SVG(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Inline renders the scene for embedding inside an HTML template.
func Inline(s flow.Scene) (template.HTML, error) {
	b, err := Bytes(s)
	if err != nil {
		return "", err
	}
	return template.HTML(b), nil
}

// formatNumber prints coordinates with at most two decimals.
func formatNumber(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drops the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// Budget renders raw entries straight to SVG at the given size. Entries with
// nothing to draw produce the empty-state placeholder rather than an error.
func Budget(income, expense []core.RawEntry, width, height float64, p flow.Params) ([]byte, error) {
	d, err := flow.Render(income, expense, width, height, p)
	if errors.Is(err, flow.ErrEmpty) {
		return Bytes(flow.EmptyScene(width, height, p))
	}
	if err != nil {
		return nil, err
	}
	return Bytes(d.Scene())
}
