package flow

// Viewport is the pan/zoom transform applied to the whole scene:
// screen = diagram*Scale + (TX, TY).
type Viewport struct {
	Scale float64 `json:"scale"`
	TX    float64 `json:"tx"`
	TY    float64 `json:"ty"`

	min, max float64
}

func newViewport(minZoom, maxZoom float64) Viewport {
	return Viewport{Scale: 1, min: minZoom, max: maxZoom}
}

// ToDiagram converts a screen point into diagram coordinates.
func (v Viewport) ToDiagram(x, y float64) (float64, float64) {
	return (x - v.TX) / v.Scale, (y - v.TY) / v.Scale
}

// Zoom multiplies the scale by factor, bounded to the configured range, and
// keeps the screen point (cx, cy) over the same diagram point.
func (v *Viewport) Zoom(factor, cx, cy float64) {
	if !(factor > 0) {
		return
	}
	next := clamp(v.Scale*factor, v.min, v.max)
	dx, dy := v.ToDiagram(cx, cy)
	v.Scale = next
	v.TX = cx - dx*next
	v.TY = cy - dy*next
}

// Pan shifts the scene by a screen-space delta.
func (v *Viewport) Pan(dx, dy float64) {
	v.TX += dx
	v.TY += dy
}

// Reset returns to the identity transform.
func (v *Viewport) Reset() {
	v.Scale, v.TX, v.TY = 1, 0, 0
}
