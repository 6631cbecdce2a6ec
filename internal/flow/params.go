package flow

import "time"

// Margins is the empty space kept around the drawing area.
type Margins struct {
	Top    float64 `toml:"top" json:"top"`
	Right  float64 `toml:"right" json:"right"`
	Bottom float64 `toml:"bottom" json:"bottom"`
	Left   float64 `toml:"left" json:"left"`
}

// Params holds every tunable constant of the engine.
type Params struct {
	Margins       Margins `toml:"margins" json:"margins"`
	NodeWidth     float64 `toml:"node_width" json:"node_width"`
	NodePadding   float64 `toml:"node_padding" json:"node_padding"`
	MinNodeHeight float64 `toml:"min_node_height" json:"min_node_height"`
	// SnapZone is the distance from a column's top or bottom edge inside
	// which a dragged node's centre jumps it to the first or last slot.
	SnapZone float64 `toml:"snap_zone" json:"snap_zone"`
	// SettleEpsilon is the distance under which a released node commits
	// without animating.
	SettleEpsilon float64 `toml:"settle_epsilon" json:"settle_epsilon"`

	SettleDuration time.Duration `toml:"settle_duration" json:"settle_duration"`
	FadeDuration   time.Duration `toml:"fade_duration" json:"fade_duration"`

	MinZoom float64 `toml:"min_zoom" json:"min_zoom"`
	MaxZoom float64 `toml:"max_zoom" json:"max_zoom"`

	Opacity Opacity `toml:"opacity" json:"opacity"`
	Colors  Palette `toml:"colors" json:"colors"`

	// Ease is not configurable from files.
	Ease EaseFunc `toml:"-" json:"-"`
}

// Opacity groups the fill and stroke levels used in the three highlight
// modes (neutral, active, dimmed).
type Opacity struct {
	LinkNeutral  float64 `toml:"link_neutral" json:"link_neutral"`
	LinkActive   float64 `toml:"link_active" json:"link_active"`
	LinkDimmed   float64 `toml:"link_dimmed" json:"link_dimmed"`
	NodeNeutral  float64 `toml:"node_neutral" json:"node_neutral"`
	NodeDimmed   float64 `toml:"node_dimmed" json:"node_dimmed"`
	StrokeThin   float64 `toml:"stroke_thin" json:"stroke_thin"`
	StrokeActive float64 `toml:"stroke_active" json:"stroke_active"`
}

// Palette maps node kinds to fill colours.
type Palette struct {
	Income  string `toml:"income" json:"income"`
	Expense string `toml:"expense" json:"expense"`
	Savings string `toml:"savings" json:"savings"`
	Debt    string `toml:"debt" json:"debt"`
	Pool    string `toml:"pool" json:"pool"`
}

// Color returns the fill used for nodes of kind k.
func (p Palette) Color(k Kind) string {
	switch k {
	case KindIncome:
		return p.Income
	case KindExpense:
		return p.Expense
	case KindSavings:
		return p.Savings
	case KindDebt:
		return p.Debt
	default:
		return p.Pool
	}
}

// DefaultParams returns the constants the diagram was designed around.
func DefaultParams() Params {
	return Params{
		Margins:        Margins{Top: 20, Right: 140, Bottom: 20, Left: 20},
		NodeWidth:      18,
		NodePadding:    16,
		MinNodeHeight:  6,
		SnapZone:       24,
		SettleEpsilon:  0.5,
		SettleDuration: 260 * time.Millisecond,
		FadeDuration:   220 * time.Millisecond,
		MinZoom:        0.5,
		MaxZoom:        2,
		Opacity: Opacity{
			LinkNeutral:  0.45,
			LinkActive:   0.85,
			LinkDimmed:   0.08,
			NodeNeutral:  1,
			NodeDimmed:   0.25,
			StrokeThin:   1,
			StrokeActive: 2.5,
		},
		Colors: Palette{
			Income:  "#2e7d32",
			Expense: "#ef6c00",
			Savings: "#00897b",
			Debt:    "#c62828",
			Pool:    "#1565c0",
		},
		Ease: EaseOutCubic,
	}
}

// withDefaults fills zero fields from DefaultParams so partially specified
// layout files still produce a usable diagram.
func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.Margins == (Margins{}) {
		p.Margins = d.Margins
	}
	if p.NodeWidth <= 0 {
		p.NodeWidth = d.NodeWidth
	}
	if p.NodePadding < 0 {
		p.NodePadding = d.NodePadding
	}
	if p.MinNodeHeight <= 0 {
		p.MinNodeHeight = d.MinNodeHeight
	}
	if p.SnapZone <= 0 {
		p.SnapZone = d.SnapZone
	}
	if p.SettleEpsilon <= 0 {
		p.SettleEpsilon = d.SettleEpsilon
	}
	if p.SettleDuration <= 0 {
		p.SettleDuration = d.SettleDuration
	}
	if p.FadeDuration <= 0 {
		p.FadeDuration = d.FadeDuration
	}
	if p.MinZoom <= 0 || p.MaxZoom < p.MinZoom {
		p.MinZoom, p.MaxZoom = d.MinZoom, d.MaxZoom
	}
	if p.Opacity == (Opacity{}) {
		p.Opacity = d.Opacity
	}
	if p.Colors == (Palette{}) {
		p.Colors = d.Colors
	}
	if p.Ease == nil {
		p.Ease = d.Ease
	}
	return p
}
