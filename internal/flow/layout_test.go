package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testParams gives a 400x400 drawing area on a 420x420 canvas.
func testParams() Params {
	p := DefaultParams()
	p.Margins = Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}
	p.NodeWidth = 10
	p.NodePadding = 10
	p.MinNodeHeight = 4
	p.SnapZone = 10
	return p
}

func TestNewLayout_Geometry(t *testing.T) {
	g, err := BuildGraph(entries("Salary", 2000.0), entries("Rent", 1200.0, "Food", 400.0))
	require.NoError(t, err)

	l := NewLayout(g, 420, 420, testParams())
	assert.InDelta(t, 0.19, l.Scale(), 1e-9)

	cols := l.Columns()
	require.Len(t, cols, 3)
	assert.InDelta(t, 10, cols[0].X, 1e-9)
	assert.InDelta(t, 205, cols[1].X, 1e-9)
	assert.InDelta(t, 400, cols[2].X, 1e-9)
	assert.Equal(t, []string{"expense-0", "expense-1", SavingsID}, cols[2].Order)

	want := map[string]Box{
		"income-0":  {X: 10, Y: 10, Width: 10, Height: 380},
		PoolID:      {X: 205, Y: 10, Width: 10, Height: 380},
		"expense-0": {X: 400, Y: 10, Width: 10, Height: 228},
		"expense-1": {X: 400, Y: 248, Width: 10, Height: 76},
		SavingsID:   {X: 400, Y: 334, Width: 10, Height: 76},
	}
	for id, w := range want {
		b, ok := l.Box(id)
		require.True(t, ok, id)
		assert.InDelta(t, w.X, b.X, 1e-9, id)
		assert.InDelta(t, w.Y, b.Y, 1e-9, id)
		assert.InDelta(t, w.Width, b.Width, 1e-9, id)
		assert.InDelta(t, w.Height, b.Height, 1e-9, id)
	}
}

func TestNewLayout_MinimumHeight(t *testing.T) {
	g, err := BuildGraph(entries("Salary", 100000.0), entries("Coffee", 1.0, "Rent", 500.0))
	require.NoError(t, err)

	p := testParams()
	l := NewLayout(g, 420, 420, p)
	for id, b := range l.Boxes() {
		assert.GreaterOrEqual(t, b.Height, p.MinNodeHeight, id)
	}

	coffee, _ := l.Box("expense-0")
	rent, _ := l.Box("expense-1")
	savings, _ := l.Box(SavingsID)
	assert.InDelta(t, p.MinNodeHeight, coffee.Height, 1e-9)
	assert.Greater(t, savings.Height, rent.Height)
	assert.GreaterOrEqual(t, rent.Height, coffee.Height)
}

func TestNewLayout_ScaleFallback(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "a", Kind: KindPool}}}
	l := NewLayout(g, 420, 420, testParams())
	assert.Equal(t, 1.0, l.Scale())

	b, ok := l.Box("a")
	require.True(t, ok)
	assert.Equal(t, 4.0, b.Height)
	assert.Equal(t, 10.0, b.X)

	l = NewLayout(g, 0, 0, testParams())
	assert.Equal(t, 1.0, l.Scale())
}

func TestLayout_Reorder(t *testing.T) {
	g, err := BuildGraph(entries("Salary", 2000.0), entries("Rent", 1200.0, "Food", 400.0))
	require.NoError(t, err)
	l := NewLayout(g, 420, 420, testParams())

	assert.False(t, l.Reorder(RankSink, []string{"expense-0"}))
	assert.False(t, l.Reorder(RankSink, []string{"expense-0", "expense-1", "nope"}))

	require.True(t, l.Reorder(RankSink, []string{SavingsID, "expense-1", "expense-0"}))
	savings, _ := l.Box(SavingsID)
	food, _ := l.Box("expense-1")
	rent, _ := l.Box("expense-0")
	assert.InDelta(t, 10, savings.Y, 1e-9)
	assert.InDelta(t, 96, food.Y, 1e-9)
	assert.InDelta(t, 182, rent.Y, 1e-9)

	targets := l.Targets("expense-0")
	require.Len(t, targets, 3)
	assert.InDelta(t, 10, targets[SavingsID], 1e-9)
	assert.InDelta(t, 96, targets["expense-1"], 1e-9)
	assert.InDelta(t, 182, targets["expense-0"], 1e-9)
	assert.Nil(t, l.Targets("nope"))
}

func TestBox_Contains(t *testing.T) {
	b := Box{X: 10, Y: 10, Width: 10, Height: 20}
	assert.True(t, b.Contains(10, 10))
	assert.True(t, b.Contains(20, 30))
	assert.False(t, b.Contains(21, 15))
	assert.False(t, b.Contains(15, 9))
	assert.Equal(t, 20.0, b.CenterY())
}
