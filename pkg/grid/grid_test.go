package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T, nx, ny, nz int) *Graph {
	t.Helper()
	g, err := New(Config{
		XCoords: Uniform(0, 10, nx),
		YCoords: Uniform(0, 10, ny),
		Layers:  nz,
	})
	require.NoError(t, err)
	return g
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{XCoords: nil, YCoords: []int{5}, Layers: 1})
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = New(Config{XCoords: []int{5}, YCoords: []int{5}, Layers: 0})
	assert.ErrorIs(t, err, ErrEmptyGrid)

	_, err = New(Config{XCoords: []int{5, 5}, YCoords: []int{5}, Layers: 1})
	assert.ErrorIs(t, err, ErrUnsortedCoords)

	_, err = New(Config{XCoords: []int{5}, YCoords: []int{5}, Layers: 1, Threshold: -1})
	assert.ErrorIs(t, err, ErrBadThreshold)

	g, err := New(Config{XCoords: []int{5}, YCoords: []int{5}, Layers: 1})
	require.NoError(t, err)
	assert.Equal(t, DefaultThreshold, g.Threshold())
}

func TestMazeIdx_RoundTrip(t *testing.T) {
	g := newTestGraph(t, 7, 4, 3)
	nx, ny, nz := g.Dims()
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				p := g.Point(x, y)
				assert.Equal(t, MazeIdx{x, y, z}, g.MazeIdx(p, z), "point %v", p)
			}
		}
	}
}

func TestMazeIdx_OffGrid(t *testing.T) {
	g := newTestGraph(t, 4, 4, 1) // centers 5, 15, 25, 35

	assert.Equal(t, MazeIdx{0, 0, 0}, g.MazeIdx(Point{-100, -100}, 0))
	assert.Equal(t, MazeIdx{3, 3, 0}, g.MazeIdx(Point{1000, 1000}, 0))
	assert.Equal(t, MazeIdx{1, 2, 0}, g.MazeIdx(Point{12, 27}, 0))
	// Exactly between two centers resolves to the lower gcell.
	assert.Equal(t, MazeIdx{0, 0, 0}, g.MazeIdx(Point{10, 10}, 0))

	assert.True(t, g.ContainsPoint(Point{0, 40}))
	assert.False(t, g.ContainsPoint(Point{-1, 20}))
}

func TestDemand_AddSubSymmetric(t *testing.T) {
	g := newTestGraph(t, 5, 5, 2)

	a, b := MazeIdx{0, 2, 0}, MazeIdx{3, 2, 0}
	g.ApplySegment(a, b, 1)
	for x := 0; x < 3; x++ {
		assert.Equal(t, 1, g.RawDemand(x, 2, 0, East))
		assert.Equal(t, 0, g.RawDemand(x, 2, 0, North))
	}
	assert.Equal(t, 0, g.RawDemand(3, 2, 0, East), "run end owns no edge")
	assert.Len(t, Span(a, b), 3)
	assert.Equal(t, Span(a, b), Span(b, a))

	g.ApplySegment(b, a, -1)
	for x := 0; x < 5; x++ {
		assert.Equal(t, 0, g.RawDemand(x, 2, 0, East))
	}
}

func TestDemand_ViaRunTouchesNothing(t *testing.T) {
	g := newTestGraph(t, 2, 2, 3)
	g.ApplySegment(MazeIdx{1, 1, 0}, MazeIdx{1, 1, 2}, 1)
	assert.Empty(t, g.Congested())
	assert.Nil(t, Span(MazeIdx{1, 1, 0}, MazeIdx{1, 1, 2}))
}

func TestDemand_NegativePanics(t *testing.T) {
	g := newTestGraph(t, 2, 2, 1)
	assert.Panics(t, func() { g.SubRawDemand(0, 0, 0, East, 1) })
	assert.Panics(t, func() { g.RawDemand(0, 0, 0, Up) })
}

func TestCongestion(t *testing.T) {
	g := newTestGraph(t, 3, 1, 1)
	g.SetLayerSupply(0, East, 1)

	assert.False(t, g.IsCongested(1, 0, 0, East))
	assert.False(t, g.WouldOverflow(1, 0, 0, East))

	g.AddRawDemand(1, 0, 0, East, 1)
	assert.False(t, g.IsCongested(1, 0, 0, East), "demand equal to supply is not congested")
	assert.True(t, g.WouldOverflow(1, 0, 0, East))

	g.AddRawDemand(1, 0, 0, East, 2)
	assert.True(t, g.IsCongested(1, 0, 0, East))
	assert.Equal(t, 2, g.Overflow(1, 0, 0, East))
	assert.Equal(t, []CellDir{{MazeIdx: MazeIdx{1, 0, 0}, Dir: East}}, g.Congested())
	assert.Equal(t, 2, g.TotalOverflow())
}

func TestCongestion_Threshold(t *testing.T) {
	g, err := New(Config{XCoords: []int{0}, YCoords: []int{0}, Layers: 1, Threshold: 0.5})
	require.NoError(t, err)
	g.SetRawSupply(0, 0, 0, North, 4)
	g.AddRawDemand(0, 0, 0, North, 2)
	assert.False(t, g.IsCongested(0, 0, 0, North))
	g.AddRawDemand(0, 0, 0, North, 1)
	assert.True(t, g.IsCongested(0, 0, 0, North))
	assert.Equal(t, 1, g.Overflow(0, 0, 0, North))
}

func TestHistory_MonotoneAdd(t *testing.T) {
	g := newTestGraph(t, 2, 2, 1)
	g.AddHistoryCost(1, 1, 0, 2)
	g.AddHistoryCost(1, 1, 0, -5)
	g.AddHistoryCost(1, 1, 0, 0.5)
	assert.InDelta(t, 2.5, g.HistoryCost(1, 1, 0), 1e-12)
}

func TestHistory_DecayConverges(t *testing.T) {
	g := newTestGraph(t, 3, 3, 2)
	const initial, factor = 10.0, 0.8
	g.AddHistoryCost(2, 1, 1, initial)
	g.AddHistoryCost(0, 0, 0, initial)

	for k := 1; k <= 50; k++ {
		g.DecayAllHistory(factor)
		want := initial * math.Pow(factor, float64(k))
		assert.InDelta(t, want, g.HistoryCost(2, 1, 1), 1e-9)
	}
	assert.Less(t, g.HistoryCost(0, 0, 0), 1e-3)

	g.DecayHistoryCost(2, 1, 1, 0)
	assert.Zero(t, g.HistoryCost(2, 1, 1))
}

func TestCanStep(t *testing.T) {
	g := newTestGraph(t, 3, 3, 2)
	g.BlockLayerDir(0, North)
	g.SetBlocked(1, 1, 1, Up, true)

	_, ok := g.CanStep(MazeIdx{0, 0, 0}, East, -1)
	assert.False(t, ok, "off grid")

	b, ok := g.CanStep(MazeIdx{0, 0, 0}, East, 1)
	assert.True(t, ok)
	assert.Equal(t, MazeIdx{1, 0, 0}, b)

	_, ok = g.CanStep(MazeIdx{0, 0, 0}, North, 1)
	assert.False(t, ok, "non-preferred direction blocked")

	_, ok = g.CanStep(MazeIdx{1, 1, 0}, Up, 1)
	assert.False(t, ok, "via blocked at upper cell")

	_, ok = g.CanStep(MazeIdx{2, 2, 0}, Up, 1)
	assert.True(t, ok)
}

func TestCommit_Rollback(t *testing.T) {
	g := newTestGraph(t, 4, 4, 1)
	g.ApplySegment(MazeIdx{0, 0, 0}, MazeIdx{0, 3, 0}, 1)

	c := g.Begin()
	c.ApplySegment(MazeIdx{0, 1, 0}, MazeIdx{3, 1, 0}, 1)
	c.Apply(MazeIdx{2, 2, 0}, North, 3)
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, 3, g.RawDemand(2, 2, 0, North))

	c.Rollback()
	c.Rollback()
	for x := 0; x < 4; x++ {
		assert.Equal(t, 0, g.RawDemand(x, 1, 0, East))
	}
	assert.Equal(t, 0, g.RawDemand(2, 2, 0, North))
	assert.Equal(t, 1, g.RawDemand(0, 1, 0, North), "pre-existing demand untouched")
}

func TestCommit_Keep(t *testing.T) {
	g := newTestGraph(t, 4, 1, 1)
	func() {
		c := g.Begin()
		defer c.Rollback()
		c.ApplySegment(MazeIdx{0, 0, 0}, MazeIdx{2, 0, 0}, 1)
		c.Keep()
	}()
	assert.Equal(t, 1, g.RawDemand(1, 0, 0, East))
	assert.Equal(t, 0, g.RawDemand(2, 0, 0, East))

	c := g.Begin()
	c.Keep()
	assert.Panics(t, func() { c.Apply(MazeIdx{}, East, 1) })
}

func TestWindow(t *testing.T) {
	g := newTestGraph(t, 6, 6, 2)
	g.SetLayerSupply(0, East, 2)
	g.AddRawDemand(3, 4, 1, North, 1)
	g.AddHistoryCost(3, 4, 1, 1.5)
	g.SetBlocked(4, 4, 0, Up, true)

	w := g.Window(2, 3, 4, 5)
	nx, ny, nz := w.Dims()
	assert.Equal(t, [3]int{3, 3, 2}, [3]int{nx, ny, nz})
	assert.Equal(t, MazeIdx{X: 2, Y: 3}, w.Origin())
	assert.Equal(t, g.Point(3, 4), w.Point(1, 1))
	assert.Equal(t, 1, w.RawDemand(1, 1, 1, North))
	assert.Equal(t, 2, w.RawSupply(0, 0, 0, East))
	assert.InDelta(t, 1.5, w.HistoryCost(1, 1, 1), 1e-12)
	assert.True(t, w.Blocked(2, 1, 0, Up))

	w.AddRawDemand(0, 0, 0, East, 1)
	assert.Equal(t, 0, g.RawDemand(2, 3, 0, East), "window is a copy")

	inner := w.Window(1, 1, 2, 2)
	assert.Equal(t, MazeIdx{X: 3, Y: 4}, inner.Origin())
}

func TestBoxDistance(t *testing.T) {
	b := BoxOf(MazeIdx{1, 1, 0}, MazeIdx{3, 2, 0})
	planar, layers := b.Distance(MazeIdx{5, 0, 2})
	assert.Equal(t, 3, planar)
	assert.Equal(t, 2, layers)

	planar, layers = b.Distance(MazeIdx{2, 2, 0})
	assert.Zero(t, planar)
	assert.Zero(t, layers)
	assert.True(t, b.Extend(MazeIdx{0, 5, 1}).Contains(MazeIdx{0, 5, 1}))
}

func TestEdgeCell(t *testing.T) {
	assert.Equal(t, MazeIdx{2, 1, 0}, EdgeCell(MazeIdx{3, 1, 0}, MazeIdx{2, 1, 0}))
	assert.Equal(t, MazeIdx{2, 1, 0}, EdgeCell(MazeIdx{2, 1, 0}, MazeIdx{2, 2, 0}))
	assert.Equal(t, MazeIdx{2, 1, 0}, EdgeCell(MazeIdx{2, 1, 1}, MazeIdx{2, 1, 0}))
}

func TestUtilization(t *testing.T) {
	g := newTestGraph(t, 3, 1, 1)
	g.SetLayerSupply(0, East, 2)
	g.AddRawDemand(0, 0, 0, East, 2)
	g.AddRawDemand(1, 0, 0, East, 5)

	u := g.Utilization()
	assert.InDelta(t, 1.75, u.Mean, 1e-12)
	assert.InDelta(t, 2.5, u.Max, 1e-12)
	assert.Equal(t, 1, u.OverflowEdges)
	assert.Equal(t, 3, u.TotalOverflow)
	assert.Greater(t, u.StdDev, 0.0)
}
