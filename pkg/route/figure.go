package route

import (
	"fmt"

	"github.com/matzehuels/gridroute/pkg/grid"
)

// Figure is the geometry carried by an edge: a WireSegment or a Via.
// Consumers dispatch with a type switch over the two concrete types.
type Figure interface {
	// Bounds returns the gcell box the figure covers.
	Bounds() grid.Box
	figure()
}

// WireSegment is a straight planar run on layer Begin.Z. Begin and End are
// the gcells of the edge's two nodes; they differ in exactly one of x and y.
type WireSegment struct {
	Begin grid.MazeIdx
	End   grid.MazeIdx
}

// Via connects layer Origin.Z to Origin.Z+1 at (Origin.X, Origin.Y) through
// cut layer Cut.
type Via struct {
	Origin grid.MazeIdx
	Cut    string
}

func (WireSegment) figure() {}
func (Via) figure()         {}

// Bounds implements Figure.
func (w WireSegment) Bounds() grid.Box { return grid.BoxOf(w.Begin, w.End) }

// Bounds implements Figure.
func (v Via) Bounds() grid.Box { return grid.BoxOf(v.Origin, v.Top()) }

// Top returns the upper landing cell of the via.
func (v Via) Top() grid.MazeIdx { return v.Origin.Add(0, 0, 1) }

// Length returns the number of gcell steps the segment spans.
func (w WireSegment) Length() int { return w.Begin.Manhattan(w.End) }

// Dir returns the planar direction of the segment.
func (w WireSegment) Dir() grid.Dir {
	if w.Begin.Y == w.End.Y {
		return grid.East
	}
	return grid.North
}

// Valid reports whether the segment is non-degenerate and axis-aligned.
func (w WireSegment) Valid() bool {
	if w.Begin.Z != w.End.Z || w.Begin == w.End {
		return false
	}
	return w.Begin.X == w.End.X || w.Begin.Y == w.End.Y
}

// Cells returns every gcell of the segment from Begin to End inclusive.
func (w WireSegment) Cells() []grid.MazeIdx {
	out := make([]grid.MazeIdx, 0, w.Length()+1)
	dx, dy := sign(w.End.X-w.Begin.X), sign(w.End.Y-w.Begin.Y)
	for m := w.Begin; ; m = m.Add(dx, dy, 0) {
		out = append(out, m)
		if m == w.End {
			return out
		}
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Interior reports whether m lies strictly between the segment's endpoints.
func (w WireSegment) Interior(m grid.MazeIdx) bool {
	return m != w.Begin && m != w.End && w.Bounds().Contains(m)
}

func (w WireSegment) String() string { return fmt.Sprintf("wire%s-%s", w.Begin, w.End) }
func (v Via) String() string         { return fmt.Sprintf("via%s/%s", v.Origin, v.Cut) }
