package router

import (
	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/route"
)

// =============================================================================
// Congestion tracking
// =============================================================================

// selectNets returns the nets to re-route this round, ascending. Nets never
// routed or left incomplete are always selected. In ModeCongestion the
// history of every over-threshold cell is raised first and the nets with a
// wire through such a cell are added; in ModeDecay every net is selected.
func (w *Worker) selectNets() []int {
	marked := make([]bool, len(w.nets))
	for i, ns := range w.nets {
		marked[i] = !ns.routed || ns.failed || w.opts.Mode == ModeDecay
	}
	if w.opts.Mode == ModeCongestion {
		over := w.g.Congested()
		for _, cd := range over {
			w.g.AddHistoryCost(cd.X, cd.Y, cd.Z, w.opts.HistoryIncrement)
		}
		for _, ni := range w.netsIn(over) {
			marked[ni] = true
		}
	}
	var out []int
	for i, m := range marked {
		if m {
			out = append(out, i)
		}
	}
	return out
}

// netsIn returns the distinct nets with a wire consuming one of the given
// unit edges, ascending.
func (w *Worker) netsIn(edges []grid.CellDir) []int {
	hit := make(map[int]bool)
	for _, cd := range edges {
		for _, ni := range w.rq.NetsAt(cd.MazeIdx, func(b grid.Box) bool { return carries(b, cd) }) {
			hit[ni] = true
		}
	}
	var out []int
	for i := range w.nets {
		if hit[i] {
			out = append(out, i)
		}
	}
	return out
}

// carries reports whether a wire covering box b, known to overlap the cell
// of cd, consumes the unit edge cd leaving that cell.
func carries(b grid.Box, cd grid.CellDir) bool {
	if b.Lo.Z != b.Hi.Z {
		return false
	}
	switch cd.Dir {
	case grid.East:
		return b.Lo.Y == b.Hi.Y && b.Hi.X > cd.X
	case grid.North:
		return b.Lo.X == b.Hi.X && b.Hi.Y > cd.Y
	default:
		return false
	}
}

// addNetHistory raises history once on every cell holding an over-threshold
// unit edge consumed by a wire of net ni.
func (w *Worker) addNetHistory(ni int) {
	n := w.nets[ni].net
	done := make(map[grid.MazeIdx]bool)
	for _, id := range n.Edges() {
		wire, ok := n.Edge(id).Figure.(route.WireSegment)
		if !ok {
			continue
		}
		for _, cd := range grid.Span(wire.Begin, wire.End) {
			if done[cd.MazeIdx] || !w.g.IsCongested(cd.X, cd.Y, cd.Z, cd.Dir) {
				continue
			}
			done[cd.MazeIdx] = true
			w.g.AddHistoryCost(cd.X, cd.Y, cd.Z, w.opts.HistoryIncrement)
		}
	}
}
