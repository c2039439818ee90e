// Package maze implements the multi-source maze search over a grid.Graph.
//
// Every cell of the partially built tree is seeded at cost zero and the
// search expands toward a single target cell with A*, using the admissible
// heuristic wire·(|dx|+|dy|) + via·|dz|. Stepping into a cell costs the unit
// wire or via cost, plus the cell's history cost, plus a congestion penalty
// when one more unit of demand would push the unit edge crossed over
// threshold.
//
// A Search only reads the graph. Committing the returned Path is the caller's
// job.
//
// Complexity:
//
//   - Time:  O(C log C) for C cells inside the search window.
//   - Space: O(N) scratch for N cells in the graph, reused across searches.
package maze

import (
	"container/heap"
	"errors"

	"github.com/matzehuels/gridroute/pkg/grid"
)

// ErrNoSources is returned when Route is called without seed cells.
var ErrNoSources = errors.New("maze: search needs at least one source cell")

// Costs weights the terms of the step cost.
type Costs struct {
	Wire       float64 // per planar step
	Via        float64 // per layer change
	Congestion float64 // added when the crossed edge would overflow
	History    float64 // multiplier on the destination's history cost
}

// DefaultCosts returns the weights used when none are configured.
func DefaultCosts() Costs {
	return Costs{Wire: 1, Via: 2, Congestion: 8, History: 1}
}

// Path is an ordered run of gcells from a seed cell to the target. Adjacent
// entries differ by one step in exactly one coordinate.
type Path []grid.MazeIdx

// Len returns the number of planar steps and layer changes in the path.
func (p Path) Len() (wire, vias int) {
	for i := 1; i < len(p); i++ {
		if p[i].Z != p[i-1].Z {
			vias++
		} else {
			wire++
		}
	}
	return wire, vias
}

// Search holds the scratch state of the maze search for one graph. It is
// reused across calls and is not safe for concurrent use.
type Search struct {
	g          *grid.Graph
	costs      Costs
	nx, ny, nz int

	dist []float64
	prev []int32
	seen []uint32 // generation a cell's dist/prev were last written
	done []uint32 // generation a cell was last closed
	gen  uint32
	pq   cellPQ

	expanded int
}

// New creates a Search over g.
func New(g *grid.Graph, costs Costs) *Search {
	nx, ny, nz := g.Dims()
	n := nx * ny * nz
	return &Search{
		g:     g,
		costs: costs,
		nx:    nx,
		ny:    ny,
		nz:    nz,
		dist:  make([]float64, n),
		prev:  make([]int32, n),
		seen:  make([]uint32, n),
		done:  make([]uint32, n),
	}
}

// Expanded returns the number of cells closed by the last Route call.
func (s *Search) Expanded() int { return s.expanded }

func (s *Search) index(m grid.MazeIdx) int32 { return int32((m.Z*s.ny+m.Y)*s.nx + m.X) }

func (s *Search) cell(i int32) grid.MazeIdx {
	x := int(i) % s.nx
	y := (int(i) / s.nx) % s.ny
	return grid.MazeIdx{X: x, Y: y, Z: int(i) / (s.nx * s.ny)}
}

func (s *Search) heuristic(m, target grid.MazeIdx) float64 {
	dz := m.Z - target.Z
	if dz < 0 {
		dz = -dz
	}
	return s.costs.Wire*float64(m.Manhattan(target)) + s.costs.Via*float64(dz)
}

// StepCost returns the cost of stepping from a into its neighbor b along dir.
// A planar step pays the history and congestion of the unit edge it crosses,
// which is stored at the lower of its two cells; a via pays the history of
// the cell it lands on.
func (s *Search) StepCost(a, b grid.MazeIdx, dir grid.Dir) float64 {
	if !dir.Planar() {
		return s.costs.Via + s.costs.History*s.g.HistoryCost(b.X, b.Y, b.Z)
	}
	e := grid.EdgeCell(a, b)
	cost := s.costs.Wire + s.costs.History*s.g.HistoryCost(e.X, e.Y, e.Z)
	if s.g.WouldOverflow(e.X, e.Y, e.Z, dir) {
		cost += s.costs.Congestion
	}
	return cost
}

func (s *Search) reset() {
	s.gen++
	if s.gen == 0 {
		clear(s.seen)
		clear(s.done)
		s.gen = 1
	}
	s.pq = s.pq[:0]
	s.expanded = 0
}

// Route finds the cheapest path from any source cell to target, exploring
// only cells inside window. It reports false when target is unreachable.
// When target is itself a source the path is just the target.
func (s *Search) Route(sources []grid.MazeIdx, target grid.MazeIdx, window grid.Box) (Path, bool, error) {
	if len(sources) == 0 {
		return nil, false, ErrNoSources
	}
	s.reset()

	for _, m := range sources {
		if !s.g.Contains(m) {
			continue
		}
		i := s.index(m)
		if s.seen[i] == s.gen {
			continue
		}
		s.seen[i] = s.gen
		s.dist[i] = 0
		s.prev[i] = -1
		heap.Push(&s.pq, &cellItem{idx: i, g: 0, f: s.heuristic(m, target)})
	}

	goal := s.index(target)
	for s.pq.Len() > 0 {
		it := heap.Pop(&s.pq).(*cellItem)
		if s.done[it.idx] == s.gen || it.g > s.dist[it.idx] {
			continue
		}
		s.done[it.idx] = s.gen
		s.expanded++
		if it.idx == goal {
			return s.reconstruct(goal), true, nil
		}
		s.relax(it.idx, target, window)
	}
	return nil, false, nil
}

var steps = [...]struct {
	dir  grid.Dir
	sign int
}{
	{grid.East, 1}, {grid.East, -1},
	{grid.North, 1}, {grid.North, -1},
	{grid.Up, 1}, {grid.Up, -1},
}

func (s *Search) relax(from int32, target grid.MazeIdx, window grid.Box) {
	a := s.cell(from)
	for _, st := range steps {
		b, ok := s.g.CanStep(a, st.dir, st.sign)
		if !ok || !window.Contains(b) {
			continue
		}
		j := s.index(b)
		if s.done[j] == s.gen {
			continue
		}
		g := s.dist[from] + s.StepCost(a, b, st.dir)
		if s.seen[j] == s.gen && g >= s.dist[j] {
			continue
		}
		s.seen[j] = s.gen
		s.dist[j] = g
		s.prev[j] = from
		heap.Push(&s.pq, &cellItem{idx: j, g: g, f: g + s.heuristic(b, target)})
	}
}

func (s *Search) reconstruct(goal int32) Path {
	var p Path
	for i := goal; i >= 0; i = s.prev[i] {
		p = append(p, s.cell(i))
	}
	for l, r := 0, len(p)-1; l < r; l, r = l+1, r-1 {
		p[l], p[r] = p[r], p[l]
	}
	return p
}

// Window returns b grown by margin gcells in x and y and clipped to g. All
// layers are included.
func Window(g *grid.Graph, b grid.Box, margin int) grid.Box {
	bounds := g.Bounds()
	return grid.Box{
		Lo: grid.MazeIdx{X: max(b.Lo.X-margin, 0), Y: max(b.Lo.Y-margin, 0), Z: 0},
		Hi: grid.MazeIdx{X: min(b.Hi.X+margin, bounds.Hi.X), Y: min(b.Hi.Y+margin, bounds.Hi.Y), Z: bounds.Hi.Z},
	}
}

// =============================================================================
// Priority queue
// =============================================================================

type cellItem struct {
	idx int32
	g   float64 // cost from the nearest seed
	f   float64 // g plus heuristic
}

// cellPQ is a min-heap on f. Ties prefer the larger g (deeper, closer to the
// target), then the lower cell index, so results are deterministic.
type cellPQ []*cellItem

func (pq cellPQ) Len() int { return len(pq) }

func (pq cellPQ) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].g != pq[j].g {
		return pq[i].g > pq[j].g
	}
	return pq[i].idx < pq[j].idx
}

func (pq cellPQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *cellPQ) Push(x any) { *pq = append(*pq, x.(*cellItem)) }

func (pq *cellPQ) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}
