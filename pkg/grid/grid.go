package grid

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Sentinel errors for graph construction.
var (
	// ErrEmptyGrid is returned when a dimension has no gcells.
	ErrEmptyGrid = errors.New("grid: grid must have at least one gcell per dimension")

	// ErrUnsortedCoords is returned when gcell centers are not strictly increasing.
	ErrUnsortedCoords = errors.New("grid: gcell coordinates must be strictly increasing")

	// ErrBadThreshold is returned for a non-positive congestion threshold.
	ErrBadThreshold = errors.New("grid: congestion threshold must be positive")
)

// DefaultThreshold is the congestion threshold used when Config leaves it zero.
const DefaultThreshold = 1.0

// Config describes the extents of a Graph.
type Config struct {
	// XCoords and YCoords are the physical gcell center coordinates,
	// strictly increasing.
	XCoords []int
	YCoords []int

	// Layers is the number of routing layers (z extent).
	Layers int

	// Threshold scales supply when deciding congestion. Zero means
	// DefaultThreshold.
	Threshold float64
}

// Graph is the dense 3-D routing resource grid.
//
// The zero value is not usable; construct with New. A Graph is owned by a
// single worker and is not safe for concurrent use.
type Graph struct {
	xCoords, yCoords []int
	nx, ny, nz       int
	threshold        float64

	// origin is the index of this graph's (0,0) cell in the graph it was
	// windowed from; zero for a root graph.
	origin MazeIdx

	demand  []int32 // cell*planarDirs + dir
	supply  []int32 // cell*planarDirs + dir
	blocked []bool  // cell*allDirs + dir
	history []float64
}

// New allocates a Graph with zero supply, demand and history everywhere.
func New(cfg Config) (*Graph, error) {
	if len(cfg.XCoords) == 0 || len(cfg.YCoords) == 0 || cfg.Layers <= 0 {
		return nil, ErrEmptyGrid
	}
	if !strictlyIncreasing(cfg.XCoords) || !strictlyIncreasing(cfg.YCoords) {
		return nil, ErrUnsortedCoords
	}
	threshold := cfg.Threshold
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if threshold < 0 || math.IsNaN(threshold) {
		return nil, ErrBadThreshold
	}

	g := &Graph{
		xCoords:   slices.Clone(cfg.XCoords),
		yCoords:   slices.Clone(cfg.YCoords),
		nx:        len(cfg.XCoords),
		ny:        len(cfg.YCoords),
		nz:        cfg.Layers,
		threshold: threshold,
	}
	cells := g.nx * g.ny * g.nz
	g.demand = make([]int32, cells*planarDirs)
	g.supply = make([]int32, cells*planarDirs)
	g.blocked = make([]bool, cells*allDirs)
	g.history = make([]float64, cells)
	return g, nil
}

// Uniform returns n strictly increasing coordinates origin+pitch/2+i*pitch,
// the gcell centers of a uniform grid.
func Uniform(origin, pitch, n int) []int {
	coords := make([]int, n)
	for i := range coords {
		coords[i] = origin + pitch/2 + i*pitch
	}
	return coords
}

func strictlyIncreasing(v []int) bool {
	for i := 1; i < len(v); i++ {
		if v[i] <= v[i-1] {
			return false
		}
	}
	return true
}

// =============================================================================
// Extents and coordinates
// =============================================================================

// Dims returns the grid extents.
func (g *Graph) Dims() (nx, ny, nz int) { return g.nx, g.ny, g.nz }

// Threshold returns the congestion threshold.
func (g *Graph) Threshold() float64 { return g.threshold }

// Origin returns the index of this graph's (0,0,0) cell in its parent graph.
func (g *Graph) Origin() MazeIdx { return g.origin }

// Bounds returns the box covering every gcell.
func (g *Graph) Bounds() Box {
	return Box{Hi: MazeIdx{X: g.nx - 1, Y: g.ny - 1, Z: g.nz - 1}}
}

// Contains reports whether m is a valid index.
func (g *Graph) Contains(m MazeIdx) bool {
	return m.X >= 0 && m.X < g.nx && m.Y >= 0 && m.Y < g.ny && m.Z >= 0 && m.Z < g.nz
}

// ContainsPoint reports whether p lies within half a pitch of the gcell
// centers at the grid boundary.
func (g *Graph) ContainsPoint(p Point) bool {
	return within(g.xCoords, p.X) && within(g.yCoords, p.Y)
}

func within(coords []int, v int) bool {
	lo, hi := coords[0], coords[len(coords)-1]
	if len(coords) > 1 {
		lo -= (coords[1] - coords[0]) / 2
		hi += (coords[len(coords)-1] - coords[len(coords)-2]) / 2
	}
	return v >= lo && v <= hi
}

// MazeIdx maps a physical point on layer z to the gcell whose center is
// nearest. Points outside the grid clamp to the boundary gcell.
func (g *Graph) MazeIdx(p Point, z int) MazeIdx {
	return MazeIdx{X: nearest(g.xCoords, p.X), Y: nearest(g.yCoords, p.Y), Z: z}
}

// Point returns the physical center of gcell (x, y).
func (g *Graph) Point(x, y int) Point {
	return Point{X: g.xCoords[x], Y: g.yCoords[y]}
}

// nearest returns the index of the coordinate closest to v. Ties resolve to
// the lower index.
func nearest(coords []int, v int) int {
	i, _ := slices.BinarySearch(coords, v)
	if i == len(coords) {
		return i - 1
	}
	if i > 0 && v-coords[i-1] <= coords[i]-v {
		return i - 1
	}
	return i
}

// =============================================================================
// Demand, supply, blockage
// =============================================================================

func (g *Graph) cell(x, y, z int) int { return (z*g.ny+y)*g.nx + x }

func (g *Graph) planar(x, y, z int, dir Dir) int {
	if !dir.Planar() {
		panic(fmt.Sprintf("grid: direction %s carries no demand", dir))
	}
	return g.cell(x, y, z)*planarDirs + int(dir)
}

// RawDemand returns the demand of one cell direction.
func (g *Graph) RawDemand(x, y, z int, dir Dir) int {
	return int(g.demand[g.planar(x, y, z, dir)])
}

// RawSupply returns the supply of one cell direction.
func (g *Graph) RawSupply(x, y, z int, dir Dir) int {
	return int(g.supply[g.planar(x, y, z, dir)])
}

// SetRawSupply sets the supply of one cell direction.
func (g *Graph) SetRawSupply(x, y, z int, dir Dir, supply int) {
	g.supply[g.planar(x, y, z, dir)] = int32(supply)
}

// SetLayerSupply sets the supply of dir on every cell of layer z.
func (g *Graph) SetLayerSupply(z int, dir Dir, supply int) {
	for y := 0; y < g.ny; y++ {
		for x := 0; x < g.nx; x++ {
			g.SetRawSupply(x, y, z, dir, supply)
		}
	}
}

// AddRawDemand adds amount to the demand of one cell direction.
func (g *Graph) AddRawDemand(x, y, z int, dir Dir, amount int) {
	g.ApplyDelta(x, y, z, dir, amount)
}

// SubRawDemand subtracts amount from the demand of one cell direction.
func (g *Graph) SubRawDemand(x, y, z int, dir Dir, amount int) {
	g.ApplyDelta(x, y, z, dir, -amount)
}

// ApplyDelta adds a signed amount to the demand of one cell direction.
// Demand never goes negative; an unpaired subtraction panics.
func (g *Graph) ApplyDelta(x, y, z int, dir Dir, amount int) {
	i := g.planar(x, y, z, dir)
	next := g.demand[i] + int32(amount)
	if next < 0 {
		panic(fmt.Sprintf("grid: demand at %s %s would drop to %d", MazeIdx{x, y, z}, dir, next))
	}
	g.demand[i] = next
}

// ApplySegment adds amount to every unit edge of the straight run a..b in the
// run's direction. The edge between gcells i and i+1 is stored at gcell i, so
// a run of length L touches L cells. Runs along z touch no demand. a and b
// must share two coordinates.
func (g *Graph) ApplySegment(a, b MazeIdx, amount int) {
	forSpan(a, b, func(m MazeIdx, dir Dir) {
		g.ApplyDelta(m.X, m.Y, m.Z, dir, amount)
	})
}

// forSpan calls fn for every unit edge of a planar run between a and b.
func forSpan(a, b MazeIdx, fn func(MazeIdx, Dir)) {
	switch {
	case a.Y == b.Y && a.Z == b.Z && a.X != b.X:
		for x := min(a.X, b.X); x < max(a.X, b.X); x++ {
			fn(MazeIdx{X: x, Y: a.Y, Z: a.Z}, East)
		}
	case a.X == b.X && a.Z == b.Z && a.Y != b.Y:
		for y := min(a.Y, b.Y); y < max(a.Y, b.Y); y++ {
			fn(MazeIdx{X: a.X, Y: y, Z: a.Z}, North)
		}
	}
}

// Span returns the unit edges, as cell directions, consumed by the planar
// run a..b.
func Span(a, b MazeIdx) []CellDir {
	var out []CellDir
	forSpan(a, b, func(m MazeIdx, dir Dir) {
		out = append(out, CellDir{MazeIdx: m, Dir: dir})
	})
	return out
}

// EdgeCell returns the cell storing the unit edge between neighbors a and b.
func EdgeCell(a, b MazeIdx) MazeIdx {
	return MazeIdx{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)}
}

// Blocked reports whether dir is blocked at cell (x, y, z).
func (g *Graph) Blocked(x, y, z int, dir Dir) bool {
	return g.blocked[g.cell(x, y, z)*allDirs+int(dir)]
}

// SetBlocked sets or clears the blockage of dir at cell (x, y, z).
func (g *Graph) SetBlocked(x, y, z int, dir Dir, blocked bool) {
	g.blocked[g.cell(x, y, z)*allDirs+int(dir)] = blocked
}

// BlockLayerDir blocks dir on every cell of layer z.
func (g *Graph) BlockLayerDir(z int, dir Dir) {
	for y := 0; y < g.ny; y++ {
		for x := 0; x < g.nx; x++ {
			g.SetBlocked(x, y, z, dir, true)
		}
	}
}

// CanStep reports whether the unit move from a along dir (sign +1 or -1)
// stays on the grid and is unblocked at both ends.
func (g *Graph) CanStep(a MazeIdx, dir Dir, sign int) (MazeIdx, bool) {
	b := a
	switch dir {
	case East:
		b.X += sign
	case North:
		b.Y += sign
	case Up:
		b.Z += sign
	}
	if !g.Contains(b) {
		return b, false
	}
	if g.Blocked(a.X, a.Y, a.Z, dir) || g.Blocked(b.X, b.Y, b.Z, dir) {
		return b, false
	}
	return b, true
}

// =============================================================================
// Congestion
// =============================================================================

// IsCongested reports rawDemand > threshold × rawSupply.
func (g *Graph) IsCongested(x, y, z int, dir Dir) bool {
	i := g.planar(x, y, z, dir)
	return float64(g.demand[i]) > g.threshold*float64(g.supply[i])
}

// WouldOverflow reports whether one more unit of demand would make the cell
// direction congested.
func (g *Graph) WouldOverflow(x, y, z int, dir Dir) bool {
	i := g.planar(x, y, z, dir)
	return float64(g.demand[i]+1) > g.threshold*float64(g.supply[i])
}

// Overflow returns how far demand exceeds threshold × supply, rounded up.
func (g *Graph) Overflow(x, y, z int, dir Dir) int {
	i := g.planar(x, y, z, dir)
	over := float64(g.demand[i]) - g.threshold*float64(g.supply[i])
	if over <= 0 {
		return 0
	}
	return int(math.Ceil(over))
}

// Congested returns every congested cell direction in index order.
func (g *Graph) Congested() []CellDir {
	var out []CellDir
	for z := 0; z < g.nz; z++ {
		for y := 0; y < g.ny; y++ {
			for x := 0; x < g.nx; x++ {
				for d := Dir(0); d < planarDirs; d++ {
					if g.IsCongested(x, y, z, d) {
						out = append(out, CellDir{MazeIdx: MazeIdx{x, y, z}, Dir: d})
					}
				}
			}
		}
	}
	return out
}

// TotalOverflow sums Overflow over the whole grid.
func (g *Graph) TotalOverflow() int {
	total := 0
	for _, cd := range g.Congested() {
		total += g.Overflow(cd.X, cd.Y, cd.Z, cd.Dir)
	}
	return total
}

// =============================================================================
// History cost
// =============================================================================

// HistoryCost returns the history cost of cell (x, y, z).
func (g *Graph) HistoryCost(x, y, z int) float64 {
	return g.history[g.cell(x, y, z)]
}

// AddHistoryCost increases the history cost of a cell. Negative amounts are
// ignored so history stays monotone between decays.
func (g *Graph) AddHistoryCost(x, y, z int, amount float64) {
	if amount <= 0 {
		return
	}
	g.history[g.cell(x, y, z)] += amount
}

// DecayHistoryCost multiplies the history cost of a cell by factor.
func (g *Graph) DecayHistoryCost(x, y, z int, factor float64) {
	g.history[g.cell(x, y, z)] *= factor
}

// DecayAllHistory multiplies every cell's history cost by factor.
func (g *Graph) DecayAllHistory(factor float64) {
	for i := range g.history {
		g.history[i] *= factor
	}
}

// =============================================================================
// Windows
// =============================================================================

// Window copies the gcells in the inclusive x/y index range into a new
// Graph spanning all layers. The copy shares nothing with g; its Origin
// records where it came from.
func (g *Graph) Window(x0, y0, x1, y1 int) *Graph {
	x0, x1 = max(0, min(x0, x1)), min(g.nx-1, max(x0, x1))
	y0, y1 = max(0, min(y0, y1)), min(g.ny-1, max(y0, y1))

	w, _ := New(Config{
		XCoords:   g.xCoords[x0 : x1+1],
		YCoords:   g.yCoords[y0 : y1+1],
		Layers:    g.nz,
		Threshold: g.threshold,
	})
	w.origin = MazeIdx{X: g.origin.X + x0, Y: g.origin.Y + y0}

	for z := 0; z < g.nz; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				src, dst := g.cell(x, y, z), w.cell(x-x0, y-y0, z)
				copy(w.demand[dst*planarDirs:(dst+1)*planarDirs], g.demand[src*planarDirs:(src+1)*planarDirs])
				copy(w.supply[dst*planarDirs:(dst+1)*planarDirs], g.supply[src*planarDirs:(src+1)*planarDirs])
				copy(w.blocked[dst*allDirs:(dst+1)*allDirs], g.blocked[src*allDirs:(src+1)*allDirs])
				w.history[dst] = g.history[src]
			}
		}
	}
	return w
}
