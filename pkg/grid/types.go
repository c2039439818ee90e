package grid

import "fmt"

// Dir is a routing direction. Planar directions carry demand and supply;
// Up only carries blockage.
type Dir uint8

const (
	// East is the +x direction; wires along x consume East capacity.
	East Dir = iota
	// North is the +y direction; wires along y consume North capacity.
	North
	// Up is the +z direction between adjacent routing layers.
	Up
)

// planarDirs is the number of directions that carry demand and supply.
const planarDirs = 2

// allDirs is the number of directions that can be blocked.
const allDirs = 3

// String returns the direction name.
func (d Dir) String() string {
	switch d {
	case East:
		return "east"
	case North:
		return "north"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("dir(%d)", d)
	}
}

// Planar reports whether d carries demand and supply.
func (d Dir) Planar() bool { return d < planarDirs }

// MazeIdx is a gcell index triple. It is the only coordinate type the maze
// search operates on.
type MazeIdx struct {
	X, Y, Z int
}

// String formats the index as "(x,y,z)".
func (m MazeIdx) String() string {
	return fmt.Sprintf("(%d,%d,%d)", m.X, m.Y, m.Z)
}

// Add returns m shifted by (dx, dy, dz).
func (m MazeIdx) Add(dx, dy, dz int) MazeIdx {
	return MazeIdx{X: m.X + dx, Y: m.Y + dy, Z: m.Z + dz}
}

// Manhattan returns |dx|+|dy| between m and o, ignoring layers.
func (m MazeIdx) Manhattan(o MazeIdx) int {
	return abs(m.X-o.X) + abs(m.Y-o.Y)
}

// Point is a physical location in database units.
type Point struct {
	X, Y int
}

// CellDir addresses one direction of one gcell.
type CellDir struct {
	MazeIdx
	Dir Dir
}

// Box is an inclusive axis-aligned box of gcell indices.
type Box struct {
	Lo, Hi MazeIdx
}

// BoxOf returns the smallest box containing a and b.
func BoxOf(a, b MazeIdx) Box {
	return Box{
		Lo: MazeIdx{X: min(a.X, b.X), Y: min(a.Y, b.Y), Z: min(a.Z, b.Z)},
		Hi: MazeIdx{X: max(a.X, b.X), Y: max(a.Y, b.Y), Z: max(a.Z, b.Z)},
	}
}

// Extend returns the box grown to include m.
func (b Box) Extend(m MazeIdx) Box {
	return Box{
		Lo: MazeIdx{X: min(b.Lo.X, m.X), Y: min(b.Lo.Y, m.Y), Z: min(b.Lo.Z, m.Z)},
		Hi: MazeIdx{X: max(b.Hi.X, m.X), Y: max(b.Hi.Y, m.Y), Z: max(b.Hi.Z, m.Z)},
	}
}

// Contains reports whether m lies inside the box.
func (b Box) Contains(m MazeIdx) bool {
	return m.X >= b.Lo.X && m.X <= b.Hi.X &&
		m.Y >= b.Lo.Y && m.Y <= b.Hi.Y &&
		m.Z >= b.Lo.Z && m.Z <= b.Hi.Z
}

// Distance returns the rectilinear distance from m to the box in x/y and the
// layer distance in z. Both are zero when m is inside.
func (b Box) Distance(m MazeIdx) (planar, layers int) {
	planar = outside(m.X, b.Lo.X, b.Hi.X) + outside(m.Y, b.Lo.Y, b.Hi.Y)
	layers = outside(m.Z, b.Lo.Z, b.Hi.Z)
	return planar, layers
}

func outside(v, lo, hi int) int {
	switch {
	case v < lo:
		return lo - v
	case v > hi:
		return v - hi
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
