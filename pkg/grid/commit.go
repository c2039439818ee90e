package grid

// Commit records demand deltas applied to a Graph so they can be undone as a
// unit. Deltas take effect immediately; Rollback applies their inverses in
// reverse order unless Keep was called first.
//
// The usual shape is:
//
//	c := g.Begin()
//	defer c.Rollback()
//	... c.ApplySegment(...) ...
//	c.Keep()
type Commit struct {
	g      *Graph
	deltas []delta
	closed bool
}

type delta struct {
	cell   MazeIdx
	dir    Dir
	amount int
}

// Begin starts a new Commit on g.
func (g *Graph) Begin() *Commit {
	return &Commit{g: g}
}

// Apply adds a signed amount to one cell direction and records it.
func (c *Commit) Apply(m MazeIdx, dir Dir, amount int) {
	if c.closed {
		panic("grid: apply on closed commit")
	}
	c.g.ApplyDelta(m.X, m.Y, m.Z, dir, amount)
	c.deltas = append(c.deltas, delta{cell: m, dir: dir, amount: amount})
}

// ApplySegment applies amount to every unit edge of the planar run a..b and
// records it.
func (c *Commit) ApplySegment(a, b MazeIdx, amount int) {
	forSpan(a, b, func(m MazeIdx, dir Dir) {
		c.Apply(m, dir, amount)
	})
}

// Len returns the number of recorded deltas.
func (c *Commit) Len() int { return len(c.deltas) }

// Keep makes the recorded deltas permanent. Later Rollback calls are no-ops.
func (c *Commit) Keep() {
	c.closed = true
	c.deltas = nil
}

// Rollback undoes every recorded delta in reverse order. It is a no-op after
// Keep or a previous Rollback.
func (c *Commit) Rollback() {
	if c.closed {
		return
	}
	for i := len(c.deltas) - 1; i >= 0; i-- {
		d := c.deltas[i]
		c.g.ApplyDelta(d.cell.X, d.cell.Y, d.cell.Z, d.dir, -d.amount)
	}
	c.deltas = nil
	c.closed = true
}
