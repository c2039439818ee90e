package router

import (
	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/maze"
	"github.com/matzehuels/gridroute/pkg/regionquery"
	"github.com/matzehuels/gridroute/pkg/route"
)

// =============================================================================
// Path writer
// =============================================================================

// writePath turns a found path into tree edges of net ni. The path starts on
// a tree cell and ends on the target terminal. Nodes are placed at direction
// changes and on pending terminals of the net along the way; layer runs
// become one via per cut layer. If the start cell is inside an existing wire,
// that wire is split there.
//
// The path is checked before anything is mutated. Each edge then commits its
// demand under its own grid.Commit, so a failure part way through leaves the
// tree and the grid in agreement.
func (w *Worker) writePath(ni int, path maze.Path) error {
	n := w.nets[ni].net
	if len(path) == 0 {
		return errors.New(errors.ErrCodeTopology, "net %q: empty path", n.Name())
	}

	breaks := w.breakpoints(ni, path)
	for k := 1; k < len(breaks); k++ {
		a, b := path[breaks[k-1]], path[breaks[k]]
		if !straight(a, b) {
			return errors.New(errors.ErrCodeTopology, "net %q: segment %s-%s is not a straight run", n.Name(), a, b)
		}
	}
	for _, m := range path[1:] {
		if id, ok := n.NodeAt(m); ok && n.Attached(id) {
			return errors.New(errors.ErrCodeTopology, "net %q: path re-enters the tree at %s", n.Name(), m)
		}
	}
	last := path[len(path)-1]
	if id, ok := n.NodeAt(last); !ok || n.Node(id).Kind == route.Steiner {
		return errors.New(errors.ErrCodeTopology, "net %q: path end %s is not a terminal", n.Name(), last)
	}

	cur, split, err := w.resolveSource(ni, path[0])
	if err != nil {
		return err
	}
	if split != route.NoEdge {
		if cur, err = w.splitAt(ni, split, path[0]); err != nil {
			return err
		}
	}

	for k := 1; k < len(breaks); k++ {
		a, b := path[breaks[k-1]], path[breaks[k]]
		if a.Z == b.Z {
			if cur, err = w.extend(ni, cur, b, route.WireSegment{Begin: a, End: b}); err != nil {
				return err
			}
			continue
		}
		step := 1
		if b.Z < a.Z {
			step = -1
		}
		for z := a.Z; z != b.Z; z += step {
			to := grid.MazeIdx{X: a.X, Y: a.Y, Z: z + step}
			via := route.Via{Origin: grid.MazeIdx{X: a.X, Y: a.Y, Z: min(z, z+step)}}
			via.Cut = w.opts.cut(via.Origin.Z)
			if cur, err = w.extend(ni, cur, to, via); err != nil {
				return err
			}
		}
	}
	return nil
}

// breakpoints returns the path indices where a node is needed: both ends,
// every change of step direction and every cell holding a pending terminal
// of net ni.
func (w *Worker) breakpoints(ni int, path maze.Path) []int {
	out := []int{0}
	for i := 1; i < len(path)-1; i++ {
		if stepOf(path[i-1], path[i]) != stepOf(path[i], path[i+1]) || w.pendingAt(ni, path[i]) {
			out = append(out, i)
		}
	}
	if len(path) > 1 {
		out = append(out, len(path)-1)
	}
	return out
}

func stepOf(a, b grid.MazeIdx) grid.MazeIdx {
	return grid.MazeIdx{X: b.X - a.X, Y: b.Y - a.Y, Z: b.Z - a.Z}
}

// straight reports whether a and b differ in exactly one coordinate.
func straight(a, b grid.MazeIdx) bool {
	diff := 0
	if a.X != b.X {
		diff++
	}
	if a.Y != b.Y {
		diff++
	}
	if a.Z != b.Z {
		diff++
	}
	return diff == 1
}

// pendingAt reports whether an unconnected terminal of net ni has its pin
// access point at m.
func (w *Worker) pendingAt(ni int, m grid.MazeIdx) bool {
	n := w.nets[ni].net
	for _, t := range w.rq.PinAccessAt(ni, m) {
		if !n.Connected(t) {
			return true
		}
	}
	return false
}

// resolveSource finds where the path leaves the tree: an attached node at m,
// or a wire of the net whose interior contains m, to be split.
func (w *Worker) resolveSource(ni int, m grid.MazeIdx) (route.NodeID, route.EdgeID, error) {
	n := w.nets[ni].net
	if id, ok := n.NodeAt(m); ok && n.Attached(id) {
		return id, route.NoEdge, nil
	}
	for _, o := range w.rq.Query(grid.Box{Lo: m, Hi: m}, m.Z) {
		if o.Kind != regionquery.KindEdge || o.Net != ni {
			continue
		}
		if wire, ok := n.Edge(route.EdgeID(o.ID)).Figure.(route.WireSegment); ok && wire.Interior(m) {
			return route.NoNode, route.EdgeID(o.ID), nil
		}
	}
	return route.NoNode, route.NoEdge, errors.New(errors.ErrCodeTopology, "net %q: path source %s is not on the tree", n.Name(), m)
}

// splitAt splits wire e of net ni at m and returns the node placed there.
// The two shorter wires consume exactly the unit edges of the original, so
// demand is unchanged; only the index is updated.
func (w *Worker) splitAt(ni int, e route.EdgeID, m grid.MazeIdx) (route.NodeID, error) {
	n := w.nets[ni].net
	mid, err := w.nodeFor(n, m)
	if err != nil {
		return route.NoNode, err
	}
	lower, err := n.SplitEdge(e, mid)
	if err != nil {
		return route.NoNode, errors.Wrap(errors.ErrCodeTopology, err, "net %q: split at %s", n.Name(), m)
	}
	w.rq.RemoveEdge(ni, int(e))
	w.rq.AddEdge(ni, int(e), n.Edge(e).Figure.Bounds())
	w.rq.AddEdge(ni, int(lower), n.Edge(lower).Figure.Bounds())
	return mid, nil
}

// extend attaches the node at to below parent through fig, committing the
// wire's demand and indexing the edge. It returns the attached node.
func (w *Worker) extend(ni int, parent route.NodeID, to grid.MazeIdx, fig route.Figure) (route.NodeID, error) {
	n := w.nets[ni].net
	child, err := w.nodeFor(n, to)
	if err != nil {
		return route.NoNode, err
	}

	c := w.g.Begin()
	defer c.Rollback()
	if wire, ok := fig.(route.WireSegment); ok {
		c.ApplySegment(wire.Begin, wire.End, 1)
	}
	id, err := n.Connect(parent, child, fig)
	if err != nil {
		return route.NoNode, errors.Wrap(errors.ErrCodeTopology, err, "net %q: connect %s", n.Name(), to)
	}
	w.rq.AddEdge(ni, int(id), fig.Bounds())
	c.Keep()
	return child, nil
}

// nodeFor returns the node already at m, a pending terminal, or a new
// steiner node.
func (w *Worker) nodeFor(n *route.Net, m grid.MazeIdx) (route.NodeID, error) {
	if id, ok := n.NodeAt(m); ok {
		return id, nil
	}
	id, err := n.AddSteiner(m)
	if err != nil {
		return route.NoNode, errors.Wrap(errors.ErrCodeTopology, err, "net %q", n.Name())
	}
	return id, nil
}
