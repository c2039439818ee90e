// Package route models the routing tree of one net.
//
// A Net is an arena of nodes and edges addressed by stable integer handles.
// Parent and child links are handles, so pruning steiner nodes during rip-up
// never leaves a dangling reference. Terminal nodes are created once, up
// front, and survive rip-up; steiner nodes and edges are recycled through free
// lists.
//
// The package is pure topology. Demand bookkeeping on the grid and spatial
// indexing are the caller's job, driven from the edges this package reports.
package route

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/gridroute/pkg/grid"
)

// NodeID is a stable handle to a node of a Net.
type NodeID int32

// EdgeID is a stable handle to an edge of a Net.
type EdgeID int32

const (
	// NoNode is the nil node handle.
	NoNode NodeID = -1
	// NoEdge is the nil edge handle.
	NoEdge EdgeID = -1
)

// NodeKind tags a node.
type NodeKind uint8

const (
	// Steiner is a branch or bend point introduced while writing a path.
	Steiner NodeKind = iota
	// PinTerminal is a pin of the net.
	PinTerminal
	// BoundaryPin is a terminal on the routing region boundary.
	BoundaryPin
)

func (k NodeKind) String() string {
	switch k {
	case Steiner:
		return "steiner"
	case PinTerminal:
		return "pin"
	case BoundaryPin:
		return "boundary"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// IsTerminal reports whether nodes of kind k must be connected to the tree.
func (k NodeKind) IsTerminal() bool { return k != Steiner }

// Errors reported by tree mutations. They indicate a caller bug or an
// inconsistent path and leave the Net unchanged.
var (
	ErrNoTerminals = errors.New("route: net has no terminals")
	ErrNodeExists  = errors.New("route: a node already occupies the gcell")
	ErrBadHandle   = errors.New("route: stale or invalid handle")
	ErrAttached    = errors.New("route: node is already attached to the tree")
	ErrDetached    = errors.New("route: parent is not attached to the tree")
	ErrBadFigure   = errors.New("route: figure does not join the two nodes")
	ErrNotInterior = errors.New("route: split point is not inside the wire")
)

// Terminal describes one terminal handed to New.
type Terminal struct {
	Loc  grid.MazeIdx
	Kind NodeKind
}

// Node is a tree node. Values returned by Net.Node are snapshots; the
// Children slice must not be modified.
type Node struct {
	Kind       NodeKind
	Loc        grid.MazeIdx
	Parent     NodeID
	ParentEdge EdgeID
	Children   []NodeID
	live       bool
}

// Edge joins a parent node to a child node.
type Edge struct {
	Figure Figure
	Parent NodeID
	Child  NodeID
	live   bool
}

// Net is the routing tree of one net.
type Net struct {
	name      string
	nodes     []Node
	edges     []Edge
	freeNodes []NodeID
	freeEdges []EdgeID
	at        map[grid.MazeIdx]NodeID
	terminals []NodeID
	root      NodeID
}

// New creates a net whose tree holds only the root, terminal 0. Every other
// terminal starts detached. Terminals sharing a gcell share a node.
func New(name string, terms []Terminal) (*Net, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTerminals, name)
	}
	n := &Net{
		name:      name,
		at:        make(map[grid.MazeIdx]NodeID, len(terms)),
		terminals: make([]NodeID, len(terms)),
	}
	for i, t := range terms {
		if id, ok := n.at[t.Loc]; ok {
			n.terminals[i] = id
			continue
		}
		kind := t.Kind
		if !kind.IsTerminal() {
			kind = PinTerminal
		}
		n.terminals[i] = n.newNode(kind, t.Loc)
	}
	n.root = n.terminals[0]
	return n, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Name returns the net name.
func (n *Net) Name() string { return n.name }

// Root returns the root node.
func (n *Net) Root() NodeID { return n.root }

// Node returns a snapshot of node id.
func (n *Net) Node(id NodeID) Node { return n.nodes[id] }

// Edge returns a snapshot of edge id.
func (n *Net) Edge(id EdgeID) Edge { return n.edges[id] }

// NodeAt returns the node occupying gcell m, if any.
func (n *Net) NodeAt(m grid.MazeIdx) (NodeID, bool) {
	id, ok := n.at[m]
	return id, ok
}

// NumTerminals returns the number of terminals given to New.
func (n *Net) NumTerminals() int { return len(n.terminals) }

// Terminal returns the node of terminal i.
func (n *Net) Terminal(i int) NodeID { return n.terminals[i] }

// Attached reports whether id is part of the tree rooted at Root.
func (n *Net) Attached(id NodeID) bool {
	return id == n.root || n.nodes[id].Parent != NoNode
}

// Connected reports whether terminal i is part of the tree.
func (n *Net) Connected(i int) bool { return n.Attached(n.terminals[i]) }

// Pending returns the indices of terminals not yet connected, ascending.
func (n *Net) Pending() []int {
	var out []int
	for i := range n.terminals {
		if !n.Connected(i) {
			out = append(out, i)
		}
	}
	return out
}

// Complete reports whether every terminal is connected.
func (n *Net) Complete() bool { return len(n.Pending()) == 0 }

// Nodes returns the live node handles, ascending.
func (n *Net) Nodes() []NodeID {
	var out []NodeID
	for i := range n.nodes {
		if n.nodes[i].live {
			out = append(out, NodeID(i))
		}
	}
	return out
}

// Edges returns the live edge handles, ascending.
func (n *Net) Edges() []EdgeID {
	var out []EdgeID
	for i := range n.edges {
		if n.edges[i].live {
			out = append(out, EdgeID(i))
		}
	}
	return out
}

// =============================================================================
// Mutation
// =============================================================================

func (n *Net) newNode(kind NodeKind, loc grid.MazeIdx) NodeID {
	node := Node{Kind: kind, Loc: loc, Parent: NoNode, ParentEdge: NoEdge, live: true}
	var id NodeID
	if k := len(n.freeNodes); k > 0 {
		id = n.freeNodes[k-1]
		n.freeNodes = n.freeNodes[:k-1]
		n.nodes[id] = node
	} else {
		id = NodeID(len(n.nodes))
		n.nodes = append(n.nodes, node)
	}
	n.at[loc] = id
	return id
}

func (n *Net) newEdge(e Edge) EdgeID {
	e.live = true
	if k := len(n.freeEdges); k > 0 {
		id := n.freeEdges[k-1]
		n.freeEdges = n.freeEdges[:k-1]
		n.edges[id] = e
		return id
	}
	n.edges = append(n.edges, e)
	return EdgeID(len(n.edges) - 1)
}

func (n *Net) validNode(id NodeID) bool {
	return id >= 0 && int(id) < len(n.nodes) && n.nodes[id].live
}

func (n *Net) validEdge(id EdgeID) bool {
	return id >= 0 && int(id) < len(n.edges) && n.edges[id].live
}

// AddSteiner creates a detached steiner node at m.
func (n *Net) AddSteiner(m grid.MazeIdx) (NodeID, error) {
	if _, ok := n.at[m]; ok {
		return NoNode, fmt.Errorf("%w: %s", ErrNodeExists, m)
	}
	return n.newNode(Steiner, m), nil
}

// Connect attaches the detached node child below parent through fig.
func (n *Net) Connect(parent, child NodeID, fig Figure) (EdgeID, error) {
	if !n.validNode(parent) || !n.validNode(child) {
		return NoEdge, ErrBadHandle
	}
	if !n.Attached(parent) {
		return NoEdge, fmt.Errorf("%w: %s", ErrDetached, n.nodes[parent].Loc)
	}
	if n.Attached(child) {
		return NoEdge, fmt.Errorf("%w: %s", ErrAttached, n.nodes[child].Loc)
	}
	if !joins(fig, n.nodes[parent].Loc, n.nodes[child].Loc) {
		return NoEdge, fmt.Errorf("%w: %v", ErrBadFigure, fig)
	}
	id := n.newEdge(Edge{Figure: fig, Parent: parent, Child: child})
	n.link(parent, child, id)
	return id, nil
}

func (n *Net) link(parent, child NodeID, e EdgeID) {
	n.nodes[child].Parent = parent
	n.nodes[child].ParentEdge = e
	n.nodes[parent].Children = append(n.nodes[parent].Children, child)
}

// joins reports whether fig runs between gcells a and b.
func joins(fig Figure, a, b grid.MazeIdx) bool {
	switch f := fig.(type) {
	case WireSegment:
		if !f.Valid() {
			return false
		}
		return (f.Begin == a && f.End == b) || (f.Begin == b && f.End == a)
	case Via:
		lo, hi := f.Origin, f.Top()
		return (lo == a && hi == b) || (lo == b && hi == a)
	default:
		return false
	}
}

// SplitEdge inserts the detached node mid into wire edge e at mid's gcell,
// which must lie strictly inside the wire. Edge e is shortened to end at mid
// and a new edge from mid to e's former child is returned.
func (n *Net) SplitEdge(e EdgeID, mid NodeID) (EdgeID, error) {
	if !n.validEdge(e) || !n.validNode(mid) {
		return NoEdge, ErrBadHandle
	}
	if n.Attached(mid) {
		return NoEdge, fmt.Errorf("%w: %s", ErrAttached, n.nodes[mid].Loc)
	}
	old := n.edges[e]
	wire, ok := old.Figure.(WireSegment)
	at := n.nodes[mid].Loc
	if !ok || !wire.Interior(at) {
		return NoEdge, fmt.Errorf("%w: %s in %v", ErrNotInterior, at, old.Figure)
	}
	parent, child := old.Parent, old.Child

	n.edges[e].Figure = WireSegment{Begin: n.nodes[parent].Loc, End: at}
	n.edges[e].Child = mid
	n.nodes[mid].Parent = parent
	n.nodes[mid].ParentEdge = e
	kids := n.nodes[parent].Children
	kids[slices.Index(kids, child)] = mid

	lower := n.newEdge(Edge{Figure: WireSegment{Begin: at, End: n.nodes[child].Loc}, Parent: mid, Child: child})
	n.link(mid, child, lower)
	return lower, nil
}

// RipUp removes every edge and steiner node. Terminal nodes stay in place,
// detached, and the root remains the tree's only member.
func (n *Net) RipUp() {
	for i := range n.edges {
		if n.edges[i].live {
			n.edges[i] = Edge{}
			n.freeEdges = append(n.freeEdges, EdgeID(i))
		}
	}
	for i := range n.nodes {
		node := &n.nodes[i]
		if !node.live {
			continue
		}
		if node.Kind == Steiner {
			delete(n.at, node.Loc)
			*node = Node{}
			n.freeNodes = append(n.freeNodes, NodeID(i))
			continue
		}
		node.Parent = NoNode
		node.ParentEdge = NoEdge
		node.Children = nil
	}
}

// =============================================================================
// Queries
// =============================================================================

// Cells returns every gcell covered by the tree: attached node locations and
// the interiors of wires, in a deterministic order.
func (n *Net) Cells() []grid.MazeIdx {
	seen := make(map[grid.MazeIdx]struct{})
	var out []grid.MazeIdx
	add := func(m grid.MazeIdx) {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	add(n.nodes[n.root].Loc)
	for _, id := range n.Edges() {
		switch f := n.edges[id].Figure.(type) {
		case WireSegment:
			for _, m := range f.Cells() {
				add(m)
			}
		case Via:
			add(f.Origin)
			add(f.Top())
		}
	}
	return out
}

// Bounds returns the box covering Cells.
func (n *Net) Bounds() grid.Box {
	cells := n.Cells()
	b := grid.Box{Lo: cells[0], Hi: cells[0]}
	for _, m := range cells[1:] {
		b = b.Extend(m)
	}
	return b
}

// Wirelength returns the total planar length of wire edges in gcell steps.
func (n *Net) Wirelength() int {
	total := 0
	for _, id := range n.Edges() {
		if w, ok := n.edges[id].Figure.(WireSegment); ok {
			total += w.Length()
		}
	}
	return total
}

// ViaCount returns the number of via edges.
func (n *Net) ViaCount() int {
	count := 0
	for _, id := range n.Edges() {
		if _, ok := n.edges[id].Figure.(Via); ok {
			count++
		}
	}
	return count
}

// Validate checks the tree: every attached node reaches the root through
// parent links without revisiting a node, parent and child links agree with
// their edges, and, when complete is set, every terminal is attached.
func (n *Net) Validate(complete bool) error {
	for _, id := range n.Nodes() {
		if !n.Attached(id) {
			continue
		}
		steps := 0
		for cur := id; cur != n.root; cur = n.nodes[cur].Parent {
			node := n.nodes[cur]
			if !n.validNode(node.Parent) || !n.validEdge(node.ParentEdge) {
				return fmt.Errorf("route: net %s: node %s has a broken parent link", n.name, node.Loc)
			}
			e := n.edges[node.ParentEdge]
			if e.Child != cur || e.Parent != node.Parent || !slices.Contains(n.nodes[node.Parent].Children, cur) {
				return fmt.Errorf("route: net %s: edge to %s disagrees with its nodes", n.name, node.Loc)
			}
			if steps++; steps > len(n.nodes) {
				return fmt.Errorf("route: net %s: cycle through %s", n.name, node.Loc)
			}
		}
	}
	if complete {
		for i := range n.terminals {
			if !n.Connected(i) {
				return fmt.Errorf("route: net %s: terminal %d at %s is not connected",
					n.name, i, n.nodes[n.terminals[i]].Loc)
			}
		}
	}
	return nil
}
