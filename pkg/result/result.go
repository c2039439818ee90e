// Package result holds the serializable outcome of a routing run.
//
// A Result is what the pipeline caches, the CLI writes to disk, the server
// returns and the renderers draw. It carries routing trees in both gcell
// indices and physical coordinates so consumers never need the grid.
package result

import (
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/route"
	"github.com/matzehuels/gridroute/pkg/router"
)

// GlobalWorker names the worker that routes on the full grid.
const GlobalWorker = "global"

// Edge kinds.
const (
	KindWire = "wire"
	KindVia  = "via"
)

// Result is one routing run.
type Result struct {
	ID          string           `json:"id" bson:"_id"`
	Design      string           `json:"design" bson:"design"`
	Mode        router.Mode      `json:"mode" bson:"mode"`
	CreatedAt   time.Time        `json:"created_at" bson:"created_at"`
	Layers      []string         `json:"layers" bson:"layers"`
	Partitions  int              `json:"partitions" bson:"partitions"`
	Nets        []NetRoute       `json:"nets" bson:"nets"`
	Workers     []router.Report  `json:"workers" bson:"workers"`
	Failed      []string         `json:"failed,omitempty" bson:"failed,omitempty"`
	Utilization grid.Utilization `json:"utilization" bson:"utilization"`
	Duration    time.Duration    `json:"duration_ns" bson:"duration_ns"`
}

// NetRoute is the routing tree of one net.
type NetRoute struct {
	Name       string `json:"name" bson:"name"`
	Root       int    `json:"root" bson:"root"`
	Nodes      []Node `json:"nodes" bson:"nodes"`
	Edges      []Edge `json:"edges" bson:"edges"`
	Wirelength int    `json:"wirelength" bson:"wirelength"`
	Vias       int    `json:"vias" bson:"vias"`
	Complete   bool   `json:"complete" bson:"complete"`
}

// Node is a tree node. GX, GY, Layer are global gcell indices; X, Y are the
// physical gcell center.
type Node struct {
	ID    int    `json:"id" bson:"id"`
	Kind  string `json:"kind" bson:"kind"`
	GX    int    `json:"gx" bson:"gx"`
	GY    int    `json:"gy" bson:"gy"`
	Layer int    `json:"layer" bson:"layer"`
	X     int    `json:"x" bson:"x"`
	Y     int    `json:"y" bson:"y"`
}

// Edge joins node From (the parent) to node To.
type Edge struct {
	From   int    `json:"from" bson:"from"`
	To     int    `json:"to" bson:"to"`
	Kind   string `json:"kind" bson:"kind"`
	Length int    `json:"length,omitempty" bson:"length,omitempty"`
	Cut    string `json:"cut,omitempty" bson:"cut,omitempty"`
}

// New returns an empty result with a fresh ID.
func New(design string, mode router.Mode) *Result {
	return &Result{
		ID:        uuid.NewString(),
		Design:    design,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
}

// FromNet converts the tree of n, routed on g, into a NetRoute. Indices are
// shifted by g's origin so nets routed on a window land in global indices.
func FromNet(g *grid.Graph, n *route.Net) NetRoute {
	out := NetRoute{
		Name:       n.Name(),
		Wirelength: n.Wirelength(),
		Vias:       n.ViaCount(),
		Complete:   n.Complete(),
	}
	origin := g.Origin()
	ids := make(map[route.NodeID]int)
	for _, id := range n.Nodes() {
		node := n.Node(id)
		p := g.Point(node.Loc.X, node.Loc.Y)
		ids[id] = len(out.Nodes)
		out.Nodes = append(out.Nodes, Node{
			ID:    len(out.Nodes),
			Kind:  node.Kind.String(),
			GX:    node.Loc.X + origin.X,
			GY:    node.Loc.Y + origin.Y,
			Layer: node.Loc.Z,
			X:     p.X,
			Y:     p.Y,
		})
	}
	out.Root = ids[n.Root()]
	for _, id := range n.Edges() {
		e := n.Edge(id)
		edge := Edge{From: ids[e.Parent], To: ids[e.Child]}
		switch f := e.Figure.(type) {
		case route.WireSegment:
			edge.Kind = KindWire
			edge.Length = f.Length()
		case route.Via:
			edge.Kind = KindVia
			edge.Cut = f.Cut
		}
		out.Edges = append(out.Edges, edge)
	}
	return out
}

// OK reports whether every net was fully connected.
func (r *Result) OK() bool { return len(r.Failed) == 0 }

// Wirelength sums the wirelength of every net.
func (r *Result) Wirelength() int {
	total := 0
	for _, n := range r.Nets {
		total += n.Wirelength
	}
	return total
}

// Vias sums the via count of every net.
func (r *Result) Vias() int {
	total := 0
	for _, n := range r.Nets {
		total += n.Vias
	}
	return total
}

// Iterations returns the per-iteration stats to chart for the run. When a
// global worker ran on the full grid its stats are returned as they are.
// Otherwise every net finished inside a partition, and the partition
// workers' stats are summed round by round; their durations overlap, so the
// longest one is kept.
func (r *Result) Iterations() []router.IterationStats {
	if len(r.Workers) == 0 {
		return nil
	}
	if last := r.Workers[len(r.Workers)-1]; last.Worker == GlobalWorker {
		return last.Iterations
	}
	var out []router.IterationStats
	for _, w := range r.Workers {
		for k, st := range w.Iterations {
			if k == len(out) {
				out = append(out, router.IterationStats{Iteration: st.Iteration})
			}
			acc := &out[k]
			acc.Rerouted += st.Rerouted
			acc.Failed += st.Failed
			acc.OverflowEdges += st.OverflowEdges
			acc.TotalOverflow += st.TotalOverflow
			acc.Wirelength += st.Wirelength
			acc.Vias += st.Vias
			acc.Duration = max(acc.Duration, st.Duration)
		}
	}
	return out
}

// Net returns the route of the named net.
func (r *Result) Net(name string) (NetRoute, bool) {
	for _, n := range r.Nets {
		if n.Name == name {
			return n, true
		}
	}
	return NetRoute{}, false
}
