// Package regionquery indexes routed objects by gcell so the router can ask
// which nets occupy a region.
//
// Two kinds of object are stored: committed route edges, which come and go as
// nets are written and ripped up, and fixed pin access points, registered
// once per worker. Both are addressed by the worker-local net index.
//
// The index buckets objects by every gcell their box covers, which suits the
// coarse global-routing grid: boxes are short and queries are usually a
// single gcell.
package regionquery

import (
	"cmp"
	"slices"

	"github.com/matzehuels/gridroute/pkg/grid"
)

// Kind distinguishes indexed objects.
type Kind uint8

const (
	// KindEdge is a committed wire segment or via of a routed net.
	KindEdge Kind = iota
	// KindPinAccess is a fixed pin access point of a net terminal.
	KindPinAccess
)

// Object is one indexed entry.
type Object struct {
	Kind Kind
	Net  int // worker-local net index
	ID   int // edge handle for KindEdge, terminal index for KindPinAccess
	Box  grid.Box
}

type key struct {
	kind Kind
	net  int
	id   int
}

// Index is a gcell-bucketed spatial index. It is not safe for concurrent use;
// each worker owns its own.
type Index struct {
	nx, ny, nz int
	objects    map[key]Object
	cells      map[int]map[key]struct{}
}

// New creates an empty index over an nx × ny × nz grid.
func New(nx, ny, nz int) *Index {
	return &Index{
		nx:      nx,
		ny:      ny,
		nz:      nz,
		objects: make(map[key]Object),
		cells:   make(map[int]map[key]struct{}),
	}
}

// ForGraph creates an empty index matching g's extents.
func ForGraph(g *grid.Graph) *Index {
	return New(g.Dims())
}

// Len returns the number of indexed objects.
func (ix *Index) Len() int { return len(ix.objects) }

// AddEdge indexes a committed edge of net covering box. Re-adding the same
// handle replaces the previous entry.
func (ix *Index) AddEdge(net, edge int, box grid.Box) {
	ix.add(Object{Kind: KindEdge, Net: net, ID: edge, Box: box})
}

// RemoveEdge drops a committed edge. Unknown handles are ignored.
func (ix *Index) RemoveEdge(net, edge int) {
	ix.remove(key{kind: KindEdge, net: net, id: edge})
}

// AddPinAccess indexes a fixed access point of terminal on net.
func (ix *Index) AddPinAccess(net, terminal int, at grid.MazeIdx) {
	ix.add(Object{Kind: KindPinAccess, Net: net, ID: terminal, Box: grid.Box{Lo: at, Hi: at}})
}

func (ix *Index) add(o Object) {
	k := key{kind: o.Kind, net: o.Net, id: o.ID}
	if _, ok := ix.objects[k]; ok {
		ix.remove(k)
	}
	ix.objects[k] = o
	ix.forCells(o.Box, func(c int) {
		bucket := ix.cells[c]
		if bucket == nil {
			bucket = make(map[key]struct{})
			ix.cells[c] = bucket
		}
		bucket[k] = struct{}{}
	})
}

func (ix *Index) remove(k key) {
	o, ok := ix.objects[k]
	if !ok {
		return
	}
	delete(ix.objects, k)
	ix.forCells(o.Box, func(c int) {
		bucket := ix.cells[c]
		delete(bucket, k)
		if len(bucket) == 0 {
			delete(ix.cells, c)
		}
	})
}

func (ix *Index) forCells(b grid.Box, fn func(int)) {
	lo := grid.MazeIdx{X: max(b.Lo.X, 0), Y: max(b.Lo.Y, 0), Z: max(b.Lo.Z, 0)}
	hi := grid.MazeIdx{X: min(b.Hi.X, ix.nx-1), Y: min(b.Hi.Y, ix.ny-1), Z: min(b.Hi.Z, ix.nz-1)}
	for z := lo.Z; z <= hi.Z; z++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for x := lo.X; x <= hi.X; x++ {
				fn((z*ix.ny+y)*ix.nx + x)
			}
		}
	}
}

// Query returns every object overlapping the planar box on layer z, ordered
// by kind, net and handle.
func (ix *Index) Query(box grid.Box, z int) []Object {
	box.Lo.Z, box.Hi.Z = z, z
	seen := make(map[key]struct{})
	var out []Object
	ix.forCells(box, func(c int) {
		for k := range ix.cells[c] {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, ix.objects[k])
		}
	})
	slices.SortFunc(out, func(a, b Object) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Net, b.Net), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// NetsAt returns the distinct nets with a committed edge in gcell m, in
// ascending order. When keep is non-nil only edges whose box it accepts
// count.
func (ix *Index) NetsAt(m grid.MazeIdx, keep func(grid.Box) bool) []int {
	var nets []int
	for _, o := range ix.Query(grid.Box{Lo: m, Hi: m}, m.Z) {
		if o.Kind != KindEdge || (keep != nil && !keep(o.Box)) {
			continue
		}
		if n := len(nets); n == 0 || nets[n-1] != o.Net {
			nets = append(nets, o.Net)
		}
	}
	return nets
}

// PinAccessAt returns the terminals of net with an access point at m.
func (ix *Index) PinAccessAt(net int, m grid.MazeIdx) []int {
	var terms []int
	for _, o := range ix.Query(grid.Box{Lo: m, Hi: m}, m.Z) {
		if o.Kind == KindPinAccess && o.Net == net {
			terms = append(terms, o.ID)
		}
	}
	return terms
}
