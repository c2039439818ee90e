// Package grid provides the 3-D routing resource model used by the global
// router.
//
// # Overview
//
// A [Graph] discretizes the routing area into gcells indexed by x, y and a
// routing layer z. Every gcell carries, per planar direction ([East] and
// [North]), an integer raw demand and raw supply, plus one history cost
// scalar shared by all directions of the cell. The East demand of gcell x is
// the demand of the unit edge between x and x+1, and likewise for North, so
// a wire of length L consumes L units. Vias ([Up]) carry no demand but can be
// blocked.
//
// The graph is allocated once per worker region and never resized. All
// mutation goes through add/subtract pairs; [Graph.Begin] returns a [Commit]
// that records every delta so a partially applied path can be rolled back:
//
//	c := g.Begin()
//	defer c.Rollback()
//	c.ApplySegment(a, b, 1)
//	c.Keep()
//
// # Congestion
//
// A cell direction is congested when rawDemand > threshold × rawSupply
// ([Graph.IsCongested]). History cost grows with [Graph.AddHistoryCost] and
// shrinks only through explicit multiplicative decay.
//
// # Coordinates
//
// Physical points map to gcell indices through the sorted gcell center
// coordinates ([Graph.MazeIdx]); [Graph.Point] returns a gcell center, so
// on-grid points round-trip exactly.
package grid
