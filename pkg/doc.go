// Package pkg provides the libraries behind gridroute, a negotiated-congestion
// global router for multi-layer routing grids.
//
// # Overview
//
// A design names a grid, its layers and a set of nets. Each net is routed as
// a tree of planar wire segments and vias; nets compete for edge capacity and
// are ripped up and re-routed with rising history costs until no edge is
// overflowed or the iteration budget runs out. The pkg directory is organized
// into these areas:
//
//  1. [design], [grid] - Input model and the capacity/demand grid
//  2. [route], [regionquery] - Route trees and spatial lookup of their figures
//  3. [maze], [router] - A* search and the rip-up-and-reroute worker
//  4. [pipeline] - Orchestration (partition, route, merge, render)
//  5. [result], [io], [render] - Serialization, file I/O and visualization
//  6. [cache], [errors], [observability], [buildinfo] - Supporting infrastructure
//
// # Architecture
//
//	design file (TOML/YAML/JSON)
//	         ↓
//	    [design] package (validate, build grid)
//	         ↓
//	    [pipeline] package (split into regions, run workers concurrently)
//	         ↓
//	    [router] package (negotiate congestion with [maze] searches)
//	         ↓
//	    [result] package (per-net trees, utilization, iteration reports)
//	         ↓
//	    DOT/SVG/PNG/JSON output via [render] and [io]
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/gridroute/pkg/io"
//	    "github.com/matzehuels/gridroute/pkg/pipeline"
//	)
//
//	d, err := io.ImportDesign("chip.toml")
//	if err != nil {
//	    return err
//	}
//	runner := pipeline.NewRunner(nil, nil, logger)
//	res, err := runner.Route(ctx, d, pipeline.Options{PartitionsX: 2, PartitionsY: 2})
//	if err != nil {
//	    return err
//	}
//	artifacts, err := runner.Render(ctx, res, pipeline.Options{Formats: []string{"svg"}})
//
// [design]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/design
// [grid]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/grid
// [route]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/route
// [regionquery]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/regionquery
// [maze]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/maze
// [router]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/router
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/pipeline
// [result]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/result
// [io]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/io
// [render]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/render
// [cache]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/gridroute/pkg/buildinfo
package pkg
