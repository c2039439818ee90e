package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gridroute/pkg/design"
	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/observability"
	"github.com/matzehuels/gridroute/pkg/result"
	"github.com/matzehuels/gridroute/pkg/route"
	"github.com/matzehuels/gridroute/pkg/router"
)

// GlobalWorker names the worker that routes cross-partition nets on the
// full grid.
const GlobalWorker = result.GlobalWorker

// region is one partition: an inclusive gcell index range and the design
// nets (by index) whose pins all fall inside it.
type region struct {
	name           string
	x0, y0, x1, y1 int
	nets           []int
}

func (r *region) contains(m grid.MazeIdx) bool {
	return m.X >= r.x0 && m.X <= r.x1 && m.Y >= r.y0 && m.Y <= r.y1
}

// regionRun is what a partition worker leaves behind.
type regionRun struct {
	window *grid.Graph
	worker *router.Worker
	report *router.Report
}

// Route routes every net of d. Nets confined to one partition are routed
// first, concurrently, each partition on its own grid window. Nets that span
// partitions, and partition nets that could not be completed, are then
// routed on the full grid after the partition demand has been merged in.
func Route(ctx context.Context, d *design.Design, opts Options) (*result.Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if len(opts.ViaCuts) == 0 {
		opts.ViaCuts = d.ViaCuts()
	}
	hooks := observability.Pipeline()
	start := time.Now()

	g, err := d.BuildGrid(opts.Threshold)
	if err != nil {
		return nil, err
	}

	terms := make([][]route.Terminal, len(d.Nets))
	for i, n := range d.Nets {
		terms[i] = d.Terminals(g, n)
	}
	regions, global := partition(g, d, terms, opts.PartitionsX, opts.PartitionsY)
	hooks.OnRouteStart(ctx, d.Name, len(d.Nets), len(regions))

	res, err := routeAll(ctx, g, d, terms, regions, global, opts)
	if err != nil {
		hooks.OnRouteComplete(ctx, d.Name, 0, time.Since(start), err)
		return nil, err
	}
	res.Duration = time.Since(start)
	hooks.OnRouteComplete(ctx, d.Name, len(res.Failed), res.Duration, nil)

	opts.Logger.Info("routing complete",
		"design", d.Name,
		"nets", len(res.Nets),
		"failed", len(res.Failed),
		"wirelength", res.Wirelength(),
		"vias", res.Vias(),
		"overflow", res.Utilization.TotalOverflow,
		"duration", res.Duration)
	return res, nil
}

func routeAll(ctx context.Context, g *grid.Graph, d *design.Design, terms [][]route.Terminal,
	regions []*region, global []int, opts Options) (*result.Result, error) {
	res := result.New(d.Name, opts.Mode)
	res.Partitions = max(1, len(regions))
	for _, l := range d.Layers {
		res.Layers = append(res.Layers, l.Name)
	}
	routes := make([]result.NetRoute, len(d.Nets))

	// Partition workers share nothing: each owns a window copy of g.
	runs := make([]*regionRun, len(regions))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.Concurrency)
	for ri, r := range regions {
		grp.Go(func() error {
			run, err := routeRegion(gctx, g, d, terms, r, opts)
			if err != nil {
				return err
			}
			runs[ri] = run
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	for ri, run := range runs {
		res.Workers = append(res.Workers, *run.report)
		for i, ni := range regions[ri].nets {
			n := run.worker.Net(i)
			if !n.Complete() {
				opts.Logger.Warn("partition net left incomplete, retrying on full grid",
					"net", n.Name(), "partition", regions[ri].name)
				global = append(global, ni)
				continue
			}
			mergeDemand(g, run.window.Origin(), n)
			routes[ni] = result.FromNet(run.window, n)
		}
	}

	if len(global) > 0 {
		specs := make([]router.NetSpec, len(global))
		for i, ni := range global {
			specs[i] = router.NetSpec{Name: d.Nets[ni].Name, Terminals: terms[ni]}
		}
		wopts := opts.Options
		wopts.Name = GlobalWorker
		w, err := router.NewWorker(g, specs, wopts)
		if err != nil {
			return nil, err
		}
		report, err := w.Run(ctx)
		if err != nil {
			return nil, err
		}
		res.Workers = append(res.Workers, *report)
		res.Failed = report.Failed
		for i, ni := range global {
			routes[ni] = result.FromNet(g, w.Net(i))
		}
	}

	for i, n := range d.Nets {
		if !n.IsTrivial() {
			continue
		}
		routes[i] = trivialRoute(g, n.Name, terms[i])
	}
	res.Nets = routes
	res.Utilization = g.Utilization()
	return res, nil
}

func routeRegion(ctx context.Context, g *grid.Graph, d *design.Design, terms [][]route.Terminal,
	r *region, opts Options) (*regionRun, error) {
	window := g.Window(r.x0, r.y0, r.x1, r.y1)
	origin := window.Origin()
	specs := make([]router.NetSpec, len(r.nets))
	for i, ni := range r.nets {
		local := make([]route.Terminal, len(terms[ni]))
		for ti, t := range terms[ni] {
			t.Loc = t.Loc.Add(-origin.X, -origin.Y, 0)
			local[ti] = t
		}
		specs[i] = router.NetSpec{Name: d.Nets[ni].Name, Terminals: local}
	}
	wopts := opts.Options
	wopts.Name = r.name
	w, err := router.NewWorker(window, specs, wopts)
	if err != nil {
		return nil, err
	}
	report, err := w.Run(ctx)
	if err != nil {
		return nil, err
	}
	return &regionRun{window: window, worker: w, report: report}, nil
}

// partition assigns each routable net to the region holding all of its
// pins. Nets spanning regions go to the global list. With a single region
// every net is global.
func partition(g *grid.Graph, d *design.Design, terms [][]route.Terminal, px, py int) ([]*region, []int) {
	var global []int
	nx, ny, _ := g.Dims()
	px, py = min(px, nx), min(py, ny)
	if px*py <= 1 {
		for i, n := range d.Nets {
			if !n.IsTrivial() {
				global = append(global, i)
			}
		}
		return nil, global
	}

	all := make([]*region, 0, px*py)
	for j := 0; j < py; j++ {
		for i := 0; i < px; i++ {
			all = append(all, &region{
				name: fmt.Sprintf("p%d.%d", i, j),
				x0:   i * nx / px,
				x1:   (i+1)*nx/px - 1,
				y0:   j * ny / py,
				y1:   (j+1)*ny/py - 1,
			})
		}
	}

	for i, n := range d.Nets {
		if n.IsTrivial() {
			continue
		}
		if r := regionOf(all, terms[i]); r != nil {
			r.nets = append(r.nets, i)
		} else {
			global = append(global, i)
		}
	}

	regions := all[:0]
	for _, r := range all {
		if len(r.nets) > 0 {
			regions = append(regions, r)
		}
	}
	return regions, global
}

func regionOf(regions []*region, terms []route.Terminal) *region {
	for _, r := range regions {
		if !r.contains(terms[0].Loc) {
			continue
		}
		for _, t := range terms[1:] {
			if !r.contains(t.Loc) {
				return nil
			}
		}
		return r
	}
	return nil
}

// mergeDemand commits the wires of n, routed on a window at origin, to g.
func mergeDemand(g *grid.Graph, origin grid.MazeIdx, n *route.Net) {
	for _, id := range n.Edges() {
		w, ok := n.Edge(id).Figure.(route.WireSegment)
		if !ok {
			continue
		}
		g.ApplySegment(w.Begin.Add(origin.X, origin.Y, 0), w.End.Add(origin.X, origin.Y, 0), 1)
	}
}

// trivialRoute records a net that needs no routing: its root alone, or
// nothing when it has no pins.
func trivialRoute(g *grid.Graph, name string, terms []route.Terminal) result.NetRoute {
	n, err := route.New(name, terms)
	if err != nil {
		return result.NetRoute{Name: name, Complete: true}
	}
	return result.FromNet(g, n)
}
