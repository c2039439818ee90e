// Package router implements the negotiated-congestion global routing worker.
//
// A Worker owns one grid.Graph, one regionquery.Index and the routing trees
// of its nets. Each iteration it selects nets, rips them up, re-runs the maze
// search for every unconnected terminal and writes the found paths back into
// the trees, updating demand as it goes. History cost accumulated on
// overflowing cells steers later searches away from them.
//
// # Modes
//
// In ModeCongestion only nets occupying over-threshold cells are re-routed,
// after the history of those cells is raised. In ModeDecay every net is
// re-routed, history is raised where a net still overflows right after its
// re-route, and all history decays by a fixed factor at the end of the round.
//
// # Failures
//
// A net whose terminal cannot be reached, or whose path cannot be written,
// is left partially routed and reported. It is retried on the next round.
// Failures never stop the remaining nets of a round.
//
// A Worker runs single-threaded. Parallelism comes from running several
// workers on disjoint grid windows, which is the pipeline's job.
package router

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridroute/pkg/errors"
	"github.com/matzehuels/gridroute/pkg/grid"
	"github.com/matzehuels/gridroute/pkg/maze"
	"github.com/matzehuels/gridroute/pkg/observability"
	"github.com/matzehuels/gridroute/pkg/regionquery"
	"github.com/matzehuels/gridroute/pkg/route"
)

// NetSpec is the input for one net: its name and terminals in grid indices.
// Terminal 0 becomes the root.
type NetSpec struct {
	Name      string
	Terminals []route.Terminal
}

// Worker routes a set of nets on a private grid.
type Worker struct {
	g      *grid.Graph
	rq     *regionquery.Index
	search *maze.Search
	nets   []*netState
	opts   Options
	tracer observability.RouterHooks
	logger *log.Logger
}

type netState struct {
	net    *route.Net
	routed bool // routed at least once
	failed bool // last routing attempt did not connect every terminal
}

// NewWorker prepares a worker for nets on g. Options are defaulted and
// validated; terminals must lie on g.
func NewWorker(g *grid.Graph, nets []NetSpec, opts Options) (*Worker, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	w := &Worker{
		g:      g,
		rq:     regionquery.ForGraph(g),
		search: maze.New(g, opts.Costs()),
		opts:   opts,
		tracer: opts.Tracer,
		logger: opts.Logger,
	}
	for i, spec := range nets {
		for _, t := range spec.Terminals {
			if !g.Contains(t.Loc) {
				return nil, errors.New(errors.ErrCodeInvalidDesign, "net %q: terminal %s is off the grid", spec.Name, t.Loc)
			}
		}
		n, err := route.New(spec.Name, spec.Terminals)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDesign, err, "net %q", spec.Name)
		}
		for ti, t := range spec.Terminals {
			w.rq.AddPinAccess(i, ti, t.Loc)
		}
		w.nets = append(w.nets, &netState{net: n})
	}
	return w, nil
}

// Graph returns the worker's grid.
func (w *Worker) Graph() *grid.Graph { return w.g }

// NumNets returns the number of nets.
func (w *Worker) NumNets() int { return len(w.nets) }

// Net returns the routing tree of net i.
func (w *Worker) Net(i int) *route.Net { return w.nets[i].net }

// =============================================================================
// Iteration controller
// =============================================================================

// Run executes the negotiation loop for the configured number of iterations
// and returns per-iteration statistics. It only returns an error when ctx is
// cancelled; routing failures are reported in the Report.
func (w *Worker) Run(ctx context.Context) (*Report, error) {
	report := &Report{Worker: w.opts.Name, Mode: w.opts.Mode}
	for it := 1; it <= w.opts.MaxIterations; it++ {
		if err := ctx.Err(); err != nil {
			report.finish(w)
			return report, err
		}
		stats := w.Iterate(ctx, it)
		report.Iterations = append(report.Iterations, stats)
		w.logger.Info("iteration complete",
			"worker", w.opts.Name,
			"iteration", it,
			"rerouted", stats.Rerouted,
			"failed", stats.Failed,
			"overflow", stats.TotalOverflow,
			"duration", stats.Duration)
		if w.opts.StopOnClean && stats.TotalOverflow == 0 && stats.Failed == 0 {
			break
		}
	}
	report.finish(w)
	return report, nil
}

// Iterate runs one round: select, rip up, re-route, and, in ModeDecay, decay
// history. Rounds with nothing selected leave the grid untouched.
func (w *Worker) Iterate(ctx context.Context, iteration int) IterationStats {
	start := time.Now()
	marked := w.selectNets()
	w.tracer.OnIterationStart(ctx, w.opts.Name, iteration, len(marked))

	stats := IterationStats{Iteration: iteration}
	for _, ni := range marked {
		ns := w.nets[ni]
		if ns.routed {
			w.ripUp(ctx, ni)
		}
		ns.routed = true
		ns.failed = !w.routeNet(ctx, ni)
		if ns.failed {
			stats.Failed++
		}
		if w.opts.Mode == ModeDecay {
			w.addNetHistory(ni)
		}
		stats.Rerouted++
	}
	if w.opts.Mode == ModeDecay {
		w.g.DecayAllHistory(w.opts.DecayFactor)
	}

	u := w.g.Utilization()
	stats.OverflowEdges = u.OverflowEdges
	stats.TotalOverflow = u.TotalOverflow
	for _, ns := range w.nets {
		stats.Wirelength += ns.net.Wirelength()
		stats.Vias += ns.net.ViaCount()
	}
	stats.Duration = time.Since(start)

	w.tracer.OnIterationComplete(ctx, w.opts.Name, observability.IterationSummary{
		Iteration:     iteration,
		Rerouted:      stats.Rerouted,
		Failed:        stats.Failed,
		OverflowEdges: stats.OverflowEdges,
		TotalOverflow: stats.TotalOverflow,
		Duration:      stats.Duration,
	})
	return stats
}

// ripUp reverses every committed edge of net ni, demand and index first,
// then prunes the tree back to its terminals.
func (w *Worker) ripUp(ctx context.Context, ni int) {
	n := w.nets[ni].net
	edges := n.Edges()
	for _, id := range edges {
		e := n.Edge(id)
		if wire, ok := e.Figure.(route.WireSegment); ok {
			w.g.ApplySegment(wire.Begin, wire.End, -1)
		}
		w.rq.RemoveEdge(ni, int(id))
	}
	n.RipUp()
	w.tracer.OnNetRippedUp(ctx, n.Name(), len(edges))
	w.logger.Debug("ripped up net", "net", n.Name(), "edges", len(edges))
}

// =============================================================================
// Per-net routing
// =============================================================================

// routeNet connects every pending terminal of net ni, nearest first. It
// reports false at the first terminal that cannot be connected.
func (w *Worker) routeNet(ctx context.Context, ni int) bool {
	n := w.nets[ni].net
	for {
		pending := n.Pending()
		if len(pending) == 0 {
			return true
		}
		cells := n.Cells()
		box := n.Bounds()
		t := w.pickTarget(n, pending, box, cells)
		target := n.Node(n.Terminal(t)).Loc

		path, ok := w.searchPath(cells, box.Extend(target), target)
		if !ok {
			w.tracer.OnSearchFailure(ctx, n.Name(), t)
			w.logger.Warn("search failure",
				"net", n.Name(),
				"terminal", t,
				"at", target,
				"code", errors.ErrCodeSearchFailure)
			return false
		}
		if err := w.writePath(ni, path); err != nil {
			w.logger.Warn("path not written",
				"net", n.Name(),
				"terminal", t,
				"code", errors.GetCode(err),
				"err", err)
			return false
		}
		wire, vias := path.Len()
		w.tracer.OnPathFound(ctx, n.Name(), t, wire, vias)
	}
}

// searchPath searches inside the margin window first and falls back to the
// whole grid.
func (w *Worker) searchPath(cells []grid.MazeIdx, box grid.Box, target grid.MazeIdx) (maze.Path, bool) {
	window := maze.Window(w.g, box, w.opts.SearchMargin)
	path, ok, err := w.search.Route(cells, target, window)
	if err == nil && !ok && window != w.g.Bounds() {
		path, ok, err = w.search.Route(cells, target, w.g.Bounds())
	}
	return path, ok && err == nil
}

// pickTarget returns the pending terminal nearest to the connected box,
// weighting planar and layer distance by wire and via cost. Ties go to the
// terminal closest to an actual tree cell, then to the lowest index.
func (w *Worker) pickTarget(n *route.Net, pending []int, box grid.Box, cells []grid.MazeIdx) int {
	best, bestScore, bestNear := -1, 0.0, 0
	for _, t := range pending {
		loc := n.Node(n.Terminal(t)).Loc
		planar, layers := box.Distance(loc)
		score := w.opts.WireCost*float64(planar) + w.opts.ViaCost*float64(layers)
		if best >= 0 && score > bestScore {
			continue
		}
		near := nearestCell(cells, loc)
		if best < 0 || score < bestScore || near < bestNear {
			best, bestScore, bestNear = t, score, near
		}
	}
	return best
}

func nearestCell(cells []grid.MazeIdx, m grid.MazeIdx) int {
	best := -1
	for _, c := range cells {
		dz := c.Z - m.Z
		if dz < 0 {
			dz = -dz
		}
		if d := c.Manhattan(m) + dz; best < 0 || d < best {
			best = d
		}
	}
	return best
}
