package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/gridroute/pkg/errors"
	pkgio "github.com/matzehuels/gridroute/pkg/io"
	"github.com/matzehuels/gridroute/pkg/pipeline"
	"github.com/matzehuels/gridroute/pkg/result"
	"github.com/matzehuels/gridroute/pkg/router"
)

// routeOpts holds the command-line flags for the route command.
type routeOpts struct {
	output     string // result path; defaults to <design>.route.json
	partitions string // "NxM"
	svg        bool   // also write the routing trees as SVG
	plot       bool   // also write the convergence plot as PNG
	cache      string // cache backend spec
	refresh    bool   // ignore cached results
	opts       pipeline.Options
}

// routeCommand creates the route command.
func (c *CLI) routeCommand() *cobra.Command {
	var o routeOpts

	cmd := &cobra.Command{
		Use:   "route [design]",
		Short: "Route a design file (TOML, YAML or JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			px, py, err := parsePartitions(o.partitions)
			if err != nil {
				return err
			}
			o.opts.PartitionsX, o.opts.PartitionsY = px, py
			o.opts.Refresh = o.refresh
			return c.runRoute(cmd.Context(), printer{cmd.OutOrStdout()}, args[0], &o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "result file (default <design>.route.json)")
	f.StringVar((*string)(&o.opts.Mode), "mode", string(router.DefaultMode), "rip-up mode: congestion, decay")
	f.IntVarP(&o.opts.MaxIterations, "iterations", "n", router.DefaultMaxIterations, "negotiation rounds")
	f.Float64Var(&o.opts.Threshold, "threshold", pipeline.DefaultThreshold, "demand/supply ratio counted as congested")
	f.Float64Var(&o.opts.ViaCost, "via-cost", router.DefaultViaCost, "cost of one via")
	f.Float64Var(&o.opts.CongestionCost, "congestion-cost", router.DefaultCongestionCost, "penalty for stepping onto a full edge")
	f.Float64Var(&o.opts.DecayFactor, "decay", router.DefaultDecayFactor, "history decay factor (decay mode)")
	f.IntVar(&o.opts.SearchMargin, "margin", router.DefaultSearchMargin, "search window margin in gcells")
	f.BoolVar(&o.opts.StopOnClean, "stop-on-clean", false, "stop once a round leaves no overflow")
	f.StringVarP(&o.partitions, "partitions", "p", "1x1", "partition grid, e.g. 2x2")
	f.IntVar(&o.opts.Concurrency, "concurrency", pipeline.DefaultConcurrency, "partition workers running at once")
	f.BoolVar(&o.svg, "svg", false, "also render the routing trees as SVG")
	f.BoolVar(&o.plot, "plot", false, "also render the convergence plot as PNG")
	f.StringVar(&o.cache, "cache", "file", "cache backend: file, none, redis://..., mongodb://...")
	f.BoolVar(&o.refresh, "refresh", false, "ignore cached results")

	return cmd
}

func (c *CLI) runRoute(ctx context.Context, p printer, input string, o *routeOpts) error {
	if err := errors.ValidateDesignPath(input); err != nil {
		return err
	}
	d, err := pkgio.ImportDesign(input)
	if err != nil {
		return err
	}
	c.Logger.Info("loaded design", "design", d.Name, "nets", len(d.Nets), "layers", len(d.Layers))

	runner, err := c.newRunner(ctx, o.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	o.opts.Tracer = logTracer{logger: c.Logger}
	prog := newProgress(c.Logger)
	res, cached, err := runner.RouteWithCacheInfo(ctx, d, o.opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Routed %d nets", len(res.Nets)))

	base := basePath(o.output, input)
	out := o.output
	if out == "" {
		out = base + ".route.json"
	}
	if err := pkgio.ExportResult(res, out); err != nil {
		return err
	}

	p.success("Routed %s", d.Name)
	p.stats(res, cached)
	p.file(out)

	if err := c.writeArtifacts(ctx, p, runner, res, base, o); err != nil {
		return err
	}

	if !res.OK() {
		p.warning("%d nets left unrouted: %s", len(res.Failed), strings.Join(res.Failed, ", "))
		return errors.New(errors.ErrCodeSearchFailure, "%d of %d nets could not be routed", len(res.Failed), len(res.Nets))
	}
	return nil
}

func (c *CLI) writeArtifacts(ctx context.Context, p printer, runner *pipeline.Runner, res *result.Result, base string, o *routeOpts) error {
	var formats []string
	if o.svg {
		formats = append(formats, pipeline.FormatSVG)
	}
	if o.plot {
		formats = append(formats, pipeline.FormatPNG)
	}
	if len(formats) == 0 {
		return nil
	}
	artifacts, err := runner.Render(ctx, res, pipeline.Options{Formats: formats})
	if err != nil {
		return err
	}
	for _, format := range formats {
		path := base + "." + format
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		p.file(path)
	}
	return nil
}
