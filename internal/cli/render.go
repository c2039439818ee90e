package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pkgio "github.com/matzehuels/gridroute/pkg/io"
	"github.com/matzehuels/gridroute/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string   // output file (single format) or base path (multiple)
	formats  []string // dot, svg, png, json
	nets     []string // restrict the drawing to these nets
	detailed bool     // add physical coordinates to node labels
	cache    string   // cache backend spec
}

// renderCommand creates the render command for drawing a routing result.
func (c *CLI) renderCommand() *cobra.Command {
	var formatsStr string
	var o renderOpts

	cmd := &cobra.Command{
		Use:   "render [result]",
		Short: "Render a routing result as DOT, SVG or a convergence plot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o.formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(o.formats); err != nil {
				return err
			}
			return c.runRender(cmd.Context(), printer{cmd.OutOrStdout()}, args[0], &o)
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s): svg (default), dot, png, json (comma-separated)")
	cmd.Flags().StringSliceVar(&o.nets, "nets", nil, "only draw these nets (comma-separated)")
	cmd.Flags().BoolVar(&o.detailed, "detailed", false, "show physical coordinates on nodes")
	cmd.Flags().StringVar(&o.cache, "cache", "file", "cache backend: file, none, redis://..., mongodb://...")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, p printer, input string, o *renderOpts) error {
	res, err := pkgio.ImportResult(input)
	if err != nil {
		return err
	}
	for _, name := range o.nets {
		if _, ok := res.Net(name); !ok {
			p.warning("net %q is not in %s", name, input)
		}
	}

	runner, err := c.newRunner(ctx, o.cache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	artifacts, cached, err := runner.RenderWithCacheInfo(ctx, res, pipeline.Options{
		Formats:  o.formats,
		Nets:     o.nets,
		Detailed: o.detailed,
	})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %d artifacts", len(artifacts)))

	p.success("Rendered %s", res.Design)
	if cached {
		p.detail("from cache")
	}
	base := basePath(o.output, input)
	for _, format := range o.formats {
		path := base + "." + format
		if len(o.formats) == 1 && o.output != "" {
			path = o.output
		}
		if path == input {
			path = base + ".rendered." + format
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		p.file(path)
	}
	return nil
}
