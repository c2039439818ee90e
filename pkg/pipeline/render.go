package pipeline

import (
	"bytes"
	"context"
	"fmt"

	pkgio "github.com/matzehuels/gridroute/pkg/io"
	"github.com/matzehuels/gridroute/pkg/render"
	"github.com/matzehuels/gridroute/pkg/result"
)

// Render generates output artifacts in the requested formats. The DOT
// source is built once and shared by the dot and svg outputs.
func Render(ctx context.Context, res *result.Result, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	var dot string
	toDOT := func() string {
		if dot == "" {
			dot = render.ToDOT(res, render.Options{Nets: opts.Nets, Detailed: opts.Detailed})
		}
		return dot
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatDOT:
			data = []byte(toDOT())
		case FormatSVG:
			data, err = render.RenderSVG(ctx, toDOT())
		case FormatPNG:
			data, err = render.ConvergencePlot(res.Design, res.Iterations())
		case FormatJSON:
			var buf bytes.Buffer
			err = pkgio.WriteResult(res, &buf)
			data = buf.Bytes()
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}
