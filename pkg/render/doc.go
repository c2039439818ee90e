// Package render draws routing results.
//
// # Routing trees
//
// [ToDOT] turns a [result.Result] into Graphviz DOT source with one cluster
// per net. Pin terminals are boxes, boundary pins diamonds and steiner
// points small circles; wires are solid edges labelled with their length
// and vias are dashed edges labelled with their cut layer. [RenderSVG] lays
// the DOT out in-process:
//
//	dot := render.ToDOT(res, render.Options{Nets: []string{"clk"}})
//	svg, err := render.RenderSVG(dot)
//
// # Convergence
//
// [ConvergencePlot] charts total overflow and re-routed nets per iteration
// as a PNG, the quickest way to see whether negotiation is settling.
//
// # Dependencies
//
// DOT layout uses [github.com/goccy/go-graphviz]; plots use
// [gonum.org/v1/plot].
//
// [result.Result]: github.com/matzehuels/gridroute/pkg/result.Result
package render
