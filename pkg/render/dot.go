package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/gridroute/pkg/result"
)

// Options configures tree rendering.
type Options struct {
	// Nets limits the drawing to the named nets. Empty draws every net.
	Nets []string

	// Detailed adds physical coordinates to node labels.
	Detailed bool
}

func (o Options) wants(name string) bool {
	return len(o.Nets) == 0 || slices.Contains(o.Nets, name)
}

// ToDOT converts the routing trees of res to Graphviz DOT. Layers are
// resolved to names through res.Layers when available.
func ToDOT(res *result.Result, opts Options) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", res.Design)
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [fontsize=12, fontname=\"Helvetica\"];\n")
	buf.WriteString("  edge [fontsize=10, fontname=\"Helvetica\"];\n")

	for ni, n := range res.Nets {
		if !opts.wants(n.Name) {
			continue
		}
		fmt.Fprintf(&buf, "\n  subgraph cluster_%d {\n", ni)
		label := n.Name
		if !n.Complete {
			label += " (incomplete)"
		}
		fmt.Fprintf(&buf, "    label=%q;\n", label)
		buf.WriteString("    style=rounded;\n")

		for _, node := range n.Nodes {
			attrs := nodeAttrs(node, layerName(res.Layers, node.Layer), opts.Detailed)
			if node.ID == n.Root {
				attrs = append(attrs, "penwidth=2")
			}
			fmt.Fprintf(&buf, "    %s [%s];\n", nodeID(ni, node.ID), strings.Join(attrs, ", "))
		}
		for _, e := range n.Edges {
			fmt.Fprintf(&buf, "    %s -> %s [%s];\n", nodeID(ni, e.From), nodeID(ni, e.To), strings.Join(edgeAttrs(e), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(net, node int) string { return fmt.Sprintf("n%d_%d", net, node) }

func layerName(layers []string, z int) string {
	if z >= 0 && z < len(layers) {
		return layers[z]
	}
	return "L" + strconv.Itoa(z)
}

func nodeAttrs(n result.Node, layer string, detailed bool) []string {
	label := fmt.Sprintf("(%d,%d) %s", n.GX, n.GY, layer)
	if detailed {
		label += fmt.Sprintf("\n@%d,%d", n.X, n.Y)
	}
	switch n.Kind {
	case "pin":
		return []string{fmt.Sprintf("label=%q", label), "shape=box", "style=\"rounded,filled\"", "fillcolor=white"}
	case "boundary":
		return []string{fmt.Sprintf("label=%q", label), "shape=diamond", "style=filled", "fillcolor=lightyellow"}
	default:
		return []string{fmt.Sprintf("xlabel=%q", label), "label=\"\"", "shape=circle", "width=0.15", "style=filled", "fillcolor=grey"}
	}
}

func edgeAttrs(e result.Edge) []string {
	if e.Kind == result.KindVia {
		return []string{fmt.Sprintf("label=%q", e.Cut), "style=dashed", "arrowhead=none"}
	}
	return []string{fmt.Sprintf("label=\"%d\"", e.Length), "arrowhead=none"}
}

// RenderSVG lays out DOT source with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
