// Package render draws workflow documents as Graphviz diagrams for previews.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/flowedit/pkg/graph"
	"github.com/goccy/go-graphviz"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed adds the node type and the remaining data fields to each label.
	Detailed bool

	// LeftToRight lays the graph out horizontally, the way the canvas shows it.
	LeftToRight bool
}

var fillColors = map[graph.NodeType]string{
	graph.NodeTypeStart:     "#d1fae5",
	graph.NodeTypeAgent:     "#dbeafe",
	graph.NodeTypeCondition: "#fef3c7",
	graph.NodeTypeLLM:       "#ede9fe",
	graph.NodeTypeLoop:      "#fce7f3",
	graph.NodeTypeTool:      "#e0f2fe",
	graph.NodeTypeDocument:  "#f3f4f6",
	graph.NodeTypeMemory:    "#fae8ff",
	graph.NodeTypeAPI:       "#ffedd5",
}

// ToDOT converts a document to Graphviz DOT. Edges whose endpoints are missing from
// the document are left out.
func ToDOT(doc graph.Document, opts Options) string {
	rankdir := "TB"
	if opts.LeftToRight {
		rankdir = "LR"
	}

	var buf bytes.Buffer

	buf.WriteString("digraph workflow {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	known := make(map[string]bool, len(doc.Nodes))

	for _, n := range doc.Nodes {
		known[n.ID] = true

		attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed))}
		if color, ok := fillColors[n.Type]; ok {
			attrs = append(attrs, fmt.Sprintf("fillcolor=%q", color))
		}

		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")

	for _, e := range doc.Edges {
		if !known[e.Source] || !known[e.Target] {
			continue
		}

		fmt.Fprintf(&buf, "  %q -> %q;\n", e.Source, e.Target)
	}

	buf.WriteString("}\n")

	return buf.String()
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := n.Label()
	if label == "" {
		label = n.ID
	}

	if !detailed {
		return label
	}

	parts := []string{"type: " + string(n.Type)}

	for _, k := range slices.Sorted(maps.Keys(n.Data)) {
		if k == graph.DataLabel || k == graph.DataType {
			continue
		}

		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data[k]))
	}

	return label + "\n" + strings.Join(parts, "\n")
}

// RenderSVG renders a DOT graph to SVG.
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

// Preview renders doc straight to SVG.
func Preview(ctx context.Context, doc graph.Document, opts Options) ([]byte, error) {
	return RenderSVG(ctx, ToDOT(doc, opts))
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

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

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
