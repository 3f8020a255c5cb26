package bipartite

import (
	"fmt"
	"strings"
)

// SVGOptions controls the exported drawing.
type SVGOptions struct {
	RowHeight   int
	ColumnWidth int // label column width in px
	GutterWidth int // connector span between the columns
	Highlight   Highlight
}

// DefaultSVGOptions mirrors the TUI's default geometry.
func DefaultSVGOptions() SVGOptions {
	return SVGOptions{
		RowHeight:   36,
		ColumnWidth: 260,
		GutterWidth: 240,
	}
}

const (
	svgColorNormal = "#4a7c59"
	svgColorFocus  = "#d4a03c"
	svgColorDim    = "#2e3330"
	svgColorText   = "#e8e6e3"
	svgColorBG     = "#14181a"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// ExportSVG renders the graph as a standalone SVG document. Output is
// deterministic for a fixed graph and options, so exports diff cleanly.
func ExportSVG(g Graph, opts SVGOptions) string {
	layout := Layout{
		RowHeight: float64(opts.RowHeight),
		LeftX:     float64(opts.ColumnWidth),
		RightX:    float64(opts.ColumnWidth + opts.GutterWidth),
	}
	adj := NewAdjacency(g)

	width := 2*opts.ColumnWidth + opts.GutterWidth
	height := int(layout.Height(len(g.Left), len(g.Right)))
	if height == 0 {
		height = opts.RowHeight
	}

	leftRow := make(map[string]int, len(g.Left))
	for i, name := range g.Left {
		leftRow[name] = i
	}
	rightRow := make(map[string]int, len(g.Right))
	for i, name := range g.Right {
		rightRow[name] = i
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&b, `  <rect width="%d" height="%d" fill="%s"/>`+"\n", width, height, svgColorBG)

	// edges first so labels draw on top
	for _, e := range g.Edges {
		c := layout.ConnectorFor(leftRow[e.Source], rightRow[e.Target])
		stroke, opacity := svgColorNormal, "0.8"
		switch adj.EdgeState(opts.Highlight, e) {
		case StateHighlighted:
			stroke, opacity = svgColorFocus, "1.0"
		case StateDimmed:
			stroke, opacity = svgColorDim, "0.4"
		}
		fmt.Fprintf(&b, `  <path d="%s" fill="none" stroke="%s" stroke-width="1.5" opacity="%s"/>`+"\n",
			c.Path(), stroke, opacity)
	}

	writeColumn(&b, g.Left, SideLeft, layout, adj, opts, "end", float64(opts.ColumnWidth)-8)
	writeColumn(&b, g.Right, SideRight, layout, adj, opts, "start", float64(opts.ColumnWidth+opts.GutterWidth)+8)

	b.WriteString("</svg>\n")
	return b.String()
}

func writeColumn(b *strings.Builder, items []string, side Side, layout Layout, adj *Adjacency, opts SVGOptions, anchor string, x float64) {
	for i, name := range items {
		fill, opacity, weight := svgColorText, "1.0", "normal"
		switch adj.ItemState(opts.Highlight, side, name) {
		case StateHighlighted:
			fill, weight = svgColorFocus, "bold"
		case StateDimmed:
			opacity = "0.35"
		}
		fmt.Fprintf(b, `  <text x="%.1f" y="%.1f" text-anchor="%s" dominant-baseline="middle" font-family="monospace" font-size="13" font-weight="%s" fill="%s" opacity="%s">%s</text>`+"\n",
			x, layout.RowCenter(i), anchor, weight, fill, opacity, xmlEscaper.Replace(name))
	}
}
