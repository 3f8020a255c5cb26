package bipartite

import (
	"strings"
	"testing"
)

func TestExportSVG(t *testing.T) {
	g := testGraph()
	out := ExportSVG(g, DefaultSVGOptions())

	if !strings.HasPrefix(out, "<svg ") || !strings.HasSuffix(out, "</svg>\n") {
		t.Fatalf("not a complete svg document:\n%s", out)
	}
	for _, label := range []string{"Roof runoff", "Timber offcuts", "Soil formation", "Water regulation"} {
		if !strings.Contains(out, ">"+label+"</text>") {
			t.Errorf("missing label %q", label)
		}
	}
	if got := strings.Count(out, "<path "); got != len(g.Edges) {
		t.Errorf("rendered %d paths, want %d", got, len(g.Edges))
	}
}

func TestExportSVGDeterministic(t *testing.T) {
	g := testGraph()
	opts := DefaultSVGOptions()
	first := ExportSVG(g, opts)
	for i := 0; i < 5; i++ {
		if ExportSVG(g, opts) != first {
			t.Fatal("svg output not deterministic")
		}
	}
}

func TestExportSVGHighlight(t *testing.T) {
	opts := DefaultSVGOptions()
	opts.Highlight = Highlight{Side: SideLeft, ID: "Roof runoff"}
	out := ExportSVG(testGraph(), opts)

	if !strings.Contains(out, svgColorFocus) {
		t.Error("highlight color not used")
	}
	if !strings.Contains(out, `opacity="0.35"`) {
		t.Error("no dimmed items rendered")
	}
}

func TestExportSVGEscapesLabels(t *testing.T) {
	g := Graph{
		Left:  []string{`Mixed <organic> & "other" waste`},
		Right: []string{"Soil formation"},
		Edges: []Edge{{Source: `Mixed <organic> & "other" waste`, Target: "Soil formation"}},
	}
	out := ExportSVG(g, DefaultSVGOptions())

	if strings.Contains(out, "<organic>") {
		t.Error("unescaped markup in output")
	}
	if !strings.Contains(out, "Mixed &lt;organic&gt; &amp; &quot;other&quot; waste") {
		t.Errorf("escaped label missing:\n%s", out)
	}
}

func TestExportSVGEmptyGraph(t *testing.T) {
	out := ExportSVG(Graph{}, DefaultSVGOptions())
	if !strings.HasPrefix(out, "<svg ") {
		t.Fatal("empty graph should still produce a document")
	}
	if strings.Contains(out, "<text") || strings.Contains(out, "<path") {
		t.Error("empty graph rendered content")
	}
}
