// Package graphview renders the bipartite connection diagram as two aligned
// terminal columns with cursor-driven highlighting and a spring-smoothed
// scroll.
package graphview

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"ecoweave/internal/bipartite"
	"ecoweave/internal/protocol"
)

var (
	normalStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("221"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	gutterStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	detailStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1).
			MarginTop(1)
	detailTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114"))
	categoryStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
)

const gutterWidth = 5

// Model is the interactive diagram. The cursor is hover state: moving it
// re-resolves highlighting on every row. Selection is independent of the
// cursor and survives hover movement.
type Model struct {
	graph   bipartite.Graph
	adj     *bipartite.Adjacency
	details map[string]protocol.ServiceDetail

	side   bipartite.Side
	cursor int    // row index in the active column, -1 when it is empty
	sel    string // selected service name, "" when none

	width  int
	height int

	spring    harmonica.Spring
	scroll    float64
	scrollVel float64
	target    float64
}

// New returns an empty diagram model.
func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.8),
		cursor: -1,
		side:   bipartite.SideLeft,
	}
}

// SetSize updates the available render area.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetData swaps in a new graph, keeping the cursor on the same name when it
// survives the update and clearing a selection whose service disappeared.
func (m *Model) SetData(g bipartite.Graph, details map[string]protocol.ServiceDetail) {
	prev := m.CursorID()

	m.graph = g
	m.adj = bipartite.NewAdjacency(g)
	m.details = details

	col := m.column(m.side)
	m.cursor = -1
	for i, name := range col {
		if name == prev {
			m.cursor = i
			break
		}
	}
	if m.cursor < 0 && len(col) > 0 {
		m.cursor = 0
	}

	if m.sel != "" {
		found := false
		for _, s := range g.Right {
			if s == m.sel {
				found = true
				break
			}
		}
		if !found {
			m.sel = ""
		}
	}
	m.scrollToCursor()
}

func (m *Model) column(side bipartite.Side) []string {
	if side == bipartite.SideLeft {
		return m.graph.Left
	}
	return m.graph.Right
}

// CursorID returns the hovered item's name, or "".
func (m *Model) CursorID() string {
	col := m.column(m.side)
	if m.cursor < 0 || m.cursor >= len(col) {
		return ""
	}
	return col[m.cursor]
}

// Highlight exposes the hover as a highlight for rendering and export.
func (m *Model) Highlight() bipartite.Highlight {
	id := m.CursorID()
	if id == "" {
		return bipartite.Highlight{}
	}
	return bipartite.Highlight{Side: m.side, ID: id}
}

// Selected returns the selected service name, or "".
func (m *Model) Selected() string {
	return m.sel
}

// MoveCursor moves the hover within the active column.
func (m *Model) MoveCursor(delta int) {
	col := m.column(m.side)
	if len(col) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(col) {
		m.cursor = len(col) - 1
	}
	m.scrollToCursor()
}

// SwitchSide moves the hover to the other column. Hover on the old side is
// gone entirely; only one item is ever hovered.
func (m *Model) SwitchSide() {
	m.side = 1 - m.side
	col := m.column(m.side)
	if len(col) == 0 {
		m.cursor = -1
		return
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(col) {
		m.cursor = len(col) - 1
	}
	m.scrollToCursor()
}

// ToggleSelect selects the hovered service, or clears the selection when it
// is already selected. Hovering a flow cannot select.
func (m *Model) ToggleSelect() {
	if m.side != bipartite.SideRight {
		return
	}
	id := m.CursorID()
	if id == "" {
		return
	}
	if m.sel == id {
		m.sel = ""
	} else {
		m.sel = id
	}
}

func (m *Model) scrollToCursor() {
	if m.cursor < 0 || m.height <= 0 {
		return
	}
	rows := m.rowCount()
	visible := m.visibleRows()
	target := float64(m.cursor - visible/2)
	max := float64(rows - visible)
	if max < 0 {
		max = 0
	}
	if target < 0 {
		target = 0
	}
	if target > max {
		target = max
	}
	m.target = target
}

func (m *Model) rowCount() int {
	if len(m.graph.Left) > len(m.graph.Right) {
		return len(m.graph.Left)
	}
	return len(m.graph.Right)
}

func (m *Model) visibleRows() int {
	v := m.height - 1 // header line
	if m.sel != "" {
		v -= m.detailHeight()
	}
	if v < 1 {
		v = 1
	}
	return v
}

func (m *Model) detailHeight() int {
	return 6
}

// Tick advances the scroll spring one frame and reports whether the
// animation has settled.
func (m *Model) Tick() (settled bool) {
	m.scroll, m.scrollVel = m.spring.Update(m.scroll, m.scrollVel, m.target)
	if math.Abs(m.scroll-m.target) < 0.01 && math.Abs(m.scrollVel) < 0.01 {
		m.scroll = m.target
		m.scrollVel = 0
		return true
	}
	return false
}

// View renders the diagram.
func (m *Model) View() string {
	if m.graph.Empty() {
		return dimStyle.Render("no connections yet")
	}

	colWidth := (m.width - gutterWidth) / 2
	if colWidth < 12 {
		colWidth = 12
	}
	h := m.Highlight()

	var b strings.Builder
	b.WriteString(headerStyle.Render(pad("MATERIAL FLOWS", colWidth)))
	b.WriteString(strings.Repeat(" ", gutterWidth))
	b.WriteString(headerStyle.Render("ECOSYSTEM SERVICES"))
	b.WriteString("\n")

	offset := int(math.Round(m.scroll))
	visible := m.visibleRows()
	rows := m.rowCount()
	if offset > rows-visible {
		offset = rows - visible
	}
	if offset < 0 {
		offset = 0
	}

	end := offset + visible
	if end > rows {
		end = rows
	}
	for i := offset; i < end; i++ {
		b.WriteString(m.renderRow(i, colWidth, h))
		b.WriteString("\n")
	}

	if m.sel != "" {
		b.WriteString(m.renderDetail(colWidth*2 + gutterWidth))
	}
	return b.String()
}

func (m *Model) renderRow(i, colWidth int, h bipartite.Highlight) string {
	left := m.cell(bipartite.SideLeft, i, colWidth, h)
	right := m.cell(bipartite.SideRight, i, colWidth, h)

	gutter := strings.Repeat(" ", gutterWidth)
	if m.rowHasHighlightedEdge(i, h) {
		gutter = gutterStyle.Render(" ◄─► ")
	}
	return left + gutter + right
}

// rowHasHighlightedEdge marks gutter rows where either endpoint of a lit
// edge lives.
func (m *Model) rowHasHighlightedEdge(i int, h bipartite.Highlight) bool {
	if h.None() || m.adj == nil {
		return false
	}
	if h.Side == m.side && i == m.cursor {
		return true
	}
	other := 1 - h.Side
	otherCol := m.column(other)
	if i < len(otherCol) && m.adj.Neighbors(h.Side, h.ID)[otherCol[i]] {
		return true
	}
	return false
}

func (m *Model) cell(side bipartite.Side, i, colWidth int, h bipartite.Highlight) string {
	col := m.column(side)
	if i >= len(col) {
		return strings.Repeat(" ", colWidth)
	}
	name := col[i]

	marker := "  "
	if side == m.side && i == m.cursor {
		marker = cursorStyle.Render("▌ ")
	} else if side == bipartite.SideRight && name == m.sel {
		marker = cursorStyle.Render("◆ ")
	}

	label := pad(truncate(name, colWidth-2), colWidth-2)
	var style lipgloss.Style
	if m.adj == nil {
		style = normalStyle
	} else {
		switch m.adj.ItemState(h, side, name) {
		case bipartite.StateHighlighted:
			style = highlightStyle
		case bipartite.StateDimmed:
			style = dimStyle
		default:
			style = normalStyle
		}
	}
	return marker + style.Render(label)
}

func (m *Model) renderDetail(width int) string {
	d, ok := m.details[m.sel]
	if !ok {
		d = protocol.ServiceDetail{Name: m.sel}
	}

	var b strings.Builder
	b.WriteString(detailTitleStyle.Render(d.Name))
	if d.Category != "" {
		b.WriteString("  " + categoryStyle.Render(d.Category))
	}
	if d.Description != "" {
		b.WriteString("\n" + wrap(d.Description, width-4))
	}
	for _, sc := range d.SupplementaryConnections {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("• %s: %s", sc.BMFName, sc.Text)))
	}
	return detailStyle.Width(width - 2).Render(b.String())
}

func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	var lines []string
	var line string
	for _, w := range words {
		if line == "" {
			line = w
		} else if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
