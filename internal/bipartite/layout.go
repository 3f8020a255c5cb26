package bipartite

import "fmt"

// Layout computes fixed row geometry for the diagram. Every row occupies a
// uniform slot so item positions are stable as data streams in.
type Layout struct {
	RowHeight float64
	LeftX     float64 // right edge of the left column, where connectors start
	RightX    float64 // left edge of the right column, where connectors end
}

// RowCenter returns the vertical anchor of row i, the middle of its slot.
func (l Layout) RowCenter(i int) float64 {
	return float64(i)*l.RowHeight + l.RowHeight/2
}

// Height returns the total height needed for n rows on the taller column.
func (l Layout) Height(leftRows, rightRows int) float64 {
	n := leftRows
	if rightRows > n {
		n = rightRows
	}
	return float64(n) * l.RowHeight
}

// Connector is a cubic bezier joining a left anchor to a right anchor with
// horizontal tangents at both ends. The control points sit at 40% and 60%
// of the horizontal span, pinned to the endpoint heights, which gives the
// curve its S shape without overshoot.
type Connector struct {
	X1, Y1 float64
	C1X    float64
	C2X    float64
	X2, Y2 float64
}

// ConnectorFor builds the curve between left row i and right row j.
func (l Layout) ConnectorFor(i, j int) Connector {
	x1, x2 := l.LeftX, l.RightX
	return Connector{
		X1: x1, Y1: l.RowCenter(i),
		C1X: x1 + 0.4*(x2-x1),
		C2X: x1 + 0.6*(x2-x1),
		X2: x2, Y2: l.RowCenter(j),
	}
}

// Path renders the curve as an SVG path command.
func (c Connector) Path() string {
	return fmt.Sprintf("M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f",
		c.X1, c.Y1, c.C1X, c.Y1, c.C2X, c.Y2, c.X2, c.Y2)
}
