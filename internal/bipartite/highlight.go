package bipartite

// State is the render treatment of an item or edge under a highlight.
type State int

const (
	StateNormal State = iota
	StateHighlighted
	StateDimmed
)

// Highlight names one focused item. The zero value means no highlight.
type Highlight struct {
	Side Side
	ID   string
}

// None reports whether the highlight is unset.
func (h Highlight) None() bool {
	return h.ID == ""
}

// Adjacency answers neighborhood queries in O(1) after an O(edges) build.
// Build it once per graph, not per frame.
type Adjacency struct {
	leftTo  map[string]map[string]bool // flow -> services
	rightTo map[string]map[string]bool // service -> flows
}

// NewAdjacency indexes a graph's edges.
func NewAdjacency(g Graph) *Adjacency {
	a := &Adjacency{
		leftTo:  make(map[string]map[string]bool, len(g.Left)),
		rightTo: make(map[string]map[string]bool, len(g.Right)),
	}
	for _, e := range g.Edges {
		if a.leftTo[e.Source] == nil {
			a.leftTo[e.Source] = make(map[string]bool)
		}
		a.leftTo[e.Source][e.Target] = true
		if a.rightTo[e.Target] == nil {
			a.rightTo[e.Target] = make(map[string]bool)
		}
		a.rightTo[e.Target][e.Source] = true
	}
	return a
}

// Neighbors returns the opposite-column items connected to (side, id).
func (a *Adjacency) Neighbors(side Side, id string) map[string]bool {
	if side == SideLeft {
		return a.leftTo[id]
	}
	return a.rightTo[id]
}

// ItemState resolves the treatment of one item under a highlight: the
// focused item and its neighbors light up, everything else dims.
func (a *Adjacency) ItemState(h Highlight, side Side, id string) State {
	if h.None() {
		return StateNormal
	}
	if side == h.Side {
		if id == h.ID {
			return StateHighlighted
		}
		return StateDimmed
	}
	if a.Neighbors(h.Side, h.ID)[id] {
		return StateHighlighted
	}
	return StateDimmed
}

// EdgeState resolves an edge's treatment: only edges incident to the focused
// item stay lit.
func (a *Adjacency) EdgeState(h Highlight, e Edge) State {
	if h.None() {
		return StateNormal
	}
	if h.Side == SideLeft && e.Source == h.ID {
		return StateHighlighted
	}
	if h.Side == SideRight && e.Target == h.ID {
		return StateHighlighted
	}
	return StateDimmed
}
