// Package bipartite builds and renders the flow-to-service connection
// diagram: material flows on the left, ecosystem services on the right,
// edges between them. Everything here is pure; the same inputs always
// produce the same graph.
package bipartite

import (
	"sort"

	"ecoweave/internal/protocol"
)

// Side distinguishes the two columns.
type Side int

const (
	SideLeft  Side = iota // material flows
	SideRight             // ecosystem services
)

// Edge joins a left item to a right item by name.
type Edge struct {
	Source string // flow name
	Target string // service name
}

// Graph is the renderable bipartite view. Left and Right are sorted
// lexicographically; Edges keep the first occurrence of each
// (source, target) pair in input order.
type Graph struct {
	Left  []string
	Right []string
	Edges []Edge
}

// Build derives the diagram from accumulated run data. A flow appears on the
// left only if it is named by at least one connection and its flow type can
// emit (outflow or both); inflow-only flows have nothing to contribute to a
// service and would render as orphan rows. Connections naming a flow or
// service absent from the columns are dropped rather than invented.
func Build(flows []protocol.MatchedFlow, conns []protocol.Connection, services []string) Graph {
	emitting := make(map[string]bool, len(flows))
	for _, f := range flows {
		if f.FlowType.Emitting() {
			emitting[f.Name] = true
		}
	}

	connected := make(map[string]bool)
	for _, c := range conns {
		if emitting[c.BMFName] {
			connected[c.BMFName] = true
		}
	}

	left := make([]string, 0, len(connected))
	for name := range connected {
		left = append(left, name)
	}
	sort.Strings(left)

	right := make([]string, len(services))
	copy(right, services)
	sort.Strings(right)

	inRight := make(map[string]bool, len(right))
	for _, s := range right {
		inRight[s] = true
	}

	var edges []Edge
	seen := make(map[Edge]bool)
	for _, c := range conns {
		e := Edge{Source: c.BMFName, Target: c.EcosystemService}
		if !connected[e.Source] || !inRight[e.Target] || seen[e] {
			continue
		}
		seen[e] = true
		edges = append(edges, e)
	}

	return Graph{Left: left, Right: right, Edges: edges}
}

// Empty reports whether there is nothing to draw.
func (g Graph) Empty() bool {
	return len(g.Left) == 0 && len(g.Right) == 0
}
