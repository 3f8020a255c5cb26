// Package analysis aggregates the staged event stream into a single snapshot
// and drives the backend's invoke endpoints.
package analysis

import (
	"sort"

	"ecoweave/internal/bipartite"
	"ecoweave/internal/protocol"
)

// Stage is the coarse position of a run in its lifecycle.
type Stage int

const (
	StageIdle     Stage = iota
	StageExtract        // stage 1: material extraction
	StageMatch          // stage 2: flow matching
	StageLink           // stage 3: ecosystem linkage
	StageComplete       // terminal success
	StageError          // terminal failure, absorbing
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageExtract:
		return "extracting"
	case StageMatch:
		return "matching"
	case StageLink:
		return "linking"
	case StageComplete:
		return "complete"
	case StageError:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further events can change the snapshot.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// Snapshot is the accumulated view of one analysis run. Reduce treats it as
// immutable: every transition returns a fresh value and never mutates slices
// or maps reachable from the input.
type Snapshot struct {
	Stage     Stage
	Message   string
	ElapsedMS float64

	ExtractedMaterials []string

	TotalChunks int
	DoneChunks  int
	Flows       []protocol.MatchedFlow
	chunksSeen  map[int]bool // chunk numbers already counted in DoneChunks

	Connections    []protocol.Connection
	Services       []string
	ServiceDetails map[string]protocol.ServiceDetail

	Result *protocol.Result
	Err    string
}

// Reduce applies one stream event to a snapshot and returns the successor.
// Once the snapshot reaches StageError every later event is ignored, and
// unknown event types never alter state. Stage 2 chunks merge first-wins by
// flow name, so duplicate and reordered chunk deliveries converge to the same
// snapshot.
func Reduce(s Snapshot, ev protocol.Event) Snapshot {
	if s.Stage == StageError {
		return s
	}

	switch ev.Type {
	case protocol.EventStage1Start:
		s.Stage = StageExtract

	case protocol.EventStage1Complete:
		s.Stage = StageExtract
		if ev.Stage1Complete != nil {
			s.ExtractedMaterials = cloneStrings(ev.Stage1Complete.ExtractedMaterials)
		}

	case protocol.EventStage2Start:
		s.Stage = StageMatch
		if ev.Stage2Start != nil {
			s.TotalChunks = ev.Stage2Start.TotalChunks
		}
		s.DoneChunks = 0
		s.chunksSeen = nil

	case protocol.EventStage2Chunk:
		s.Stage = StageMatch
		if p := ev.Stage2Chunk; p != nil {
			// a redelivered chunk must not inflate the progress count
			if !s.chunksSeen[p.CurrentChunk] {
				seen := make(map[int]bool, len(s.chunksSeen)+1)
				for k := range s.chunksSeen {
					seen[k] = true
				}
				seen[p.CurrentChunk] = true
				s.chunksSeen = seen
				s.DoneChunks++
			}
			s.Flows = mergeFlows(s.Flows, p.MatchedBMFs)
		}

	case protocol.EventStage3Start:
		s.Stage = StageLink

	case protocol.EventStage3Complete:
		s.Stage = StageLink
		if p := ev.Stage3Complete; p != nil {
			s.Connections = cloneConnections(p.EcosystemConnections)
			s.Services = cloneStrings(p.EcosystemServices)
			s.ServiceDetails = cloneDetails(p.EcosystemServiceDetails)
		}

	case protocol.EventComplete:
		s.Stage = StageComplete

	case protocol.EventResult:
		// the result document is authoritative and replaces every
		// partial field accumulated so far
		if r := ev.Result; r != nil {
			s.Stage = StageComplete
			s.ExtractedMaterials = cloneStrings(r.ExtractedMaterials)
			s.Flows = cloneFlows(r.MatchedBMFs)
			s.Connections = cloneConnections(r.EcosystemConnections)
			s.Services = cloneStrings(r.EcosystemServices)
			s.ServiceDetails = cloneDetails(r.EcosystemServiceDetails)
			s.Result = r
		}

	case protocol.EventError:
		s.Stage = StageError
		if ev.Error != nil && ev.Error.Error != "" {
			s.Err = ev.Error.Error
		} else if ev.Message != "" {
			s.Err = ev.Message
		} else {
			s.Err = "analysis failed"
		}

	default:
		return s
	}

	if ev.Message != "" {
		s.Message = ev.Message
	}
	if ev.ElapsedMS > 0 {
		s.ElapsedMS = ev.ElapsedMS
	}
	return s
}

// UnmatchedMaterials returns extracted materials no matched flow accounts
// for. The authoritative result list wins when present; otherwise the set is
// derived as extracted minus the union of the flows' matched materials.
func (s Snapshot) UnmatchedMaterials() []string {
	if s.Result != nil && s.Result.UnmatchedMaterials != nil {
		return cloneStrings(s.Result.UnmatchedMaterials)
	}

	matched := make(map[string]bool)
	for _, f := range s.Flows {
		for _, m := range f.MatchedMaterials {
			matched[m] = true
		}
	}

	var out []string
	for _, m := range s.ExtractedMaterials {
		if !matched[m] {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}

// BuildGraph derives the connection diagram from a snapshot's current data.
func BuildGraph(s Snapshot) bipartite.Graph {
	return bipartite.Build(s.Flows, s.Connections, s.Services)
}

// mergeFlows appends incoming flows whose names are not already present.
// The first occurrence of a name wins, which makes chunk application
// insensitive to duplicate delivery and ordering.
func mergeFlows(existing, incoming []protocol.MatchedFlow) []protocol.MatchedFlow {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f.Name] = true
	}

	out := make([]protocol.MatchedFlow, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for _, f := range incoming {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneFlows(in []protocol.MatchedFlow) []protocol.MatchedFlow {
	if in == nil {
		return nil
	}
	out := make([]protocol.MatchedFlow, len(in))
	copy(out, in)
	return out
}

func cloneConnections(in []protocol.Connection) []protocol.Connection {
	if in == nil {
		return nil
	}
	out := make([]protocol.Connection, len(in))
	copy(out, in)
	return out
}

func cloneDetails(in map[string]protocol.ServiceDetail) map[string]protocol.ServiceDetail {
	if in == nil {
		return nil
	}
	out := make(map[string]protocol.ServiceDetail, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
