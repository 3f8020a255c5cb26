// Package protocol decodes the analysis service's line-framed event stream.
//
// Each logical event arrives as one "data: "-prefixed line carrying a JSON
// object with an event_type discriminator. Events are decoded into a tagged
// union: the envelope fields are always present, and exactly one payload
// pointer is set for event types that carry data.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType discriminates stream events.
type EventType string

const (
	EventStage1Start    EventType = "stage1_start"
	EventStage1Complete EventType = "stage1_complete"
	EventStage2Start    EventType = "stage2_start"
	EventStage2Chunk    EventType = "stage2_chunk_complete"
	EventStage3Start    EventType = "stage3_start"
	EventStage3Complete EventType = "stage3_complete"
	EventComplete       EventType = "complete"
	EventResult         EventType = "result"
	EventError          EventType = "error"
)

// FlowType is the direction of a catalogued material flow.
type FlowType string

const (
	FlowInflow  FlowType = "inflow"
	FlowOutflow FlowType = "outflow"
	FlowBoth    FlowType = "both"
	FlowUnknown FlowType = "unknown"
)

// Emitting reports whether the flow can produce a downstream effect.
// Only emitting flows participate in the connection diagram's left column.
func (f FlowType) Emitting() bool {
	return f == FlowOutflow || f == FlowBoth
}

// MatchedFlow is a catalogued material-flow record (BMF) matched against the
// extracted materials. Name is the unique key within a run.
type MatchedFlow struct {
	Name             string   `json:"name"`
	FlowType         FlowType `json:"flow_type"`
	Confidence       string   `json:"confidence"` // high, medium, low
	MatchedMaterials []string `json:"matched_materials"`
	Reason           string   `json:"reason"`
}

// Connection is a many-to-many edge between a flow and an ecosystem service.
type Connection struct {
	BMFName          string `json:"bmf_name"`
	EcosystemService string `json:"ecosystem_service"`
	RelationshipType string `json:"relationship_type"`
}

// SupplementaryConnection is free-text context attached to a service detail.
type SupplementaryConnection struct {
	BMFName          string `json:"bmf_name"`
	EcosystemService string `json:"ecosystem_service"`
	Text             string `json:"text"`
	Direction        string `json:"direction,omitempty"`
}

// ServiceDetail describes one ecosystem service, keyed by name.
type ServiceDetail struct {
	Name                     string                    `json:"name"`
	Description              string                    `json:"description"`
	Category                 string                    `json:"category"`
	SupplementaryConnections []SupplementaryConnection `json:"supplementary_connections"`
}

// Stage1CompletePayload replaces the extracted-materials list wholesale.
type Stage1CompletePayload struct {
	ExtractedMaterials []string `json:"extracted_materials"`
}

// Stage2StartPayload announces how many matching chunks will arrive.
type Stage2StartPayload struct {
	TotalChunks int `json:"total_chunks"`
}

// Stage2ChunkPayload carries one matching chunk's flows. Chunks complete in
// arbitrary order across parallel backend workers and may repeat names.
type Stage2ChunkPayload struct {
	CurrentChunk int           `json:"current_chunk"`
	MatchedBMFs  []MatchedFlow `json:"matched_bmfs"`
}

// Stage3CompletePayload replaces all ecosystem-linkage data wholesale.
type Stage3CompletePayload struct {
	EcosystemConnections    []Connection             `json:"ecosystem_connections"`
	EcosystemServices       []string                 `json:"ecosystem_services"`
	EcosystemServiceDetails map[string]ServiceDetail `json:"ecosystem_service_details"`
}

// Result is the authoritative final document. It supersedes every partial
// field accumulated during the staged stream, and is also the body of the
// synchronous invoke response.
type Result struct {
	ExtractedMaterials      []string                 `json:"extracted_materials"`
	MatchedBMFs             []MatchedFlow            `json:"matched_bmfs"`
	UnmatchedMaterials      []string                 `json:"unmatched_materials"`
	EcosystemConnections    []Connection             `json:"ecosystem_connections"`
	EcosystemServices       []string                 `json:"ecosystem_services"`
	EcosystemServiceDetails map[string]ServiceDetail `json:"ecosystem_service_details"`
	ProcessingTimeMS        float64                  `json:"processing_time_ms"`
	CostUSD                 float64                  `json:"cost_usd"`
}

// ErrorPayload carries a backend-reported failure.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Event is the tagged union of all stream events. Type and the envelope
// fields are always set; at most one payload pointer is non-nil, selected by
// Type. Unrecognized types decode to a bare envelope so consumers can ignore
// them without failing.
type Event struct {
	Type      EventType
	Message   string
	ElapsedMS float64

	Stage1Complete *Stage1CompletePayload
	Stage2Start    *Stage2StartPayload
	Stage2Chunk    *Stage2ChunkPayload
	Stage3Complete *Stage3CompletePayload
	Result         *Result
	Error          *ErrorPayload
}

// envelope is the part common to every event.
type envelope struct {
	Type      EventType `json:"event_type"`
	Message   string    `json:"message"`
	ElapsedMS float64   `json:"elapsed_ms"`
}

// ParseEvent decodes one JSON event payload. A decode failure of either the
// envelope or the type-specific payload is an error; callers skip the frame.
func ParseEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode event envelope: %w", err)
	}

	ev := Event{
		Type:      env.Type,
		Message:   env.Message,
		ElapsedMS: env.ElapsedMS,
	}

	var err error
	switch env.Type {
	case EventStage1Complete:
		p := &Stage1CompletePayload{}
		err = json.Unmarshal(data, p)
		ev.Stage1Complete = p
	case EventStage2Start:
		p := &Stage2StartPayload{}
		err = json.Unmarshal(data, p)
		ev.Stage2Start = p
	case EventStage2Chunk:
		p := &Stage2ChunkPayload{}
		err = json.Unmarshal(data, p)
		ev.Stage2Chunk = p
	case EventStage3Complete:
		p := &Stage3CompletePayload{}
		err = json.Unmarshal(data, p)
		ev.Stage3Complete = p
	case EventResult:
		p := &Result{}
		err = json.Unmarshal(data, p)
		ev.Result = p
	case EventError:
		p := &ErrorPayload{}
		err = json.Unmarshal(data, p)
		ev.Error = p
	default:
		// stage starts, complete, and unknown types carry no payload
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}

	return ev, nil
}
