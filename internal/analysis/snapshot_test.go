package analysis

import (
	"reflect"
	"testing"

	"ecoweave/internal/protocol"
)

func chunkEvent(chunk int, flows ...protocol.MatchedFlow) protocol.Event {
	return protocol.Event{
		Type:        protocol.EventStage2Chunk,
		Stage2Chunk: &protocol.Stage2ChunkPayload{CurrentChunk: chunk, MatchedBMFs: flows},
	}
}

func flow(name string, ft protocol.FlowType, materials ...string) protocol.MatchedFlow {
	return protocol.MatchedFlow{Name: name, FlowType: ft, Confidence: "high", MatchedMaterials: materials}
}

func TestReduceStageProgression(t *testing.T) {
	events := []protocol.Event{
		{Type: protocol.EventStage1Start, Message: "extracting materials"},
		{Type: protocol.EventStage1Complete, Stage1Complete: &protocol.Stage1CompletePayload{ExtractedMaterials: []string{"timber", "rainwater"}}},
		{Type: protocol.EventStage2Start, Stage2Start: &protocol.Stage2StartPayload{TotalChunks: 2}},
		chunkEvent(1, flow("Timber offcuts", protocol.FlowOutflow, "timber")),
		chunkEvent(2, flow("Roof runoff", protocol.FlowBoth, "rainwater")),
		{Type: protocol.EventStage3Start},
		{Type: protocol.EventStage3Complete, Stage3Complete: &protocol.Stage3CompletePayload{
			EcosystemConnections: []protocol.Connection{{BMFName: "Roof runoff", EcosystemService: "Water regulation", RelationshipType: "supports"}},
			EcosystemServices:    []string{"Water regulation"},
		}},
		{Type: protocol.EventComplete},
	}

	s := Snapshot{}
	wantStages := []Stage{StageExtract, StageExtract, StageMatch, StageMatch, StageMatch, StageLink, StageLink, StageComplete}
	for i, ev := range events {
		s = Reduce(s, ev)
		if s.Stage != wantStages[i] {
			t.Fatalf("after event %d (%s): stage = %v, want %v", i, ev.Type, s.Stage, wantStages[i])
		}
	}

	if len(s.ExtractedMaterials) != 2 {
		t.Errorf("materials = %v", s.ExtractedMaterials)
	}
	if s.TotalChunks != 2 || s.DoneChunks != 2 {
		t.Errorf("chunks = %d/%d, want 2/2", s.DoneChunks, s.TotalChunks)
	}
	if len(s.Flows) != 2 || len(s.Connections) != 1 || len(s.Services) != 1 {
		t.Errorf("flows=%d conns=%d services=%d", len(s.Flows), len(s.Connections), len(s.Services))
	}
}

func TestReduceChunkDedupFirstWins(t *testing.T) {
	s := Reduce(Snapshot{}, chunkEvent(1,
		flow("Timber offcuts", protocol.FlowOutflow, "timber"),
	))
	s = Reduce(s, chunkEvent(2,
		flow("Timber offcuts", protocol.FlowInflow), // duplicate name, different data
		flow("Roof runoff", protocol.FlowBoth, "rainwater"),
	))

	if len(s.Flows) != 2 {
		t.Fatalf("flows = %d, want 2", len(s.Flows))
	}
	if s.Flows[0].FlowType != protocol.FlowOutflow {
		t.Errorf("duplicate overwrote first occurrence: %+v", s.Flows[0])
	}
	if s.DoneChunks != 2 {
		t.Errorf("done chunks = %d, want 2", s.DoneChunks)
	}
}

func TestReduceRedeliveredChunkNotCounted(t *testing.T) {
	s := Reduce(Snapshot{}, protocol.Event{
		Type:        protocol.EventStage2Start,
		Stage2Start: &protocol.Stage2StartPayload{TotalChunks: 2},
	})
	s = Reduce(s, chunkEvent(1, flow("Timber offcuts", protocol.FlowOutflow, "timber")))
	s = Reduce(s, chunkEvent(1, flow("Timber offcuts", protocol.FlowOutflow, "timber"))) // redelivery
	s = Reduce(s, chunkEvent(2, flow("Roof runoff", protocol.FlowBoth, "rainwater")))

	if s.DoneChunks != 2 {
		t.Errorf("done chunks = %d, want 2", s.DoneChunks)
	}
	if s.DoneChunks > s.TotalChunks {
		t.Errorf("progress overran total: %d/%d", s.DoneChunks, s.TotalChunks)
	}
	if len(s.Flows) != 2 {
		t.Errorf("flows = %d, want 2", len(s.Flows))
	}
}

func TestReduceChunkOrderInsensitiveSet(t *testing.T) {
	a := chunkEvent(1, flow("A", protocol.FlowOutflow), flow("B", protocol.FlowBoth))
	b := chunkEvent(2, flow("C", protocol.FlowOutflow))

	s1 := Reduce(Reduce(Snapshot{}, a), b)
	s2 := Reduce(Reduce(Snapshot{}, b), a)

	names := func(s Snapshot) map[string]protocol.MatchedFlow {
		m := make(map[string]protocol.MatchedFlow)
		for _, f := range s.Flows {
			m[f.Name] = f
		}
		return m
	}
	if !reflect.DeepEqual(names(s1), names(s2)) {
		t.Errorf("flow sets differ under reordering: %v vs %v", names(s1), names(s2))
	}
}

func TestReduceStage1CompleteReplacesWholesale(t *testing.T) {
	s := Snapshot{ExtractedMaterials: []string{"old"}}
	s = Reduce(s, protocol.Event{
		Type:           protocol.EventStage1Complete,
		Stage1Complete: &protocol.Stage1CompletePayload{ExtractedMaterials: []string{"timber"}},
	})
	if !reflect.DeepEqual(s.ExtractedMaterials, []string{"timber"}) {
		t.Errorf("materials = %v, want [timber]", s.ExtractedMaterials)
	}
}

func TestReduceResultIsAuthoritative(t *testing.T) {
	s := Snapshot{Stage: StageLink}
	s = Reduce(s, chunkEvent(1, flow("Partial flow", protocol.FlowOutflow)))

	result := &protocol.Result{
		ExtractedMaterials: []string{"timber"},
		MatchedBMFs:        []protocol.MatchedFlow{flow("Final flow", protocol.FlowOutflow, "timber")},
		EcosystemServices:  []string{"Soil formation"},
		ProcessingTimeMS:   9000,
		CostUSD:            0.02,
	}
	s = Reduce(s, protocol.Event{Type: protocol.EventResult, Result: result})

	if s.Stage != StageComplete {
		t.Errorf("stage = %v, want complete", s.Stage)
	}
	if len(s.Flows) != 1 || s.Flows[0].Name != "Final flow" {
		t.Errorf("partial flows survived result overwrite: %v", s.Flows)
	}
	if s.Result == nil || s.Result.CostUSD != 0.02 {
		t.Errorf("result = %+v", s.Result)
	}
}

func TestReduceErrorAbsorbs(t *testing.T) {
	s := Reduce(Snapshot{Stage: StageMatch}, protocol.Event{
		Type:  protocol.EventError,
		Error: &protocol.ErrorPayload{Error: "model overloaded"},
	})
	if s.Stage != StageError || s.Err != "model overloaded" {
		t.Fatalf("snapshot = %+v", s)
	}

	after := Reduce(s, protocol.Event{Type: protocol.EventComplete})
	if after.Stage != StageError {
		t.Errorf("error state not absorbing: stage = %v", after.Stage)
	}
	after = Reduce(s, chunkEvent(1, flow("X", protocol.FlowOutflow)))
	if len(after.Flows) != 0 {
		t.Errorf("chunk applied after error: %v", after.Flows)
	}
}

func TestReduceIgnoresUnknownEvents(t *testing.T) {
	s := Snapshot{Stage: StageMatch, Message: "matching"}
	got := Reduce(s, protocol.Event{Type: "heartbeat", Message: "still here"})
	if !reflect.DeepEqual(got, s) {
		t.Errorf("unknown event changed snapshot: %+v", got)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	base := Reduce(Snapshot{}, chunkEvent(1, flow("A", protocol.FlowOutflow)))
	baseFlows := len(base.Flows)

	_ = Reduce(base, chunkEvent(2, flow("B", protocol.FlowBoth)))
	_ = Reduce(base, chunkEvent(2, flow("C", protocol.FlowBoth)))

	if len(base.Flows) != baseFlows || base.Flows[0].Name != "A" {
		t.Errorf("input snapshot mutated: %v", base.Flows)
	}
	if base.DoneChunks != 1 {
		t.Errorf("done chunks mutated: %d", base.DoneChunks)
	}
}

func TestUnmatchedMaterials(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		want []string
	}{
		{
			name: "derived from flows",
			s: Snapshot{
				ExtractedMaterials: []string{"timber", "rainwater", "glass"},
				Flows:              []protocol.MatchedFlow{flow("Timber offcuts", protocol.FlowOutflow, "timber")},
			},
			want: []string{"glass", "rainwater"},
		},
		{
			name: "result list wins",
			s: Snapshot{
				ExtractedMaterials: []string{"timber", "glass"},
				Result:             &protocol.Result{UnmatchedMaterials: []string{"glass"}},
			},
			want: []string{"glass"},
		},
		{
			name: "all matched",
			s: Snapshot{
				ExtractedMaterials: []string{"timber"},
				Flows:              []protocol.MatchedFlow{flow("Timber offcuts", protocol.FlowOutflow, "timber")},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.s.UnmatchedMaterials()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
