package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecoweave/internal/config"
	"ecoweave/internal/protocol"
)

func newTestClient(url string) *Client {
	return NewClient(config.BackendConfig{BaseURL: url, AgentID: "bmf-analyzer"})
}

func collect(t *testing.T, events <-chan protocol.Event) []protocol.Event {
	t.Helper()
	var got []protocol.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for stream to close, have %d events", len(got))
		}
	}
}

func TestStreamDeliversEventsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/agents/bmf-analyzer/invoke/stream" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req invokeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Inputs.StrategyDescription != "green roof with rainwater capture" {
			t.Errorf("description = %q", req.Inputs.StrategyDescription)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		frames := []string{
			`data: {"event_type":"stage1_start","message":"extracting"}`,
			`data: {"event_type":"stage1_complete","extracted_materials":["rainwater"]}`,
			`data: {"event_type":"complete"}`,
		}
		flusher := w.(http.Flusher)
		for _, f := range frames {
			w.Write([]byte(f + "\n"))
			flusher.Flush()
		}
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got := collect(t, c.Stream(context.Background(), "green roof with rainwater capture"))

	want := []protocol.EventType{protocol.EventStage1Start, protocol.EventStage1Complete, protocol.EventComplete}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Type != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i].Type, want[i])
		}
	}
}

func TestStreamNon2xxBecomesErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "agent not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got := collect(t, c.Stream(context.Background(), "anything"))

	if len(got) != 1 || got[0].Type != protocol.EventError {
		t.Fatalf("events = %+v, want single error event", got)
	}
	if got[0].Error == nil || got[0].Error.Error == "" {
		t.Errorf("error event has no message: %+v", got[0])
	}
}

func TestStreamTransportFailureBecomesErrorEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := newTestClient(srv.URL)
	got := collect(t, c.Stream(context.Background(), "anything"))

	if len(got) != 1 || got[0].Type != protocol.EventError {
		t.Fatalf("events = %+v, want single error event", got)
	}
}

func TestStreamCancelledContextStaysSilent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient("http://localhost:1")
	got := collect(t, c.Stream(ctx, "anything"))
	if len(got) != 0 {
		t.Fatalf("cancelled stream emitted events: %+v", got)
	}
}

func TestStreamObserverSeesRawFrames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data: {\"event_type\":\"stage1_start\"}\n"))
		w.Write([]byte("not a data line\n"))
		w.Write([]byte("data: {\"event_type\":\"complete\"}\n"))
	}))
	defer srv.Close()

	var raw []string
	c := newTestClient(srv.URL)
	events := c.StreamObserved(context.Background(), "x", func(line []byte) {
		raw = append(raw, string(line))
	})
	collect(t, events)

	// observer sees every complete line, data-prefixed or not
	if len(raw) != 3 {
		t.Fatalf("observer saw %d lines, want 3: %v", len(raw), raw)
	}
	if raw[1] != "not a data line" {
		t.Errorf("raw[1] = %q", raw[1])
	}
}

func TestStreamAuthHeader(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte("data: {\"event_type\":\"complete\"}\n"))
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL, AgentID: "bmf-analyzer", APIKey: "sk-test"})
	collect(t, c.Stream(context.Background(), "x"))

	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestInvokeUnwrapsResultDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/bmf-analyzer/invoke" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(invokeResponse{Result: &protocol.Result{
			ExtractedMaterials: []string{"timber"},
			UnmatchedMaterials: []string{"timber"},
			ProcessingTimeMS:   1234,
			CostUSD:            0.01,
		}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Invoke(context.Background(), "timber frame extension")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(result.ExtractedMaterials) != 1 || result.ExtractedMaterials[0] != "timber" {
		t.Errorf("materials = %v", result.ExtractedMaterials)
	}
	if result.ProcessingTimeMS != 1234 || result.CostUSD != 0.01 {
		t.Errorf("result = %+v", result)
	}
}

func TestInvokeMissingResultDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Invoke(context.Background(), "x"); err == nil {
		t.Fatal("expected error for body without a result document")
	}
}

func TestInvokeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Invoke(context.Background(), "x"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
