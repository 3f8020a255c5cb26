package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ecoweave/internal/config"
	"ecoweave/internal/logging"
	"ecoweave/internal/protocol"
)

// errorBodyLimit caps how much of a failed response body is read for the
// error message.
const errorBodyLimit = 2048

// Client talks to the analysis service's invoke endpoints.
type Client struct {
	baseURL string
	agentID string
	apiKey  string

	// streaming runs are long-lived, so the client carries no timeout;
	// cancellation comes from the request context
	httpClient *http.Client

	// limiter throttles submissions so a key-happy user cannot hammer
	// the backend
	limiter *rate.Limiter
}

// FrameObserver receives each raw frame payload before it is parsed. Used
// for best-effort journaling; observers must not block.
type FrameObserver func(raw []byte)

// NewClient builds a client from backend settings.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		agentID:    cfg.AgentID,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
		limiter:    rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

type invokeInputs struct {
	StrategyDescription string `json:"strategy_description"`
}

type invokeRequest struct {
	Inputs invokeInputs `json:"inputs"`
}

func (c *Client) newRequest(ctx context.Context, path, description string) (*http.Request, error) {
	body, err := json.Marshal(invokeRequest{Inputs: invokeInputs{StrategyDescription: description}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/agents/%s/%s", c.baseURL, c.agentID, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// Stream submits a strategy description and returns a channel of decoded
// events. The channel is closed when the stream ends for any reason. A
// transport failure or non-2xx response surfaces as a synthetic error event
// rather than a Go error, so consumers handle exactly one shape of failure.
// Context cancellation ends the stream silently.
func (c *Client) Stream(ctx context.Context, description string) <-chan protocol.Event {
	return c.stream(ctx, description, nil)
}

// StreamObserved is Stream with a raw-frame observer attached.
func (c *Client) StreamObserved(ctx context.Context, description string, obs FrameObserver) <-chan protocol.Event {
	return c.stream(ctx, description, obs)
}

func (c *Client) stream(ctx context.Context, description string, obs FrameObserver) <-chan protocol.Event {
	events := make(chan protocol.Event, 16)

	go func() {
		defer close(events)

		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		req, err := c.newRequest(ctx, "invoke/stream", description)
		if err != nil {
			sendError(ctx, events, err.Error())
			return
		}

		logging.Info("starting analysis stream", "url", req.URL.String())
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Error("stream request failed", "error", err)
			sendError(ctx, events, fmt.Sprintf("request failed: %v", err))
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
			logging.Error("stream request rejected", "status", resp.StatusCode)
			sendError(ctx, events, fmt.Sprintf("backend returned %s: %s", resp.Status, bytes.TrimSpace(body)))
			return
		}

		err = decodeObserved(ctx, resp.Body, obs, func(ev protocol.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
			logging.Error("stream read failed", "error", err)
			sendError(ctx, events, fmt.Sprintf("stream interrupted: %v", err))
		}
	}()

	return events
}

// decodeObserved wraps protocol.DecodeStream, teeing each complete raw line
// to obs before decoding when an observer is set.
func decodeObserved(ctx context.Context, r io.Reader, obs FrameObserver, fn func(protocol.Event) error) error {
	if obs == nil {
		return protocol.DecodeStream(ctx, r, fn)
	}
	tee := &lineTee{obs: obs}
	return protocol.DecodeStream(ctx, io.TeeReader(r, tee), fn)
}

// lineTee buffers tee'd bytes and hands complete lines to the observer.
type lineTee struct {
	obs FrameObserver
	buf []byte
}

func (t *lineTee) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	for {
		idx := bytes.IndexByte(t.buf, '\n')
		if idx < 0 {
			return len(p), nil
		}
		line := bytes.TrimSuffix(t.buf[:idx], []byte("\r"))
		if len(line) > 0 {
			raw := make([]byte, len(line))
			copy(raw, line)
			t.obs(raw)
		}
		t.buf = t.buf[idx+1:]
	}
}

func sendError(ctx context.Context, events chan<- protocol.Event, msg string) {
	ev := protocol.Event{
		Type:  protocol.EventError,
		Error: &protocol.ErrorPayload{Error: msg},
	}
	select {
	case events <- ev:
	case <-ctx.Done():
	}
}

// invokeResponse is the synchronous endpoint's body: one JSON object
// wrapping the result document.
type invokeResponse struct {
	Result *protocol.Result `json:"result"`
}

// Invoke calls the synchronous endpoint and returns the unwrapped result
// document.
func (c *Client) Invoke(ctx context.Context, description string) (*protocol.Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, "invoke", description)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("backend returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var body invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if body.Result == nil {
		return nil, fmt.Errorf("response carries no result document")
	}
	return body.Result, nil
}
