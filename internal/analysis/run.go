package analysis

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Run identifies one analysis submission. Gen is a monotonic generation
// token; a message carrying a stale generation belongs to a superseded run
// and must be dropped by the consumer.
type Run struct {
	ID     uuid.UUID
	Gen    uint64
	cancel context.CancelFunc
}

// Cancel stops the run's stream.
func (r *Run) Cancel() {
	if r != nil && r.cancel != nil {
		r.cancel()
	}
}

// Runner hands out runs and guarantees at most one is live: beginning a new
// run cancels the previous one first, so two streams can never interleave
// updates into the same snapshot.
type Runner struct {
	mu      sync.Mutex
	gen     uint64
	current *Run
}

// Begin cancels any live run and returns a context plus the new run.
func (rn *Runner) Begin(parent context.Context) (context.Context, *Run) {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	if rn.current != nil {
		rn.current.Cancel()
	}

	ctx, cancel := context.WithCancel(parent)
	rn.gen++
	run := &Run{
		ID:     uuid.New(),
		Gen:    rn.gen,
		cancel: cancel,
	}
	rn.current = run
	return ctx, run
}

// IsCurrent reports whether gen identifies the live run.
func (rn *Runner) IsCurrent(gen uint64) bool {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.current != nil && rn.current.Gen == gen
}

// Stop cancels the live run, if any.
func (rn *Runner) Stop() {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	if rn.current != nil {
		rn.current.Cancel()
		rn.current = nil
	}
}
