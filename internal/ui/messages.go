package ui

import "ecoweave/internal/protocol"

// streamEventMsg delivers one decoded event from the live stream. Gen ties
// the message to the run that produced it; events from superseded runs are
// dropped on arrival.
type streamEventMsg struct {
	Gen   uint64
	Event protocol.Event
}

// streamClosedMsg signals that a run's event channel closed.
type streamClosedMsg struct {
	Gen uint64
}

// scrollTickMsg advances the graph view's spring animation.
type scrollTickMsg struct{}
