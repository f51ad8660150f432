package controller

import "github.com/lanfleet/lanfleet/shared/types"

// Event is one controller-side occurrence delivered to subscribers —
// the Go analogue of the original's Qt signal emissions
// (clientConnected, sysInfoReceived, installResult, ...).
type Event struct {
	Kind     types.EventKind
	ClientID string
	Payload  any
}

// EventSink receives every event the Manager produces. Publish must not
// block — a slow sink stalls the session goroutine that produced the
// event. server/internal/eventstream.Sink implements this by handing the
// event to eventstream.Hub's non-blocking Publish.
type EventSink interface {
	Publish(Event)
}

// NopSink discards every event. Used when no operator UI is attached.
type NopSink struct{}

func (NopSink) Publish(Event) {}
