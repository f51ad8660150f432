// Package eventstream implements the real-time pub/sub hub that pushes
// controller events (client connects/disconnects, inventory replies,
// install/uninstall results, transfer progress, log lines) to connected
// operator UIs. It uses gorilla/websocket under the hood and exposes a
// topic-based broadcast API consumed by controller.Manager via the
// EventSink adapter in sink.go.
//
// Topic naming convention:
//
//	events            — every event, unfiltered
//	client:<uuid>     — events scoped to one client session
package eventstream

import "github.com/lanfleet/lanfleet/shared/types"

// Message is the envelope for every WebSocket frame sent to clients.
// The operator UI deserializes this struct and dispatches on Kind.
//
// JSON example:
//
//	{"kind":"install_result","topic":"client:018f...","clientId":"018f...","payload":{"success":true}}
type Message struct {
	// Kind identifies the event so the client can route it correctly.
	Kind types.EventKind `json:"kind"`

	// Topic is the pub/sub channel this message was published on.
	Topic string `json:"topic"`

	// ClientID is the originating session, empty for controller-wide events.
	ClientID string `json:"clientId,omitempty"`

	// Payload carries the event-specific data; its shape varies by Kind.
	Payload any `json:"payload"`
}
