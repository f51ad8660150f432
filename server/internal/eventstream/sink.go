package eventstream

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/shared/types"
)

// Sink adapts a Hub into a controller.EventSink: each event is republished
// on both the unfiltered "events" topic and its client-scoped topic, so an
// operator UI can subscribe either to the whole fleet or to one session.
type Sink struct {
	hub *Hub
}

// NewSink wraps hub as a publish target for controller events.
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

// Publish implements controller.EventSink.
func (s *Sink) Publish(e controller.Event) {
	msg := Message{Kind: e.Kind, Topic: "events", ClientID: e.ClientID, Payload: e.Payload}
	s.hub.Publish("events", msg)

	if e.ClientID != "" {
		scoped := msg
		scoped.Topic = "client:" + e.ClientID
		s.hub.Publish(scoped.Topic, scoped)
	}
}

// ServeHTTP upgrades the request to a WebSocket and subscribes it to the
// unfiltered event feed, or to a single client's feed when ?client=<id> is
// given. ?kinds=sysinfo_received,install_result restricts delivery to
// only those event kinds, e.g. a dashboard tailing the whole fleet that
// wants to skip high-frequency transfer_progress chatter.
func ServeHTTP(hub *Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		topics := []string{"events"}
		if id := r.URL.Query().Get("client"); id != "" {
			topics = []string{"client:" + id}
		}

		client, err := NewClient(hub, w, r, topics, parseKinds(r), logger)
		if err != nil {
			logger.Warn("eventstream: upgrade failed", zap.Error(err))
			return
		}
		client.Run()
	}
}

// parseKinds reads the comma-separated ?kinds= query parameter into a list
// of EventKinds. An empty or missing parameter yields nil, meaning
// "everything" per Client.wants.
func parseKinds(r *http.Request) []types.EventKind {
	raw := r.URL.Query().Get("kinds")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	kinds := make([]types.EventKind, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			kinds = append(kinds, types.EventKind(p))
		}
	}
	return kinds
}
