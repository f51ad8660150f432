// Package metrics exposes the controller's runtime counters as Prometheus
// gauges and counters: connected-client count, frame throughput, and bytes
// pushed over the chunked file-transfer sub-protocol.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/shared/types"
)

// Collector implements both controller.FrameObserver and controller.EventSink
// so Manager can report frame counts directly while transfer-byte deltas and
// the connected-client gauge are derived from the same event stream the
// websocket hub fans out.
type Collector struct {
	registry *prometheus.Registry
	inner    controller.EventSink

	connectedClients prometheus.Gauge
	framesIn         prometheus.Counter
	framesOut        prometheus.Counter
	transferBytes    prometheus.Counter

	mu   sync.Mutex
	sent map[string]int64
}

// NewCollector creates a Collector with its own registry and registers all
// metrics against it. inner receives every event unchanged after Collector
// has updated its own counters; pass controller.NopSink{} if nothing else
// needs the event stream.
func NewCollector(inner controller.EventSink) *Collector {
	if inner == nil {
		inner = controller.NopSink{}
	}
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		inner:    inner,
		connectedClients: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "lanfleet",
			Subsystem: "controller",
			Name:      "connected_clients",
			Help:      "Number of agents currently connected to the controller.",
		}),
		framesIn: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "lanfleet",
			Subsystem: "controller",
			Name:      "frames_in_total",
			Help:      "Protocol frames decoded from agent connections.",
		}),
		framesOut: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "lanfleet",
			Subsystem: "controller",
			Name:      "frames_out_total",
			Help:      "Protocol frames written to agent connections.",
		}),
		transferBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "lanfleet",
			Subsystem: "controller",
			Name:      "transfer_bytes_total",
			Help:      "Bytes sent to agents over the chunked file-transfer sub-protocol.",
		}),
		sent: make(map[string]int64),
	}
	return c
}

// FrameIn implements controller.FrameObserver.
func (c *Collector) FrameIn() { c.framesIn.Inc() }

// FrameOut implements controller.FrameObserver.
func (c *Collector) FrameOut() { c.framesOut.Inc() }

// Publish implements controller.EventSink. It updates the connected-client
// gauge and transfer-bytes counter from the relevant event kinds, then
// forwards every event to inner unchanged.
func (c *Collector) Publish(e controller.Event) {
	switch e.Kind {
	case types.EventClientConnected:
		c.connectedClients.Inc()
	case types.EventClientDisconnected:
		c.connectedClients.Dec()
		c.mu.Lock()
		delete(c.sent, e.ClientID)
		c.mu.Unlock()
	case types.EventTransferProgress:
		c.observeTransferProgress(e)
	}
	c.inner.Publish(e)
}

func (c *Collector) observeTransferProgress(e controller.Event) {
	payload, ok := e.Payload.(map[string]any)
	if !ok {
		return
	}
	sentSize, ok := payload["sentSize"].(int64)
	if !ok {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delta := sentSize - c.sent[e.ClientID]
	if delta > 0 {
		c.transferBytes.Add(float64(delta))
	}
	c.sent[e.ClientID] = sentSize
}

// Handler returns the HTTP handler to mount at /metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
