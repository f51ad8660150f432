package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/shared/types"
)

type recordingSink struct {
	events []controller.Event
}

func (r *recordingSink) Publish(e controller.Event) {
	r.events = append(r.events, e)
}

func TestConnectedClientsGaugeTracksConnectAndDisconnect(t *testing.T) {
	inner := &recordingSink{}
	c := NewCollector(inner)

	c.Publish(controller.Event{Kind: types.EventClientConnected, ClientID: "a"})
	c.Publish(controller.Event{Kind: types.EventClientConnected, ClientID: "b"})
	assert.InDelta(t, float64(2), testutil.ToFloat64(c.connectedClients), 0)

	c.Publish(controller.Event{Kind: types.EventClientDisconnected, ClientID: "a"})
	assert.InDelta(t, float64(1), testutil.ToFloat64(c.connectedClients), 0)

	require.Len(t, inner.events, 3)
}

func TestTransferBytesCounterAccumulatesDeltas(t *testing.T) {
	inner := &recordingSink{}
	c := NewCollector(inner)

	c.Publish(controller.Event{
		Kind:     types.EventTransferProgress,
		ClientID: "a",
		Payload:  map[string]any{"percent": 50, "sentSize": int64(65536), "fileSize": 131072},
	})
	c.Publish(controller.Event{
		Kind:     types.EventTransferProgress,
		ClientID: "a",
		Payload:  map[string]any{"percent": 100, "sentSize": int64(131072), "fileSize": 131072},
	})

	assert.InDelta(t, float64(131072), testutil.ToFloat64(c.transferBytes), 0)
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	c := NewCollector(controller.NopSink{})
	c.Publish(controller.Event{Kind: types.EventClientConnected, ClientID: "a"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	c.Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "lanfleet_controller_connected_clients")
}
