package eventstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/shared/types"
)

func newTestClient(topics []string) *Client {
	return &Client{send: make(chan Message, sendBufferSize), topics: topics}
}

func newTestClientWithKinds(topics []string, kinds ...types.EventKind) *Client {
	set := make(map[types.EventKind]struct{}, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return &Client{send: make(chan Message, sendBufferSize), topics: topics, kinds: set}
}

func TestHubPublishDeliversToSubscribedTopicOnly(t *testing.T) {
	hub := NewHub()
	go func() {
		// Drive registration manually — Run isn't started in this test,
		// so wire the maps directly the way Run's register case would.
	}()

	c1 := newTestClient([]string{"events"})
	c2 := newTestClient([]string{"client:abc"})

	hub.mu.Lock()
	hub.clients[c1] = struct{}{}
	hub.clients[c2] = struct{}{}
	hub.topics["events"] = map[*Client]struct{}{c1: {}}
	hub.topics["client:abc"] = map[*Client]struct{}{c2: {}}
	hub.mu.Unlock()

	hub.Publish("events", Message{Kind: "client_connected", Topic: "events"})

	select {
	case msg := <-c1.send:
		assert.Equal(t, "events", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("c1 did not receive message on its topic")
	}

	select {
	case <-c2.send:
		t.Fatal("c2 should not receive a message published only to events")
	default:
	}
}

func TestSinkPublishFansOutToClientTopic(t *testing.T) {
	hub := NewHub()
	all := newTestClient([]string{"events"})
	scoped := newTestClient([]string{"client:xyz"})

	hub.mu.Lock()
	hub.clients[all] = struct{}{}
	hub.clients[scoped] = struct{}{}
	hub.topics["events"] = map[*Client]struct{}{all: {}}
	hub.topics["client:xyz"] = map[*Client]struct{}{scoped: {}}
	hub.mu.Unlock()

	sink := NewSink(hub)
	sink.Publish(controller.Event{
		Kind:     types.EventInstallResult,
		ClientID: "xyz",
		Payload:  map[string]any{"success": true},
	})

	select {
	case msg := <-all.send:
		assert.Equal(t, "xyz", msg.ClientID)
	case <-time.After(time.Second):
		t.Fatal("unfiltered subscriber did not receive event")
	}

	select {
	case msg := <-scoped.send:
		assert.Equal(t, "client:xyz", msg.Topic)
	case <-time.After(time.Second):
		t.Fatal("scoped subscriber did not receive event")
	}
}

func TestHubPublishSkipsClientsThatDoNotWantKind(t *testing.T) {
	hub := NewHub()
	wants := newTestClientWithKinds([]string{"events"}, types.EventInstallResult)
	skips := newTestClientWithKinds([]string{"events"}, types.EventSysInfoReceived)

	hub.mu.Lock()
	hub.clients[wants] = struct{}{}
	hub.clients[skips] = struct{}{}
	hub.topics["events"] = map[*Client]struct{}{wants: {}, skips: {}}
	hub.mu.Unlock()

	hub.Publish("events", Message{Kind: types.EventInstallResult, Topic: "events"})

	select {
	case <-wants.send:
	case <-time.After(time.Second):
		t.Fatal("client subscribed to install_result did not receive it")
	}

	select {
	case <-skips.send:
		t.Fatal("client filtered to sysinfo_received should not receive install_result")
	default:
	}
}

func TestHubDroppedCountsTracksSaturatedClients(t *testing.T) {
	hub := NewHub()
	full := newTestClient([]string{"events"})
	// Fill the buffer so the next publish finds no room and must drop.
	for i := 0; i < sendBufferSize; i++ {
		full.send <- Message{}
	}

	hub.mu.Lock()
	hub.clients[full] = struct{}{}
	hub.topics["events"] = map[*Client]struct{}{full: {}}
	hub.mu.Unlock()

	hub.Publish("events", Message{Kind: types.EventTransferProgress, Topic: "events"})

	// Publish enqueues the unregister asynchronously; give it a channel slot
	// so the test doesn't depend on Run consuming it.
	select {
	case <-hub.unregister:
	case <-time.After(time.Second):
		t.Fatal("saturated client was not queued for unregister")
	}

	assert.Equal(t, int64(1), hub.DroppedCounts()[types.EventTransferProgress])
}
