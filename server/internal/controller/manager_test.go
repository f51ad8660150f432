package controller

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/shared/protocol"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func readFrame(t *testing.T, conn net.Conn) protocol.Frame {
	t.Helper()
	header := make([]byte, protocol.HeaderSize)
	_, err := conn.Read(header)
	require.NoError(t, err)

	length := binary.BigEndian.Uint32(header[0:4])
	cmd := protocol.Command(binary.BigEndian.Uint32(header[4:8]))

	payload := make([]byte, length)
	if length > 0 {
		n := 0
		for n < int(length) {
			m, err := conn.Read(payload[n:])
			require.NoError(t, err)
			n += m
		}
	}
	return protocol.Frame{Cmd: cmd, Payload: payload}
}

func newTestSession(t *testing.T) (*ClientSession, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	s := newClientSession(serverConn, zap.NewNop())
	t.Cleanup(func() { clientConn.Close() })
	return s, clientConn
}

func TestFileNameStripsDirectory(t *testing.T) {
	assert.Equal(t, "setup.exe", fileName(`C:\installers\setup.exe`))
	assert.Equal(t, "setup.exe", fileName("/tmp/installers/setup.exe"))
	assert.Equal(t, "setup.exe", fileName("setup.exe"))
}

func TestPendingTransferDoneAndPercent(t *testing.T) {
	tr := &PendingTransfer{Data: make([]byte, 200_000)}
	assert.False(t, tr.done())
	assert.Equal(t, 0, tr.percent())

	tr.SentSize = 100_000
	assert.Equal(t, 50, tr.percent())
	assert.False(t, tr.done())

	tr.SentSize = 200_000
	assert.True(t, tr.done())
	assert.Equal(t, 100, tr.percent())
}

func TestSendNextChunkSendsChunksThenEnd(t *testing.T) {
	s, clientConn := newTestSession(t)
	m := New(DefaultConfig(), &recordingSink{}, zap.NewNop())

	data := make([]byte, protocol.ChunkSize+10)
	s.setTransfer(&PendingTransfer{Data: data})

	done := make(chan struct{})
	go func() {
		defer close(done)
		f1 := readFrame(t, clientConn)
		assert.Equal(t, protocol.CmdFileTransferData, f1.Cmd)
		assert.Len(t, f1.Payload, protocol.ChunkSize)

		f2 := readFrame(t, clientConn)
		assert.Equal(t, protocol.CmdFileTransferData, f2.Cmd)
		assert.Len(t, f2.Payload, 10)

		f3 := readFrame(t, clientConn)
		assert.Equal(t, protocol.CmdFileTransferEnd, f3.Cmd)
	}()

	assert.True(t, m.sendNextChunk(s))
	assert.True(t, m.sendNextChunk(s))
	assert.False(t, m.sendNextChunk(s))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for chunks")
	}
}

func TestScanLivenessClosesStaleSessions(t *testing.T) {
	s, clientConn := newTestSession(t)
	m := New(Config{HeartbeatTimeout: 10 * time.Millisecond}, &recordingSink{}, zap.NewNop())

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	m.scanLiveness()

	select {
	case <-s.done:
	case <-time.After(time.Second):
		t.Fatal("session was not closed on heartbeat timeout")
	}
	clientConn.Close()
}

func TestHandleClientInfoUpdatesIdentityAndEmitsEvent(t *testing.T) {
	s, clientConn := newTestSession(t)
	defer clientConn.Close()
	sink := &recordingSink{}
	m := New(DefaultConfig(), sink, zap.NewNop())

	payload := []byte(`{"computerName":"WS-1","ipAddress":"10.0.0.5","macAddress":"aa:bb:cc:dd:ee:ff","osVersion":"Windows 11"}`)
	m.handleClientInfo(s, payload)

	snap := s.snapshot()
	assert.Equal(t, "WS-1", snap.ComputerName)
	assert.Equal(t, "10.0.0.5", snap.IPAddress)

	events := sink.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, s.ID.String(), events[0].ClientID)
}
