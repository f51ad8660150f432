package controller

import (
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/shared/protocol"
)

// ClientSession is the controller's view of one connected agent: identity
// fields learned from CLIENT_INFO, liveness bookkeeping, and at most one
// in-flight PendingTransfer. All mutable state is guarded by mu so the
// session's own read-loop goroutine, the liveness scanner, and API
// handlers issuing commands can touch it concurrently.
type ClientSession struct {
	ID         uuid.UUID
	RemoteAddr string
	conn       net.Conn
	logger     *zap.Logger

	mu            sync.Mutex
	computerName  string
	ipAddress     string
	macAddress    string
	osVersion     string
	lastHeartbeat time.Time
	online        bool
	transfer      *PendingTransfer

	writeMu sync.Mutex

	// transferTick requeues the next chunk send onto this session's own
	// goroutine between sends, mirroring the source's
	// QMetaObject::invokeMethod(..., Qt::QueuedConnection) self-post so
	// heartbeats and other frames for this session are never starved by
	// a large transfer.
	transferTick chan struct{}
	closeOnce    sync.Once
	done         chan struct{}

	// onFrameOut, if set, is called after every successful write. Manager
	// wires this to its FrameObserver at session creation time.
	onFrameOut func()
}

func newClientSession(conn net.Conn, logger *zap.Logger) *ClientSession {
	id := uuid.New()
	return &ClientSession{
		ID:            id,
		RemoteAddr:    conn.RemoteAddr().String(),
		conn:          conn,
		logger:        logger.Named("session").With(zap.String("client_id", id.String())),
		lastHeartbeat: time.Now(),
		online:        true,
		transferTick:  make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Snapshot is an immutable copy of a session's identity and liveness state,
// safe to hand to API handlers and event payloads without holding a lock.
type Snapshot struct {
	ID            string
	RemoteAddr    string
	ComputerName  string
	IPAddress     string
	MACAddress    string
	OSVersion     string
	LastHeartbeat time.Time
	Online        bool
	Transferring  bool
}

func (s *ClientSession) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:            s.ID.String(),
		RemoteAddr:    s.RemoteAddr,
		ComputerName:  s.computerName,
		IPAddress:     s.ipAddress,
		MACAddress:    s.macAddress,
		OSVersion:     s.osVersion,
		LastHeartbeat: s.lastHeartbeat,
		Online:        s.online,
		Transferring:  s.transfer != nil,
	}
}

func (s *ClientSession) touchHeartbeat() {
	s.mu.Lock()
	s.lastHeartbeat = time.Now()
	s.mu.Unlock()
}

func (s *ClientSession) heartbeatAge() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastHeartbeat)
}

func (s *ClientSession) updateIdentity(info protocol.ClientInfo) {
	s.mu.Lock()
	s.computerName = info.ComputerName
	s.ipAddress = info.IPAddress
	s.macAddress = info.MACAddress
	s.osVersion = info.OSVersion
	s.mu.Unlock()
}

func (s *ClientSession) setTransfer(t *PendingTransfer) {
	s.mu.Lock()
	s.transfer = t
	s.mu.Unlock()
}

func (s *ClientSession) getTransfer() *PendingTransfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transfer
}

func (s *ClientSession) write(cmd protocol.Command, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(protocol.Pack(cmd, payload))
	if err == nil && s.onFrameOut != nil {
		s.onFrameOut()
	}
	return err
}

func (s *ClientSession) writeJSON(cmd protocol.Command, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(cmd, payload)
}

// close closes the underlying socket exactly once. Safe to call from the
// liveness scanner, the read loop's own error path, or Manager.Stop.
func (s *ClientSession) close() {
	s.closeOnce.Do(func() {
		s.conn.Close()
		close(s.done)
	})
}
