// Package controller implements the controller side of the protocol: the
// TCP accept loop, the per-client session registry, command dispatch, the
// chunked file-transfer sender, and heartbeat liveness detection.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lanfleet/lanfleet/shared/protocol"
	"github.com/lanfleet/lanfleet/shared/types"
)

// ErrClientNotConnected is returned by operations targeting a client ID that
// has no live session. Distinct from a validation failure: the request was
// well-formed, the agent just isn't there to receive it right now.
var ErrClientNotConnected = errors.New("client not connected")

// Config holds the controller's tunable timers and limits. Defaults match
// the protocol's documented values.
type Config struct {
	Port              int
	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration
}

// DefaultConfig returns the protocol's documented defaults.
func DefaultConfig() Config {
	return Config{
		Port:              8899,
		HeartbeatInterval: 5 * time.Second,
		HeartbeatTimeout:  15 * time.Second,
	}
}

// FrameObserver receives a notification for every frame the controller
// decodes from or writes to a session socket. Manager calls it unconditionally;
// the zero value (nopObserver) makes this free when nobody cares.
type FrameObserver interface {
	FrameIn()
	FrameOut()
}

type nopObserver struct{}

func (nopObserver) FrameIn()  {}
func (nopObserver) FrameOut() {}

// Manager owns the TCP listener, the live session registry, and the
// liveness scanner. It is safe for concurrent use — the registry is
// guarded by mu, and each session's own state is guarded independently.
type Manager struct {
	cfg    Config
	logger *zap.Logger
	sink   EventSink
	obs    FrameObserver

	mu       sync.RWMutex
	sessions map[uuid.UUID]*ClientSession

	listener  net.Listener
	scheduler gocron.Scheduler
}

// New creates a Manager. Call Start to begin accepting connections.
func New(cfg Config, sink EventSink, logger *zap.Logger) *Manager {
	if sink == nil {
		sink = NopSink{}
	}
	return &Manager{
		cfg:      cfg,
		logger:   logger.Named("controller"),
		sink:     sink,
		obs:      nopObserver{},
		sessions: make(map[uuid.UUID]*ClientSession),
	}
}

// SetObserver installs a FrameObserver. Must be called before Start; nil
// resets it to a no-op.
func (m *Manager) SetObserver(obs FrameObserver) {
	if obs == nil {
		obs = nopObserver{}
	}
	m.obs = obs
}

// Start binds the TCP listener and runs the accept loop and liveness
// scanner until ctx is cancelled. A port-bind failure is returned
// immediately with no side effects, per the protocol's contract for
// start(); any other failure surfaces asynchronously through the
// returned error once ctx is cancelled or a component fails.
func (m *Manager) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", m.cfg.Port))
	if err != nil {
		return fmt.Errorf("controller: bind port %d: %w", m.cfg.Port, err)
	}
	m.listener = ln

	sched, err := gocron.NewScheduler()
	if err != nil {
		ln.Close()
		return fmt.Errorf("controller: create scheduler: %w", err)
	}
	m.scheduler = sched

	if _, err := sched.NewJob(
		gocron.DurationJob(m.cfg.HeartbeatInterval),
		gocron.NewTask(m.scanLiveness),
	); err != nil {
		ln.Close()
		return fmt.Errorf("controller: schedule liveness scan: %w", err)
	}
	sched.Start()

	m.logger.Info("controller listening",
		zap.Int("port", m.cfg.Port),
		zap.Duration("heartbeat_interval", m.cfg.HeartbeatInterval),
		zap.Duration("heartbeat_timeout", m.cfg.HeartbeatTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.acceptLoop(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		return m.Stop()
	})

	return g.Wait()
}

func (m *Manager) acceptLoop(ctx context.Context) error {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("controller: accept: %w", err)
		}
		go m.handleConn(ctx, conn)
	}
}

// Stop closes the listener, stops the scheduler, and closes every
// connected session. Idempotent.
func (m *Manager) Stop() error {
	var errs error

	if m.listener != nil {
		errs = multierr.Append(errs, m.listener.Close())
	}
	if m.scheduler != nil {
		errs = multierr.Append(errs, m.scheduler.Shutdown())
	}

	m.mu.Lock()
	sessions := make([]*ClientSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}

	return errs
}

func (m *Manager) handleConn(ctx context.Context, conn net.Conn) {
	s := newClientSession(conn, m.logger)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	s.onFrameOut = m.obs.FrameOut

	m.sink.Publish(Event{Kind: types.EventClientConnected, ClientID: s.ID.String()})
	s.logger.Info("client connected", zap.String("remote_addr", s.RemoteAddr))

	m.readLoop(ctx, s)

	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()

	s.close()
	m.sink.Publish(Event{Kind: types.EventClientDisconnected, ClientID: s.ID.String()})
	s.logger.Info("client disconnected")
}

func (m *Manager) readLoop(ctx context.Context, s *ClientSession) {
	decoder := protocol.NewDecoder()
	buf := make([]byte, 64*1024)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			return
		}
		decoder.Feed(buf[:n])

		frames, decErr := decoder.Decode()
		for _, f := range frames {
			m.obs.FrameIn()
			m.dispatch(s, f)
		}
		if decErr != nil {
			s.logger.Warn("oversize frame, tearing down session", zap.Error(decErr))
			m.sink.Publish(Event{
				Kind:     types.EventLog,
				ClientID: s.ID.String(),
				Payload:  "oversize frame, disconnecting: " + decErr.Error(),
			})
			return
		}
	}
}

// scanLiveness closes every session whose last heartbeat is older than
// HeartbeatTimeout. Closing the socket funnels into handleConn's normal
// disconnect path.
func (m *Manager) scanLiveness() {
	m.mu.RLock()
	sessions := make([]*ClientSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		if age := s.heartbeatAge(); age > m.cfg.HeartbeatTimeout {
			s.logger.Warn("heartbeat timeout, disconnecting", zap.Duration("age", age))
			m.sink.Publish(Event{
				Kind:     types.EventLog,
				ClientID: s.ID.String(),
				Payload:  fmt.Sprintf("heartbeat timeout after %s, disconnecting", age.Round(time.Second)),
			})
			s.close()
		}
	}
}

// ConnectedClients returns a snapshot of every currently connected session,
// ordered by ID for stable pagination.
func (m *Manager) ConnectedClients() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Snapshot, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.snapshot())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Get returns the snapshot for a single client, or false if not connected.
func (m *Manager) Get(clientID string) (Snapshot, bool) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return Snapshot{}, false
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

func (m *Manager) lookup(clientID string) (*ClientSession, bool) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, false
	}
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	return s, ok
}

// RequestSysInfo sends a zero-payload GET_SYSINFO request. Silently drops
// if the client is not connected, matching the protocol's contract.
func (m *Manager) RequestSysInfo(clientID string) {
	s, ok := m.lookup(clientID)
	if !ok {
		return
	}
	if err := s.write(protocol.CmdGetSysInfo, nil); err != nil {
		s.logger.Warn("failed to send GET_SYSINFO", zap.Error(err))
	}
}

// RequestSoftwareList sends a zero-payload GET_SOFTWARE request.
func (m *Manager) RequestSoftwareList(clientID string) {
	s, ok := m.lookup(clientID)
	if !ok {
		return
	}
	if err := s.write(protocol.CmdGetSoftware, nil); err != nil {
		s.logger.Warn("failed to send GET_SOFTWARE", zap.Error(err))
	}
}

// InstallSoftware reads filePath fully into memory and begins a chunked
// transfer to clientID. A file-open failure is reported immediately as a
// negative install-result event, per the protocol's error-handling policy.
func (m *Manager) InstallSoftware(clientID, filePath, args string) error {
	s, ok := m.lookup(clientID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotConnected, clientID)
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		m.sink.Publish(Event{
			Kind:     types.EventInstallResult,
			ClientID: clientID,
			Payload:  protocol.InstallResponse{Success: false, Message: "cannot open file: " + err.Error()},
		})
		return err
	}

	s.setTransfer(&PendingTransfer{
		ClientID:    clientID,
		FilePath:    filePath,
		InstallArgs: args,
		Data:        data,
	})

	start := protocol.FileTransferStart{
		FileName:    fileName(filePath),
		FileSize:    int64(len(data)),
		InstallArgs: args,
	}
	payload, err := json.Marshal(start)
	if err != nil {
		return err
	}
	return s.write(protocol.CmdFileTransferStart, payload)
}

// UninstallSoftware sends a single JSON UNINSTALL_SOFTWARE frame; the
// outcome arrives asynchronously as an uninstall-result event.
func (m *Manager) UninstallSoftware(clientID, name, uninstallCmd string) error {
	s, ok := m.lookup(clientID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotConnected, clientID)
	}
	return s.writeJSON(protocol.CmdUninstallSoftware, protocol.UninstallSoftware{
		Name:         name,
		UninstallCmd: uninstallCmd,
	})
}

func fileName(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' || path[i] == '\\' {
			return path[i+1:]
		}
	}
	return path
}
