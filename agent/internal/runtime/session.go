package runtime

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/agent/internal/executor"
	"github.com/lanfleet/lanfleet/agent/internal/inventory"
	"github.com/lanfleet/lanfleet/agent/internal/transfer"
	"github.com/lanfleet/lanfleet/shared/protocol"
)

// session runs one TCP connection to the controller: identity push,
// heartbeat ticker, and the frame read/dispatch loop. All dispatch runs
// on the goroutine that calls run, except install/uninstall executor
// invocations, which run on their own goroutine so a multi-minute
// installer cannot stall frame processing — matching the concurrency
// model's "delegate slow work to a worker, deliver results as events."
type session struct {
	conn     net.Conn
	exec     *executor.Executor
	receiver *transfer.Receiver
	hbEvery  time.Duration
	logger   *zap.Logger

	writeMu sync.Mutex
}

func newSession(conn net.Conn, exec *executor.Executor, receiver *transfer.Receiver, hbEvery time.Duration, logger *zap.Logger) *session {
	return &session{conn: conn, exec: exec, receiver: receiver, hbEvery: hbEvery, logger: logger.Named("session")}
}

func (s *session) run(ctx context.Context) error {
	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.sendClientInfo(); err != nil {
		return err
	}

	go s.heartbeatLoop(sessionCtx)

	return s.readLoop(sessionCtx)
}

func (s *session) sendClientInfo() error {
	info := inventory.Collect(context.Background())
	payload, err := json.Marshal(protocol.ClientInfo{
		ComputerName: info.ComputerName,
		IPAddress:    info.IPAddress,
		MACAddress:   info.MACAddress,
		OSVersion:    info.OSVersion,
	})
	if err != nil {
		return err
	}
	return s.write(protocol.CmdClientInfo, payload)
}

func (s *session) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.hbEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(protocol.CmdHeartbeat, nil); err != nil {
				s.logger.Warn("heartbeat send failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	defer s.receiver.Discard()

	decoder := protocol.NewDecoder()
	buf := make([]byte, 64*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := s.conn.Read(buf)
		if err != nil {
			return err
		}
		decoder.Feed(buf[:n])

		frames, err := decoder.Decode()
		for _, f := range frames {
			s.dispatch(ctx, f)
		}
		if err != nil {
			// Oversize frame: tear the session down, mirroring the
			// controller-side policy for malformed traffic.
			return err
		}
	}
}

func (s *session) write(cmd protocol.Command, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(protocol.Pack(cmd, payload))
	return err
}

func (s *session) writeJSON(cmd protocol.Command, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("failed to marshal outgoing payload", zap.Error(err), zap.Stringer("cmd", cmd))
		return
	}
	if err := s.write(cmd, payload); err != nil {
		s.logger.Warn("failed to send frame", zap.Error(err), zap.Stringer("cmd", cmd))
	}
}
