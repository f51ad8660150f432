// Package runtime implements the agent's connection lifecycle: dialing or
// discovering the controller, pushing the identity frame, heartbeating,
// dispatching incoming commands, and driving the file-transfer receive
// state machine — all on one goroutine per session, matching the
// single-logical-executor concurrency model the protocol assumes.
package runtime

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/agent/internal/discovery"
	"github.com/lanfleet/lanfleet/agent/internal/executor"
	"github.com/lanfleet/lanfleet/agent/internal/transfer"
)

// Manager runs the agent's Idle -> Dialing -> Connected -> Disconnected
// cycle until its context is cancelled.
type Manager struct {
	cfg    Config
	exec   *executor.Executor
	logger *zap.Logger
}

// New creates a Manager. Call Run to start the connection loop.
func New(cfg Config, exec *executor.Executor, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, exec: exec, logger: logger.Named("runtime")}
}

// Run blocks until ctx is cancelled, repeatedly dialing or discovering the
// controller and running one session at a time.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.ServerAddr != "" {
		return m.runExplicit(ctx)
	}
	return m.runDiscovery(ctx)
}

// runExplicit dials the configured address, reconnecting after a fixed
// delay on every disconnect.
func (m *Manager) runExplicit(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.ServerAddr, m.cfg.ServerPort)
	for {
		if ctx.Err() != nil {
			return nil
		}

		m.logger.Info("dialing controller", zap.String("addr", addr))
		if err := m.runOneSession(ctx, addr); err != nil {
			m.logger.Warn("session ended", zap.Error(err))
		}

		if ctx.Err() != nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(m.cfg.ReconnectDelay):
		}
	}
}

// runDiscovery binds the beacon port and dials whichever controller
// endpoint is announced first; once disconnected it resumes listening for
// beacons rather than retrying the same address, since the original
// controller may have moved.
func (m *Manager) runDiscovery(ctx context.Context) error {
	listener, err := discovery.Listen(m.cfg.BroadcastPort, m.logger)
	if err != nil {
		return err
	}
	defer listener.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		ep, err := listener.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		addr := fmt.Sprintf("%s:%d", ep.Host, ep.Port)
		m.logger.Info("controller discovered", zap.String("addr", addr))

		if err := m.runOneSession(ctx, addr); err != nil {
			m.logger.Warn("session ended", zap.Error(err))
		}
	}
}

// runOneSession dials addr and runs the session to completion (error or
// disconnect). It never returns nil on a network failure — callers decide
// how to wait before the next attempt.
func (m *Manager) runOneSession(ctx context.Context, addr string) error {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	sess := newSession(conn, m.exec, transfer.NewReceiver(m.cfg.TempDir), m.cfg.HeartbeatInterval, m.logger)
	return sess.run(ctx)
}
