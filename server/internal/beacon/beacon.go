// Package beacon implements the controller's UDP discovery broadcast:
// a periodic datagram advertising "<MAGIC>:<tcpPort>" so agents in
// discovery mode can find the controller without prior configuration.
package beacon

import (
	"fmt"
	"net"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const magic = "LANMGR_SERVER"

// DefaultInterval matches the protocol's documented broadcast interval.
const DefaultInterval = 3 * time.Second

// Emitter periodically broadcasts the controller's TCP endpoint over UDP.
type Emitter struct {
	tcpPort       int
	broadcastPort int
	interval      time.Duration
	logger        *zap.Logger

	conn      *net.UDPConn
	scheduler gocron.Scheduler
}

// New creates an Emitter. Call Start to begin broadcasting.
func New(tcpPort, broadcastPort int, interval time.Duration, logger *zap.Logger) *Emitter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Emitter{
		tcpPort:       tcpPort,
		broadcastPort: broadcastPort,
		interval:      interval,
		logger:        logger.Named("beacon"),
	}
}

// Start opens a UDP socket enabled for broadcast and schedules the
// recurring send via gocron, firing immediately once before the first
// tick, matching the source's start() calling sendBroadcast() before
// arming the timer.
func (e *Emitter) Start() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return fmt.Errorf("beacon: open socket: %w", err)
	}
	e.conn = conn

	sched, err := gocron.NewScheduler()
	if err != nil {
		conn.Close()
		return fmt.Errorf("beacon: create scheduler: %w", err)
	}
	e.scheduler = sched

	e.send()

	if _, err := sched.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(e.send),
	); err != nil {
		conn.Close()
		return fmt.Errorf("beacon: schedule broadcast: %w", err)
	}
	sched.Start()

	e.logger.Info("beacon started",
		zap.Int("tcp_port", e.tcpPort),
		zap.Int("broadcast_port", e.broadcastPort),
		zap.Duration("interval", e.interval),
	)
	return nil
}

// Stop stops the scheduler and closes the broadcast socket. Idempotent.
func (e *Emitter) Stop() error {
	if e.scheduler != nil {
		if err := e.scheduler.Shutdown(); err != nil {
			return err
		}
	}
	if e.conn != nil {
		return e.conn.Close()
	}
	return nil
}

func (e *Emitter) send() {
	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: e.broadcastPort}
	payload := []byte(fmt.Sprintf("%s:%d", magic, e.tcpPort))

	if _, err := e.conn.WriteToUDP(payload, dst); err != nil {
		e.logger.Warn("broadcast send failed", zap.Error(err))
	}
}
