// Package discovery implements the agent side of UDP beacon discovery: bind
// the broadcast port, parse incoming "<MAGIC>:<tcpPort>" datagrams, and
// report the controller's endpoint the first time a valid beacon arrives.
package discovery

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Magic is the fixed prefix every valid beacon datagram starts with.
const Magic = "LANMGR_SERVER"

// Endpoint is a discovered controller address.
type Endpoint struct {
	Host string
	Port int
}

// Listener binds the broadcast port and yields discovered endpoints.
type Listener struct {
	conn   *net.UDPConn
	logger *zap.Logger
}

// Listen binds UDP port on all interfaces with address-reuse semantics so
// multiple agents on the same host can share the discovery port, matching
// the original's ShareAddress|ReuseAddressHint socket options. The reuse
// option is set on the raw socket via lc.Control before bind, since
// net.ListenUDP alone has no way to request it.
func Listen(port int, logger *zap.Logger) (*Listener, error) {
	lc := net.ListenConfig{Control: setReuseAddr}

	pc, err := lc.ListenPacket(context.Background(), "udp4", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("discovery: bind broadcast port %d: %w", port, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		pc.Close() //nolint:errcheck
		return nil, fmt.Errorf("discovery: bind broadcast port %d: unexpected connection type %T", port, pc)
	}

	return &Listener{conn: conn, logger: logger.Named("discovery")}, nil
}

// Close releases the underlying socket.
func (l *Listener) Close() error {
	return l.conn.Close()
}

// Next blocks until a valid beacon datagram arrives or ctx is cancelled.
// Malformed datagrams are logged and skipped; the call keeps reading
// until a parseable one arrives.
func (l *Listener) Next(ctx context.Context) (Endpoint, error) {
	buf := make([]byte, 512)
	for {
		if ctx.Err() != nil {
			return Endpoint{}, ctx.Err()
		}

		deadline, ok := ctx.Deadline()
		if !ok {
			// No deadline on ctx: poll with a short read timeout so we
			// still notice ctx cancellation promptly.
			deadline = time.Now().Add(1 * time.Second)
		}
		_ = l.conn.SetReadDeadline(deadline)

		n, raddr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return Endpoint{}, ctx.Err()
			}
			continue
		}

		ep, ok := parseBeacon(string(buf[:n]), raddr)
		if !ok {
			l.logger.Debug("ignoring malformed beacon datagram", zap.String("from", raddr.String()))
			continue
		}
		return ep, nil
	}
}

// parseBeacon extracts (senderIP, advertisedTcpPort) from a "<MAGIC>:<port>"
// datagram, normalizing an IPv4-mapped-IPv6 sender address to plain IPv4.
func parseBeacon(payload string, from *net.UDPAddr) (Endpoint, bool) {
	prefix := Magic + ":"
	if !strings.HasPrefix(payload, prefix) {
		return Endpoint{}, false
	}

	portStr := strings.TrimPrefix(payload, prefix)
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, false
	}

	return Endpoint{Host: stripV4MappedPrefix(from.IP.String()), Port: port}, true
}

// stripV4MappedPrefix removes a "::ffff:" IPv4-mapped-IPv6 prefix from an
// address string, leaving plain dotted-quad IPv4 untouched.
func stripV4MappedPrefix(addr string) string {
	const prefix = "::ffff:"
	if strings.HasPrefix(addr, prefix) {
		return strings.TrimPrefix(addr, prefix)
	}
	return addr
}

