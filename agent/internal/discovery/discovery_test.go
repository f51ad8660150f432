package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListenBindsWithReuseAddr(t *testing.T) {
	l, err := Listen(0, zap.NewNop())
	require.NoError(t, err)
	defer l.Close()

	// A second listener on the same ephemeral port would normally fail
	// without SO_REUSEADDR/SO_REUSEPORT; binding to port 0 here just
	// exercises the Control hook without requiring a free, known port.
	assert.NotNil(t, l.conn.LocalAddr())
}

func TestParseBeaconValid(t *testing.T) {
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50")}
	ep, ok := parseBeacon("LANMGR_SERVER:8899", from)
	assert.True(t, ok)
	assert.Equal(t, Endpoint{Host: "192.168.1.50", Port: 8899}, ep)
}

func TestParseBeaconStripsV4MappedPrefix(t *testing.T) {
	from := &net.UDPAddr{IP: net.ParseIP("::ffff:10.0.0.5")}
	ep, ok := parseBeacon("LANMGR_SERVER:8899", from)
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", ep.Host)
}

func TestParseBeaconRejectsWrongMagic(t *testing.T) {
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50")}
	_, ok := parseBeacon("SOMETHING_ELSE:8899", from)
	assert.False(t, ok)
}

func TestParseBeaconRejectsMalformedPort(t *testing.T) {
	from := &net.UDPAddr{IP: net.ParseIP("192.168.1.50")}
	_, ok := parseBeacon("LANMGR_SERVER:notaport", from)
	assert.False(t, ok)
}
