//go:build windows

package discovery

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// setReuseAddr is the net.ListenConfig.Control hook that sets SO_REUSEADDR
// on the raw socket before bind. Windows has no SO_REUSEPORT equivalent;
// SO_REUSEADDR alone is enough for a second agent process on the same host
// to share the broadcast port.
func setReuseAddr(_, _ string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
