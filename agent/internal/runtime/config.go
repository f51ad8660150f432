package runtime

import "time"

// Config holds everything needed to run the agent's connection lifecycle.
type Config struct {
	// ServerAddr, when non-empty, is the explicit controller host to dial
	// on ServerPort. When empty the agent enters discovery mode instead.
	ServerAddr string
	ServerPort int

	// BroadcastPort is the UDP port the agent binds in discovery mode to
	// receive the controller's beacon.
	BroadcastPort int

	// TempDir is where incoming file-transfer payloads are written before
	// the package executor runs against them.
	TempDir string

	// HeartbeatInterval is how often the agent sends HEARTBEAT once
	// connected.
	HeartbeatInterval time.Duration

	// ReconnectDelay is the fixed delay before retrying after a
	// disconnect in explicit mode, matching the original implementation's
	// 5-second reconnect timer (not an exponential backoff — the wire
	// protocol's liveness model assumes a short fixed retry).
	ReconnectDelay time.Duration
}

// DefaultConfig returns a Config using the protocol's documented defaults.
func DefaultConfig() Config {
	return Config{
		BroadcastPort:     8898,
		TempDir:           "",
		HeartbeatInterval: 5 * time.Second,
		ReconnectDelay:    5 * time.Second,
	}
}
