// Package main is the entry point for the lanfleet agent binary.
// It wires the internal packages together and starts the connection loop.
//
// Startup sequence:
//  1. Parse CLI flags / environment variables
//  2. Build logger
//  3. Build executor (installer/uninstaller dispatch)
//  4. Build runtime manager (dial-or-discover connection loop)
//  5. Block until SIGINT/SIGTERM, then graceful shutdown
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanfleet/lanfleet/agent/internal/executor"
	"github.com/lanfleet/lanfleet/agent/internal/runtime"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	server        string
	port          int
	broadcastPort int
	tempDir       string
	logLevel      string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:   "lanfleet-agent",
		Short: "lanfleet agent — LAN fleet management agent",
		Long: `lanfleet agent runs on each managed machine. It connects to the
controller over a persistent TCP session, reports system and software
inventory, and executes install/uninstall commands it receives.

With --server set, the agent dials that address directly. Without it,
the agent listens for the controller's UDP discovery beacon and
connects to whichever controller it hears first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().StringVar(&cfg.server, "server", envOrDefault("LANFLEET_SERVER", ""), "controller host to dial (empty = discovery mode)")
	root.PersistentFlags().IntVar(&cfg.port, "port", envIntOrDefault("LANFLEET_PORT", 8899), "controller TCP port")
	root.PersistentFlags().IntVar(&cfg.broadcastPort, "broadcast-port", envIntOrDefault("LANFLEET_BROADCAST_PORT", 8898), "UDP port to listen on for discovery beacons")
	root.PersistentFlags().StringVar(&cfg.tempDir, "temp-dir", envOrDefault("LANFLEET_TEMP_DIR", ""), "directory for received installer payloads (empty = OS default)")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("LANFLEET_LOG_LEVEL", "info"), "log level (debug, info, warn, error)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lanfleet-agent %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, cfg *config) error {
	logger, err := buildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rtCfg := runtime.DefaultConfig()
	rtCfg.ServerAddr = cfg.server
	rtCfg.ServerPort = cfg.port
	rtCfg.BroadcastPort = cfg.broadcastPort
	rtCfg.TempDir = cfg.tempDir

	if rtCfg.ServerAddr != "" {
		logger.Info("starting lanfleet agent",
			zap.String("version", version),
			zap.String("mode", "explicit"),
			zap.String("server", fmt.Sprintf("%s:%d", rtCfg.ServerAddr, rtCfg.ServerPort)),
		)
	} else {
		logger.Info("starting lanfleet agent",
			zap.String("version", version),
			zap.String("mode", "discovery"),
			zap.Int("broadcast_port", rtCfg.BroadcastPort),
		)
	}

	exec := executor.New()
	mgr := runtime.New(rtCfg, exec, logger)

	// Run blocks until ctx is cancelled (SIGINT/SIGTERM) or a fatal setup
	// error occurs (e.g. the discovery socket could not be bound).
	err = mgr.Run(ctx)

	logger.Info("lanfleet agent stopped")
	return err
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config

	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return defaultVal
	}
	return n
}
