package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lanfleet/lanfleet/server/internal/api"
	"github.com/lanfleet/lanfleet/server/internal/beacon"
	"github.com/lanfleet/lanfleet/server/internal/controller"
	"github.com/lanfleet/lanfleet/server/internal/eventstream"
	"github.com/lanfleet/lanfleet/server/internal/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type config struct {
	tcpPort           int
	broadcastPort     int
	httpAddr          string
	heartbeatInterval time.Duration
	heartbeatTimeout  time.Duration
	beaconInterval    time.Duration
	logLevel          string
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
		Use:   "lanfleet-server",
		Short: "lanfleet-server — central fleet controller",
		Long: `lanfleet-server is the central controller of the lanfleet fabric.
It accepts agent TCP connections, broadcasts UDP discovery beacons, and
exposes a REST + event-stream API for the operator CLI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}

	root.AddCommand(newVersionCmd())

	root.PersistentFlags().IntVar(&cfg.tcpPort, "tcp-port", envIntOrDefault("LANFLEET_TCP_PORT", 8899), "TCP port agents connect to")
	root.PersistentFlags().IntVar(&cfg.broadcastPort, "broadcast-port", envIntOrDefault("LANFLEET_BROADCAST_PORT", 8898), "UDP port the discovery beacon broadcasts on")
	root.PersistentFlags().StringVar(&cfg.httpAddr, "http-addr", envOrDefault("LANFLEET_HTTP_ADDR", ":8080"), "REST API, event stream, and metrics listen address")
	root.PersistentFlags().DurationVar(&cfg.heartbeatInterval, "heartbeat-interval", 5*time.Second, "Expected agent heartbeat interval")
	root.PersistentFlags().DurationVar(&cfg.heartbeatTimeout, "heartbeat-timeout", 15*time.Second, "Session is considered dead after this much silence")
	root.PersistentFlags().DurationVar(&cfg.beaconInterval, "beacon-interval", 3*time.Second, "Discovery beacon broadcast interval")
	root.PersistentFlags().StringVar(&cfg.logLevel, "log-level", envOrDefault("LANFLEET_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lanfleet-server %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context, cfg *config) error {
	logger, err := buildLogger(cfg.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting lanfleet server",
		zap.String("version", version),
		zap.Int("tcp_port", cfg.tcpPort),
		zap.Int("broadcast_port", cfg.broadcastPort),
		zap.String("http_addr", cfg.httpAddr),
	)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- 1. Event stream hub ---
	hub := eventstream.NewHub()
	go hub.Run(ctx)
	sink := eventstream.NewSink(hub)

	// --- 2. Metrics, wrapping the event sink ---
	collector := metrics.NewCollector(sink)

	// --- 3. Controller ---
	mgr := controller.New(controller.Config{
		Port:              cfg.tcpPort,
		HeartbeatInterval: cfg.heartbeatInterval,
		HeartbeatTimeout:  cfg.heartbeatTimeout,
	}, collector, logger)
	mgr.SetObserver(collector)

	// --- 4. Discovery beacon ---
	beaconEmitter := beacon.New(cfg.tcpPort, cfg.broadcastPort, cfg.beaconInterval, logger)

	// --- 5. HTTP server: REST API + event stream + metrics ---
	router := api.NewRouter(api.RouterConfig{
		Manager: mgr,
		Hub:     hub,
		Logger:  logger,
	})
	mux := http.NewServeMux()
	mux.Handle("/", router)
	mux.Handle("/metrics", collector.Handler())

	httpSrv := &http.Server{
		Addr:         cfg.httpAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mgr.Start(gctx)
	})

	g.Go(func() error {
		if err := beaconEmitter.Start(); err != nil {
			return fmt.Errorf("beacon: %w", err)
		}
		<-gctx.Done()
		return beaconEmitter.Stop()
	})

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	<-ctx.Done()
	logger.Info("shutting down lanfleet server")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("shutdown completed with errors", zap.Error(err))
	}

	logger.Info("lanfleet server stopped")
	return nil
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
