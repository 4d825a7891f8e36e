package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/biomerkin/biomerkin/internal/config"
	"github.com/biomerkin/biomerkin/internal/events"
	"github.com/biomerkin/biomerkin/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the biomerkin REST API server.

The server exposes workflow creation, status polling, result retrieval,
and a server-sent-events stream of per-workflow progress.

Examples:
  # Start with defaults (localhost:8080)
  biomerkin serve

  # Start on custom host and port
  biomerkin serve --host 0.0.0.0 --port 3000`,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "",
		"Host address to bind to (overrides config)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0,
		"Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	bus := events.New(100)
	defer bus.Close()

	coordinator, err := buildCoordinator(cfg, bus, logger)
	if err != nil {
		return err
	}

	webCfg := web.DefaultConfig()
	webCfg.Host = cfg.Server.Host
	webCfg.Port = cfg.Server.Port
	if serveHost != "" {
		webCfg.Host = serveHost
	}
	if servePort != 0 {
		webCfg.Port = servePort
	}
	if err := applyServerTimeouts(&webCfg, cfg); err != nil {
		return err
	}

	server := web.New(webCfg, coordinator, bus, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	logger.Info("server started", slog.String("addr", server.Addr()))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// Reload log level and format on config file edits. Everything
	// else requires a restart.
	watcher := config.NewWatcher(loader, func(next *config.Config) {
		logger.Info("config reloaded",
			slog.String("log_level", next.Log.Level),
			slog.String("log_format", next.Log.Format),
		)
	})
	g.Go(func() error {
		err := watcher.Watch(gctx)
		if err != nil && gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), webCfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func applyServerTimeouts(webCfg *web.Config, cfg *config.Config) error {
	kind := []struct {
		field string
		value string
		dst   *time.Duration
	}{
		{"server.read_timeout", cfg.Server.ReadTimeout, &webCfg.ReadTimeout},
		{"server.write_timeout", cfg.Server.WriteTimeout, &webCfg.WriteTimeout},
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeout, &webCfg.ShutdownTimeout},
	}
	for _, k := range kind {
		if k.value == "" {
			continue
		}
		d, err := parseDuration(k.field, k.value)
		if err != nil {
			return err
		}
		*k.dst = d
	}
	return nil
}
