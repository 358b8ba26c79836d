package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/netprobe/config"
	"github.com/petal-labs/netprobe/server"
	"github.com/petal-labs/netprobe/tool/mcp"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnostic tools over stdio or HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().StringP("transport", "t", config.TransportStdio, "Transport: stdio | http")
	cmd.Flags().IntP("port", "p", 8000, "HTTP listen port")
	cmd.Flags().String("host", "", "HTTP listen host")
	cmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origin (repeatable)")
	cmd.Flags().Int64("max-body", 0, "Max HTTP request body size in bytes")
	cmd.Flags().Float64("rate-limit", 0, "Max tool invocations per second over HTTP (0 disables)")
	cmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	cmd.Flags().String("otlp-endpoint", "", "Export spans to this OTLP/HTTP endpoint (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err := applyServeFlags(cmd, &cfg); err != nil {
		return err
	}

	// stdout carries the protocol in stdio mode, so logs always go to stderr.
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())
	version := cmd.Root().Version

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := buildRuntime(ctx, cfg, version, logger)
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.Close(shutdownCtx)
	}()

	info := mcp.ServerInfo{Name: cfg.Server.Name, Version: version}

	if cfg.Server.Transport == config.TransportStdio {
		stream := mcp.NewStreamServer(mcp.StreamServerConfig{
			Handler: mcp.NewHandler(mcp.HandlerConfig{
				Dispatcher: rt.dispatcher,
				ServerInfo: info,
				Logger:     logger,
			}),
			Logger:      logger,
			Concurrency: cfg.Server.StreamConcurrency,
		})
		if err := stream.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
			return exitError(exitRuntime, "stdio server error: %v", err)
		}
		return nil
	}

	httpMetrics, err := rt.providers.HTTPMetrics()
	if err != nil {
		return exitError(exitRuntime, "initializing http metrics: %v", err)
	}
	apiServer := server.NewServer(server.ServerConfig{
		Dispatcher:  rt.dispatcher,
		Info:        info,
		Metrics:     rt.providers.MetricsHandler(),
		Observer:    httpMetrics,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		MaxBody:     cfg.HTTP.MaxBodyBytes,
		RateLimit:   cfg.HTTP.RateLimit,
		RateBurst:   cfg.HTTP.RateBurst,
		Logger:      logger,
	})

	addr := cfg.Server.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           apiServer.Handler(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr, "version", version)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}

// applyServeFlags overrides config values with explicitly set flags.
func applyServeFlags(cmd *cobra.Command, cfg *config.File) error {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		cfg.Server.Transport, _ = flags.GetString("transport")
	}
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		cfg.HTTP.CORSOrigins, _ = flags.GetStringSlice("cors-origin")
	}
	if flags.Changed("max-body") {
		cfg.HTTP.MaxBodyBytes, _ = flags.GetInt64("max-body")
	}
	if flags.Changed("rate-limit") {
		cfg.HTTP.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("metrics") {
		cfg.Telemetry.Metrics, _ = flags.GetBool("metrics")
	}
	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint, _ = flags.GetString("otlp-endpoint")
	}
	if err := cfg.Validate(); err != nil {
		return exitError(exitValidation, "%v", err)
	}
	return nil
}
