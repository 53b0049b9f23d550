package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/logging"
	"github.com/teemow/groupcal/internal/server"
	"github.com/teemow/groupcal/internal/tools/calendar_tools"
)

// Transports supported by serve.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

type serveOptions struct {
	transport        string
	httpAddr         string
	allowRemote      bool
	disableStreaming bool
	yolo             bool
	metrics          MetricsConfig
}

func newServeCmd() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the group calendar as tools.

The server acts on behalf of the signed-in user. Sign-in happens once at
startup; the token is kept in memory for the lifetime of the process.

Supported transports:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP, bound to loopback unless --allow-remote is set

Write tools (save and delete) are only registered with --yolo.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("metrics-enabled") && os.Getenv("METRICS_ENABLED") == "true" {
				opts.metrics.Enabled = true
			}
			if !cmd.Flags().Changed("metrics-addr") {
				if addr := os.Getenv("METRICS_ADDR"); addr != "" {
					opts.metrics.Addr = addr
				}
			}
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", TransportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "127.0.0.1:8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().BoolVar(&opts.allowRemote, "allow-remote", false, "Allow the HTTP transport to listen on a non-loopback address")
	cmd.Flags().BoolVar(&opts.disableStreaming, "disable-streaming", false, "Disable streaming for streamable-http transport")
	cmd.Flags().BoolVar(&opts.yolo, "yolo", false, "Enable write operations (save and delete events)")
	cmd.Flags().BoolVar(&opts.metrics.Enabled, "metrics-enabled", false, "Start the Prometheus metrics server (streamable-http only, env METRICS_ENABLED)")
	cmd.Flags().StringVar(&opts.metrics.Addr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address (env METRICS_ADDR)")

	return cmd
}

func validateTransport(transport string) error {
	switch transport {
	case TransportStdio, TransportStreamableHTTP:
		return nil
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)", transport, TransportStdio, TransportStreamableHTTP)
	}
}

func runServe(parent context.Context, opts serveOptions) error {
	if err := validateTransport(opts.transport); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}

	shutdownCtx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}

	// stdout carries the protocol in stdio mode.
	a, err := newApp(appOptions{
		logOut:          os.Stderr,
		instrumentation: provider,
		audit:           instrConfig.AuditLogging,
	})
	if err != nil {
		return err
	}
	logger := a.logger

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	account, err := a.signedIn(shutdownCtx)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	logger.Info("signed in", logging.UserHash(account.Username))

	readOnly := !opts.yolo
	sc, err := server.NewServerContext(shutdownCtx, server.Options{
		Controller: a.ctrl,
		Accounts:   a.session,
		ReadOnly:   readOnly,
		Metrics:    a.metrics,
		Audit:      a.audit,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := sc.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("groupcal", version,
		mcpserver.WithToolCapabilities(true),
	)

	if readOnly {
		logger.Info("starting server in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with write operations enabled")
	}

	if err := calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly); err != nil {
		return fmt.Errorf("failed to register calendar tools: %w", err)
	}

	switch opts.transport {
	case TransportStdio:
		return runStdioServer(mcpSrv)
	default:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, sc, provider, opts, logger)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// startMetricsServer starts the metrics server and waits until it listens.
func startMetricsServer(ms *server.MetricsServer, timeout time.Duration) error {
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := ms.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return nil
	case err := <-metricsErr:
		if err == nil {
			return errors.New("metrics server stopped during startup")
		}
		return fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(timeout):
		return errors.New("metrics server startup timed out")
	}
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, provider *instrumentation.Provider, opts serveOptions, logger *slog.Logger) error {
	health := server.NewHealthChecker(sc)

	var metricsServer *server.MetricsServer
	if opts.metrics.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metrics.Addr,
			InstrumentationProvider: provider,
			Health:                  health,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		if err := startMetricsServer(metricsServer, 5*time.Second); err != nil {
			return err
		}
		logger.Info("metrics server started", slog.String("addr", metricsServer.Addr()))
	}

	httpServer, err := server.NewHTTPServer(mcpSrv, server.HTTPConfig{
		Addr:             opts.httpAddr,
		AllowRemote:      opts.allowRemote,
		DisableStreaming: opts.disableStreaming,
		Health:           health,
		Metrics:          sc.Metrics(),
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			runErr = fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			runErr = fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}

	if runErr == nil {
		logger.Info("HTTP server gracefully stopped")
	}
	return runErr
}
