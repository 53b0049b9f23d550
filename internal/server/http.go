package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/groupcal/internal/instrumentation"
)

// MCPPath is where the streamable HTTP transport is mounted.
const MCPPath = "/mcp"

// HTTPConfig configures the streamable HTTP transport.
type HTTPConfig struct {
	Addr string

	// AllowRemote permits listening on a non-loopback address. The server
	// acts with the signed-in user's token, so it binds to loopback unless
	// told otherwise.
	AllowRemote bool

	DisableStreaming bool

	Health  *HealthChecker
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// HTTPServer serves the MCP server over streamable HTTP.
type HTTPServer struct {
	addr       string
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer mounts mcpSrv at MCPPath plus the health probes.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, config HTTPConfig) (*HTTPServer, error) {
	if mcpSrv == nil {
		return nil, errors.New("mcp server is required")
	}
	if err := checkListenAddr(config.Addr, config.AllowRemote); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []mcpserver.StreamableHTTPOption{mcpserver.WithEndpointPath(MCPPath)}
	if config.DisableStreaming {
		opts = append(opts, mcpserver.WithDisableStreaming(true))
	}
	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv, opts...)

	mux := http.NewServeMux()
	mux.Handle(MCPPath, instrumentHTTP(config.Metrics, streamable))
	if config.Health != nil {
		config.Health.RegisterHealthEndpoints(mux)
	}

	return &HTTPServer{
		addr:   config.Addr,
		logger: logger,
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// Handler returns the server's mux.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and blocks until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.logger.Info("starting MCP HTTP server", slog.String("addr", ln.Addr().String()), slog.String("path", MCPPath))
	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// instrumentHTTP records a request metric per call. The writer handed to
// next keeps the optional interfaces (Flusher, Hijacker) of the original.
func instrumentHTTP(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, MCPPath, m.Code, m.Duration)
	})
}

// checkListenAddr rejects non-loopback addresses unless allowRemote is set.
func checkListenAddr(addr string, allowRemote bool) error {
	if addr == "" {
		return errors.New("listen address cannot be empty")
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if allowRemote {
		return nil
	}
	if host == "localhost" {
		return nil
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return nil
	}
	return fmt.Errorf("refusing to listen on non-loopback address %q without --allow-remote", addr)
}
