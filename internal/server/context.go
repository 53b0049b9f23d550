package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/session"
	"github.com/teemow/groupcal/internal/syncer"
)

// AccountSource reports the signed-in account.
type AccountSource interface {
	Account(ctx context.Context) (session.Account, error)
}

// Options configures a ServerContext.
type Options struct {
	Controller *syncer.Controller
	Accounts   AccountSource

	// ReadOnly hides the tools that change the calendar.
	ReadOnly bool

	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
	Logger  *slog.Logger
}

// ServerContext holds what the MCP tools share: the calendar controller, the
// account source and the instrumentation sinks.
type ServerContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	controller *syncer.Controller
	accounts   AccountSource
	readOnly   bool
	metrics    *instrumentation.Metrics
	audit      *instrumentation.AuditLogger
	logger     *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context bound to ctx.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Controller == nil {
		return nil, errors.New("calendar controller is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		controller: opts.Controller,
		accounts:   opts.Accounts,
		readOnly:   opts.ReadOnly,
		metrics:    opts.Metrics,
		audit:      opts.Audit,
		logger:     logger.With(slog.String("component", "server")),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Controller returns the calendar controller.
func (sc *ServerContext) Controller() *syncer.Controller {
	return sc.controller
}

// Metrics returns the metrics sink. It may be nil; all recorders accept a nil
// receiver.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, which may be nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.audit
}

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// ReadOnly reports whether write tools are disabled.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// User returns the username of the signed-in account, or "" when nobody is
// signed in or no account source is configured.
func (sc *ServerContext) User(ctx context.Context) string {
	if sc.accounts == nil {
		return ""
	}
	account, err := sc.accounts.Account(ctx)
	if err != nil {
		return ""
	}
	return account.Username
}

// IsShutdown reports whether Shutdown was called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	sc.controller.CloseEditor()
	return nil
}
