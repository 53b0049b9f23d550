package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/groupcal/internal/logging"
)

// ToolInvocation captures one MCP tool call for audit logging.
type ToolInvocation struct {
	Tool string

	// User is the signed-in user principal name. It is PII and only logged
	// verbatim when the audit logger includes PII.
	User string

	Operation string
	EventID   string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string
}

// NewToolInvocation creates a ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		StartTime: time.Now(),
	}
}

// WithUser sets the signed-in user.
func (ti *ToolInvocation) WithUser(user string) *ToolInvocation {
	ti.User = user
	return ti
}

// WithOperation sets the calendar operation and target event.
func (ti *ToolInvocation) WithOperation(operation, eventID string) *ToolInvocation {
	ti.Operation = operation
	ti.EventID = eventID
	return ti
}

// WithSpanContext copies the trace context of the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
	}
	return ti
}

// Complete records the duration and outcome.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

func (ti *ToolInvocation) attrs(includePII bool) []any {
	args := []any{
		slog.String("tool", ti.Tool),
		userAttr(ti.User, includePII),
		slog.Duration(logging.KeyDuration, ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.Operation != "" {
		args = append(args, slog.String(logging.KeyOperation, ti.Operation))
	}
	if ti.EventID != "" {
		args = append(args, slog.String(logging.KeyEventID, ti.EventID))
	}
	if ti.TraceID != "" {
		args = append(args, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		args = append(args, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		args = append(args, slog.String(logging.KeyError, ti.Error))
	}
	return args
}

// EventChange is one write against the group calendar.
type EventChange struct {
	Operation string
	GroupID   string
	EventID   string
	Subject   string
	User      string
	Err       error
}

// AuditLogger writes structured audit records for tool calls and calendar
// writes.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an enabled AuditLogger that hashes user names.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

// NewAuditLoggerWithConfig creates an AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs "tool_executed" on success and "tool_failed" otherwise.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	if ti.Success {
		al.logger.Info("tool_executed", ti.attrs(al.includePII)...)
	} else {
		al.logger.Warn("tool_failed", ti.attrs(al.includePII)...)
	}
}

// LogEventChange logs "event_changed" or "event_change_failed".
func (al *AuditLogger) LogEventChange(ctx context.Context, ch EventChange) {
	if al == nil || !al.enabled {
		return
	}

	args := []any{
		slog.String(logging.KeyOperation, ch.Operation),
		slog.String(logging.KeyGroup, ch.GroupID),
		userAttr(ch.User, al.includePII),
	}
	if ch.EventID != "" {
		args = append(args, slog.String(logging.KeyEventID, ch.EventID))
	}
	if al.includePII && ch.Subject != "" {
		args = append(args, slog.String("subject", ch.Subject))
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		args = append(args, slog.String("trace_id", traceID))
	}

	if ch.Err != nil {
		args = append(args, logging.Err(ch.Err))
		al.logger.WarnContext(ctx, "event_change_failed", args...)
		return
	}
	al.logger.InfoContext(ctx, "event_changed", args...)
}

func userAttr(user string, includePII bool) slog.Attr {
	if includePII {
		return slog.String("user", user)
	}
	return logging.UserHash(user)
}
