package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/groupcal/internal/logging"
)

func newJSONLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestToolInvocation_NewAndComplete(t *testing.T) {
	ti := NewToolInvocation("group_calendar_save_event")
	assert.Equal(t, "group_calendar_save_event", ti.Tool)
	assert.False(t, ti.StartTime.IsZero())

	time.Sleep(time.Millisecond)
	ti.Complete(true, nil)

	assert.True(t, ti.Success)
	assert.Empty(t, ti.Error)
	assert.Greater(t, ti.Duration, time.Duration(0))
	assert.Equal(t, StatusSuccess, ti.Status())
}

func TestToolInvocation_CompleteWithError(t *testing.T) {
	ti := NewToolInvocation("tool").Complete(false, errors.New("remote call failed"))

	assert.False(t, ti.Success)
	assert.Equal(t, "remote call failed", ti.Error)
	assert.Equal(t, StatusError, ti.Status())
}

func TestToolInvocation_MethodChaining(t *testing.T) {
	ti := NewToolInvocation("tool").
		WithUser("jane@contoso.com").
		WithOperation(OperationDelete, "e1").
		WithSpanContext(context.Background())

	assert.Equal(t, "jane@contoso.com", ti.User)
	assert.Equal(t, OperationDelete, ti.Operation)
	assert.Equal(t, "e1", ti.EventID)
	// no active span
	assert.Empty(t, ti.TraceID)
	assert.Empty(t, ti.SpanID)
}

func TestAuditLogger_LogToolInvocation(t *testing.T) {
	logger, buf := newJSONLogger()
	al := NewAuditLogger(logger)

	al.LogToolInvocation(NewToolInvocation("tool").WithUser("jane@contoso.com").Complete(true, nil))

	rec := decodeLine(t, buf)
	assert.Equal(t, "tool_executed", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "audit", rec["component"])
	assert.Equal(t, logging.AnonymizeUser("jane@contoso.com"), rec[logging.KeyUserHash])
	assert.NotContains(t, buf.String(), "jane@contoso.com")
}

func TestAuditLogger_LogToolInvocation_Failure(t *testing.T) {
	logger, buf := newJSONLogger()
	al := NewAuditLogger(logger)

	al.LogToolInvocation(NewToolInvocation("tool").Complete(false, errors.New("nope")))

	rec := decodeLine(t, buf)
	assert.Equal(t, "tool_failed", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "nope", rec[logging.KeyError])
}

func TestAuditLogger_IncludePII(t *testing.T) {
	logger, buf := newJSONLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})

	al.LogEventChange(context.Background(), EventChange{
		Operation: OperationCreate,
		GroupID:   "g-1",
		EventID:   "e1",
		Subject:   "Standup",
		User:      "jane@contoso.com",
	})

	rec := decodeLine(t, buf)
	assert.Equal(t, "event_changed", rec["msg"])
	assert.Equal(t, "jane@contoso.com", rec["user"])
	assert.Equal(t, "Standup", rec["subject"])
	assert.Equal(t, "g-1", rec[logging.KeyGroup])
}

func TestAuditLogger_LogEventChange_Failure(t *testing.T) {
	logger, buf := newJSONLogger()
	al := NewAuditLogger(logger)

	al.LogEventChange(context.Background(), EventChange{
		Operation: OperationUpdate,
		GroupID:   "g-1",
		EventID:   "e1",
		Subject:   "Standup",
		Err:       errors.New("remote call failed (403): forbidden"),
	})

	rec := decodeLine(t, buf)
	assert.Equal(t, "event_change_failed", rec["msg"])
	assert.Equal(t, "remote call failed (403): forbidden", rec[logging.KeyError])
	// subjects are user content and stay out of the log without PII
	assert.NotContains(t, rec, "subject")
}

func TestAuditLogger_DisabledAndNil(t *testing.T) {
	logger, buf := newJSONLogger()
	al := NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: false})
	al.LogToolInvocation(NewToolInvocation("tool").Complete(true, nil))
	al.LogEventChange(context.Background(), EventChange{Operation: OperationDelete})
	assert.Empty(t, buf.String())

	var nilLogger *AuditLogger
	nilLogger.LogToolInvocation(NewToolInvocation("tool"))
	nilLogger.LogEventChange(context.Background(), EventChange{})
}
