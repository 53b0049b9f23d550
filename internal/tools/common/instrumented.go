package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/groupcal/internal/instrumentation"
	"github.com/teemow/groupcal/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with a span, metrics and
// audit logging.
//
// Usage:
//
//	s.AddTool(tool, common.InstrumentedToolHandler("group_calendar_status", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return InstrumentedEventToolHandler(toolName, "", sc, handler)
}

// InstrumentedEventToolHandler is like InstrumentedToolHandler but also
// records the calendar operation and the event id taken from the "id"
// argument.
func InstrumentedEventToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		start := time.Now()

		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithUser(sc.User(ctx))
		if operation != "" {
			id, _ := OptionalString(request.GetArguments(), "id")
			invocation.WithOperation(operation, id)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = errors.New(ResultText(result))
		}
		invocation.Complete(failure == nil, failure)
		instrumentation.EndSpan(span, failure)

		metrics.RecordToolInvocation(ctx, toolName, invocation.Status(), invocation.User, duration)
		auditLogger.LogToolInvocation(invocation)

		return result, err
	}
}

// ResultText concatenates the text content of a tool result.
func ResultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var out string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			out += tc.Text
		}
	}
	return out
}
