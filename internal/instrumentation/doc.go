// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for groupcal.
//
// # Metrics
//
//   - graph_api_operations_total / graph_api_operation_duration_seconds:
//     Microsoft Graph calls by resource, operation and status
//   - token_acquisitions_total: silent and interactive token requests by result
//   - calendar_refresh_total / calendar_events_loaded: refresh cycles and the
//     size of the loaded event collection
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: MCP tool calls
//   - http_requests_total / http_request_duration_seconds: streamable-http
//     transport requests
//
// # Tracing
//
// Spans are created for Graph calls (graph.<resource>.<operation>) and MCP
// tool invocations (tool.<name>).
//
// # Configuration
//
//   - INSTRUMENTATION_ENABLED: enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - AUDIT_LOGGING_ENABLED / AUDIT_LOGGING_INCLUDE_PII: audit log behavior
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	m := provider.Metrics()
//	m.RecordGraphOperation(ctx, instrumentation.ResourceEvents,
//		instrumentation.OperationList, instrumentation.StatusSuccess, time.Since(start))
package instrumentation
