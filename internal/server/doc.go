// Package server hosts the groupcal MCP server: the shared ServerContext the
// tools run against, the streamable HTTP transport, health probes and the
// Prometheus metrics endpoint.
//
// The server acts on behalf of the locally signed-in user. Tokens come from
// the session package and are never accepted from MCP clients, which is why
// the HTTP transport binds to loopback by default.
package server
