// Package calendar_tools exposes the group calendar through MCP tools.
//
// Every tool runs against the shared syncer.Controller of the ServerContext,
// so reads see the same window and permission state as the terminal UI
// would. Write tools are only registered when the server is not read-only,
// and they refuse to run unless the signed-in user is elevated.
package calendar_tools
