// Package cmd implements the command-line interface for groupcal.
//
// This package provides the following commands:
//   - tui: interactive terminal calendar (the default)
//   - events: list, create, update, delete and export events
//   - serve: start the MCP server for AI assistants
//   - generate-docs: generate markdown documentation for the MCP tools
//   - version: display version information
package cmd
