// Package driving provides interfaces for inbound adapters
// (primary ports): the contracts the CLI, MCP server and watcher consume.
package driving
