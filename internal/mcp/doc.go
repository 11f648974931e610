// Package mcp implements the Model Context Protocol (MCP) server for searchsync.
//
// The server exposes three tools to MCP clients:
//   - resolve_zone: Find the delivery zone containing a coordinate
//   - sync_index: Run a configured sync job into its search index
//   - get_status: List recent runs from the run ledger
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started with:
//
//	searchsync serve
//
// It reads protocol messages on stdin and writes responses to stdout, so all
// logging goes to stderr.
//
// # Tool: resolve_zone
//
//	Request:
//	{
//	  "name": "resolve_zone",
//	  "arguments": {"lat": 19.0760, "lon": 72.8777}
//	}
//
//	Response:
//	{
//	  "found": true,
//	  "zone_id": 4
//	}
//
// # Tool: sync_index
//
//	Request:
//	{
//	  "name": "sync_index",
//	  "arguments": {"job": "food", "mode": "patch", "embed": true, "resume": false}
//	}
//
//	Response:
//	{
//	  "run_id": "2b4c...",
//	  "processed": 12840,
//	  "succeeded": 12831,
//	  "failed": 9,
//	  "batches": 26,
//	  "elapsed_ms": 48211,
//	  "docs_per_second": 266.3,
//	  "truncated": false
//	}
//
// A run that stops early because the source failed is still reported, with
// "truncated": true, the error, and the token to resume from.
//
// # Tool: get_status
//
//	Request:
//	{
//	  "name": "get_status",
//	  "arguments": {"job": "food", "limit": 5}
//	}
//
// # Error Codes
//
//   - -32602: Invalid parameters
//   - -32603: Internal error
//   - -32001: Unknown job
//   - -32002: A sync is already running for the index
//   - -32003: Run ledger disabled
//   - -32004: A dependency is unreachable
package mcp
