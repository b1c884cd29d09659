// Package server implements the MCP (Model Context Protocol) server for the
// bubble tracer.
//
// This package provides a JSON-RPC 2.0 server that exposes balloon callout
// detection, leader tracing and dimension matching through the MCP protocol,
// so that an assistant can inspect engineering drawings one step at a time.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - bubble_detect: Full run over one page: bubbles, leader directions,
//     capture regions and the dimension map
//   - bubble_capture_box: Place and crop the capture box of one step
//   - bubble_overlay: Debug image with bubbles, numbers, rays and boxes
//   - dimension_confidence: Compare two dimension strings
//
// # Page Caching
//
// Rendered pages are cached by path, page and DPI, so a bubble_detect call
// followed by bubble_capture_box calls on the same drawing renders it once.
// The cache persists for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// A validator failure during bubble_detect is not a tool error: the
// returned document carries status "error" and whatever was completed.
//
// # Usage
//
//	srv := server.New(cfg, log, server.Options{Validator: v})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
