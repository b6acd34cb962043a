// Package mcp serves the Unwind tools over the Model Context Protocol.
//
// # Protocol
//
// JSON-RPC 2.0 over a single HTTP endpoint:
//
//   - POST /mcp - initialize, ping, tools/list, tools/call, notifications
//   - DELETE /mcp - end a session
//
// Notifications (requests without an id) are accepted with 202 and no body.
// Request bodies are limited to 1 MiB.
//
// # Authentication
//
// Every request carries a Supabase-issued token:
//
//	Authorization: Bearer <jwt>
//
// A missing or invalid token is rejected with HTTP 401 before any JSON-RPC
// handling. The tenant is the token's subject; tool arguments never choose it.
//
// # Sessions
//
// initialize returns an Mcp-Session-Id header that later requests must echo.
// Sessions belong to the tenant that created them. A session opened with
// ?agent=data (or planning, reassurance) only lists and calls that agent's
// tools plus the shared mutation tools.
//
// # Errors
//
//   - unknown tool or invalid arguments: -32602 with the validation message
//   - timeouts and database failures: -32603 with a generic message
//
// Database error detail stays in the server logs.
package mcp
