// ABOUTME: MCP-compatible HTTP server exposing the Unwind tools to agent runtimes
// ABOUTME: JSON-RPC over Streamable HTTP with bearer auth and tenant-bound sessions

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/unwind-gateway/internal/auth"
	"github.com/2389/unwind-gateway/internal/packs"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2025-03-26": true,
	"2025-06-18": true,
	"2025-11-25": true,
}

// latestProtocolVersion is the version we advertise in initialize responses
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// DefaultSessionTTL bounds how long an idle session is kept.
const DefaultSessionTTL = 24 * time.Hour

// JSON-RPC 2.0 types

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Standard JSON-RPC error codes
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603
)

// MCP-specific types

// MCPToolInfo represents an MCP tool definition.
type MCPToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// MCPListToolsResult is the result for tools/list.
type MCPListToolsResult struct {
	Tools []MCPToolInfo `json:"tools"`
}

// MCPCallToolParams are the params for tools/call.
type MCPCallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// MCPCallToolResult is the result for tools/call.
type MCPCallToolResult struct {
	Content           []MCPContent    `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
	IsError           bool            `json:"isError,omitempty"`
}

// MCPContent represents content in a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// mcpSession tracks an initialized client. A session belongs to the tenant that
// created it and, optionally, to one agent group.
type mcpSession struct {
	id              string
	tenantID        string
	agent           string
	protocolVersion string
	lastSeen        time.Time
}

// restricted reports whether the session only sees one agent group's tools.
func (s *mcpSession) restricted() bool {
	return s.agent != ""
}

// sessionStore manages active MCP sessions (in-memory).
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*mcpSession
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*mcpSession),
	}
}

func (s *sessionStore) create(tenantID, agent, protocolVersion string) *mcpSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	sess := &mcpSession{
		id:              uuid.New().String(),
		tenantID:        tenantID,
		agent:           agent,
		protocolVersion: protocolVersion,
		lastSeen:        s.now(),
	}
	s.sessions[sess.id] = sess
	return sess
}

// get returns the session when it exists, has not expired, and belongs to tenantID.
func (s *sessionStore) get(id, tenantID string) (*mcpSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.now().Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	if sess.tenantID != tenantID {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess, true
}

func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *sessionStore) pruneLocked() {
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}

// Config holds configuration for the MCP server.
type Config struct {
	Registry      *packs.Registry
	Router        *packs.Router
	Logger        *slog.Logger
	TokenVerifier auth.TokenVerifier
	SessionTTL    time.Duration
	ServerName    string
	ServerVersion string
}

// Server implements MCP-compatible HTTP endpoints for agent runtimes.
type Server struct {
	registry *packs.Registry
	router   *packs.Router
	logger   *slog.Logger
	verifier auth.TokenVerifier
	sessions *sessionStore
	name     string
	version  string
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("router is required")
	}
	if cfg.TokenVerifier == nil {
		return nil, errors.New("token verifier is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	name := cfg.ServerName
	if name == "" {
		name = "unwind-gateway"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	return &Server{
		registry: cfg.Registry,
		router:   cfg.Router,
		logger:   logger.With("component", "mcp"),
		verifier: cfg.TokenVerifier,
		sessions: newSessionStore(ttl),
		name:     name,
		version:  version,
	}, nil
}

// Handler returns the MCP endpoint wrapped in bearer token authentication.
func (s *Server) Handler() http.Handler {
	return auth.HTTPAuthMiddleware(s.verifier, s.logger)(http.HandlerFunc(s.handleMCP))
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", s.Handler())
}

// handleMCP is the single MCP endpoint. Server-initiated streams are not
// offered, so GET is refused.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session. Only the owning tenant may end it.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	tenantID := auth.MustTenantFromContext(r.Context())
	if _, ok := s.sessions.get(sessionID, tenantID); !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	s.sessions.delete(sessionID)
	s.logger.Info("session terminated", "session_id", sessionID, "tenant_id", tenantID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.MustTenantFromContext(r.Context())
	sessionID := r.Header.Get("Mcp-Session-Id")
	protoVersion := r.Header.Get("Mcp-Protocol-Version")

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "failed to read request body", nil)
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendJSONRPCError(w, nil, JSONRPCInvalidRequest, "request body too large", nil)
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendJSONRPCError(w, nil, JSONRPCParseError, "invalid JSON", nil)
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "invalid JSON-RPC version", nil)
		return
	}

	isInitialize := req.Method == "initialize"
	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	if !isInitialize && protoVersion != "" && !supportedProtocolVersions[protoVersion] {
		http.Error(w, "Bad Request: unsupported MCP-Protocol-Version", http.StatusBadRequest)
		return
	}

	var sess *mcpSession
	if !isInitialize {
		if sessionID == "" {
			http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
			return
		}
		var ok bool
		sess, ok = s.sessions.get(sessionID, tenantID)
		if !ok {
			// Unknown, expired, or another tenant's session: the client must re-initialize.
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
	}

	s.logger.Debug("request",
		"method", req.Method,
		"is_notification", isNotification,
		"session_id", sessionID,
		"tenant_id", tenantID,
	)

	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, req, tenantID)
	case "ping":
		s.sendJSONRPCResult(w, req.ID, map[string]any{})
	case "tools/list":
		s.handleToolsList(w, req, sess)
	case "tools/call":
		s.handleToolsCall(w, r, req, sess)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "method not found", nil)
	}
}

// handleInitialize creates a session for the tenant. The optional "agent" query
// parameter limits the session to one agent group's tools plus the shared ones.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, tenantID string) {
	agent := r.URL.Query().Get("agent")
	sess := s.sessions.create(tenantID, agent, latestProtocolVersion)

	s.logger.Info("session created",
		"session_id", sess.id,
		"tenant_id", tenantID,
		"agent", agent,
		"protocol_version", sess.protocolVersion,
	)

	w.Header().Set("Mcp-Session-Id", sess.id)

	result := map[string]any{
		"protocolVersion": latestProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": map[string]any{
			"name":    s.name,
			"version": s.version,
		},
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// visibleTools returns the tool definitions the session may see.
func (s *Server) visibleTools(sess *mcpSession) []*packs.ToolDefinition {
	if !sess.restricted() {
		return s.registry.GetAllTools()
	}
	return s.registry.GetToolsForCapabilities([]string{sess.agent}, false)
}

// handleToolsList handles tools/list requests.
func (s *Server) handleToolsList(w http.ResponseWriter, req JSONRPCRequest, sess *mcpSession) {
	tools := s.visibleTools(sess)

	result := MCPListToolsResult{
		Tools: make([]MCPToolInfo, len(tools)),
	}
	for i, tool := range tools {
		result.Tools[i] = MCPToolInfo{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		}
	}

	s.logger.Debug("tools/list", "count", len(tools), "agent", sess.agent)
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleToolsCall handles tools/call requests.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, sess *mcpSession) {
	var params MCPCallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}

	if params.Name == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool name is required", nil)
		return
	}

	toolDef := s.router.GetToolDefinition(params.Name)
	if toolDef == nil {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "tool not found", nil)
		return
	}

	if sess.restricted() && !hasRequiredCapabilities([]string{sess.agent}, toolDef.RequiredCapabilities) {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "insufficient capabilities for this tool", nil)
		return
	}

	requestID := uuid.New().String()
	s.logger.Debug("tools/call",
		"tool_name", params.Name,
		"request_id", requestID,
		"tenant_id", sess.tenantID,
	)

	output, err := s.router.RouteToolCall(r.Context(), params.Name, sess.tenantID, params.Arguments)
	if err != nil {
		s.handleToolError(w, req.ID, params.Name, requestID, err)
		return
	}

	s.sendJSONRPCResult(w, req.ID, MCPCallToolResult{
		Content:           []MCPContent{{Type: "text", Text: string(output)}},
		StructuredContent: output,
	})
}

// hasRequiredCapabilities checks if the caller has all required capabilities.
func hasRequiredCapabilities(callerCaps, requiredCaps []string) bool {
	if len(requiredCaps) == 0 {
		return true
	}

	capSet := make(map[string]struct{}, len(callerCaps))
	for _, c := range callerCaps {
		capSet[c] = struct{}{}
	}

	for _, req := range requiredCaps {
		if _, has := capSet[req]; !has {
			return false
		}
	}
	return true
}

// handleToolError maps tool failures to JSON-RPC errors. Validation messages are
// passed through; database failures are reported generically since their detail
// is for operators only.
func (s *Server) handleToolError(w http.ResponseWriter, id json.RawMessage, toolName, requestID string, err error) {
	code := JSONRPCInternalError
	message := "tool execution failed"

	switch {
	case errors.Is(err, packs.ErrToolNotFound):
		code = JSONRPCInvalidParams
		message = "tool not found"
	case errors.Is(err, packs.ErrInvalidInput):
		code = JSONRPCInvalidParams
		message = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		message = "tool execution timed out"
	case errors.Is(err, context.Canceled):
		message = "request cancelled"
	}

	s.logger.Warn("tool call failed",
		"tool_name", toolName,
		"request_id", requestID,
		"code", code,
	)
	s.sendJSONRPCError(w, id, code, message, map[string]string{"request_id": requestID})
}

// sendJSONRPCResult sends a successful JSON-RPC response.
func (s *Server) sendJSONRPCResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendJSONRPCError sends a JSON-RPC error response.
func (s *Server) sendJSONRPCError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
