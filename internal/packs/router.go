// ABOUTME: Routes tool calls from agents to the registered tool handlers.
// ABOUTME: Applies the call timeout and records per-tool metrics and logs.

package packs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/2389/unwind-gateway/internal/metrics"
)

// ErrToolNotFound indicates the requested tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// DefaultTimeout is the default timeout for tool execution.
const DefaultTimeout = 30 * time.Second

// Call outcomes recorded in metrics.
const (
	OutcomeOK           = "ok"
	OutcomeNotFound     = "not_found"
	OutcomeInvalidInput = "invalid_input"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// Router routes tool calls to the registered handlers.
type Router struct {
	registry *Registry
	logger   *slog.Logger
	timeout  time.Duration
}

// RouterConfig contains configuration options for the Router.
type RouterConfig struct {
	Registry *Registry
	Logger   *slog.Logger
	Timeout  time.Duration
}

// NewRouter creates a new Router with the given configuration.
func NewRouter(cfg RouterConfig) *Router {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		registry: cfg.Registry,
		logger:   logger,
		timeout:  timeout,
	}
}

// RouteToolCall runs the named tool for tenantID with the given JSON input.
// Returns ErrToolNotFound for an unknown tool; handler errors are returned as is.
func (r *Router) RouteToolCall(ctx context.Context, toolName, tenantID string, input json.RawMessage) (json.RawMessage, error) {
	start := time.Now()

	builtin := r.registry.GetBuiltinTool(toolName)
	if builtin == nil {
		r.logger.Debug("tool not found in registry", "tool_name", toolName)
		metrics.ToolCallsTotal.WithLabelValues(toolName, OutcomeNotFound).Inc()
		return nil, ErrToolNotFound
	}

	r.logger.Info("→ dispatching tool",
		"tool_name", toolName,
		"tenant_id", tenantID,
	)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := builtin.Handler(ctx, tenantID, input)
	elapsed := time.Since(start)
	metrics.ToolCallDuration.WithLabelValues(toolName).Observe(elapsed.Seconds())

	outcome := Outcome(err)
	metrics.ToolCallsTotal.WithLabelValues(toolName, outcome).Inc()

	if err != nil {
		r.logger.Warn("tool error",
			"tool_name", toolName,
			"tenant_id", tenantID,
			"outcome", outcome,
			"duration", elapsed,
			"error", err,
		)
		return nil, err
	}

	r.logger.Info("← tool responded",
		"tool_name", toolName,
		"tenant_id", tenantID,
		"duration", elapsed,
	)
	return result, nil
}

// Outcome classifies a tool call error for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrToolNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrInvalidInput):
		return OutcomeInvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// HasTool checks if a tool with the given name is registered.
func (r *Router) HasTool(toolName string) bool {
	return r.registry.IsBuiltin(toolName)
}

// GetToolDefinition returns the tool definition for a given tool name.
// Returns nil if the tool is not found.
func (r *Router) GetToolDefinition(toolName string) *ToolDefinition {
	if builtin := r.registry.GetBuiltinTool(toolName); builtin != nil {
		return builtin.Definition
	}
	return nil
}
