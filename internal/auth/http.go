// ABOUTME: HTTP middleware for JWT authentication on tool endpoints
// ABOUTME: Extracts JWT from Authorization header and adds the tenant to context

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/2389/unwind-gateway/internal/metrics"
)

// FailureReason names an auth error for logs and metrics.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrAuthFormat):
		return "format"
	case errors.Is(err, ErrAuthExpired):
		return "expired"
	case errors.Is(err, ErrAuthClaimMissing):
		return "claim_missing"
	case errors.Is(err, ErrAuthSignature):
		return "signature"
	default:
		return "unknown"
	}
}

// HTTPAuthMiddleware creates an HTTP middleware that validates the bearer token and
// stores the tenant id in the request context. Any failure is a 401; the reason is
// logged but not echoed beyond the error family.
func HTTPAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenantID, err := authenticateRequest(verifier, r)
			if err != nil {
				reason := FailureReason(err)
				metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
				logger.Warn("request rejected", "reason", reason, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("WWW-Authenticate", `Bearer realm="unwind"`)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"` + reason + `"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tenantID)))
		})
	}
}

func authenticateRequest(verifier TokenVerifier, r *http.Request) (string, error) {
	token, err := ExtractBearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return "", err
	}
	return verifier.Verify(token)
}
