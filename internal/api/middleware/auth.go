package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/auth"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// SessionVerifier checks a bearer token and returns its session.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (auth.Session, error)
}

// Auth provides authentication and role-checking middleware.
type Auth struct {
	verifier SessionVerifier
	metrics  *metrics.Metrics
}

// NewAuth creates a new Auth middleware. Role gate rejections are counted
// on m, which may be nil.
func NewAuth(v SessionVerifier, m *metrics.Metrics) *Auth {
	return &Auth{verifier: v, metrics: m}
}

// Authenticate validates the Bearer token and stores the session in the
// request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				service.CodeInvalidToken, "Missing or invalid Authorization header")
			return
		}

		session, err := a.verifier.VerifySession(r.Context(), token)
		if errors.Is(err, service.ErrInvalidToken) {
			response.Error(w, http.StatusUnauthorized,
				service.CodeInvalidToken, "Invalid or expired token")
			return
		}
		if err != nil {
			slog.Error("session verification failed", "error", err, "path", r.URL.Path)
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate session")
			return
		}

		next.ServeHTTP(w, r.WithContext(SetSession(r.Context(), session)))
	})
}

// RequireRole returns middleware that rejects callers below min.
func (a *Auth) RequireRole(min models.Role) func(http.Handler) http.Handler {
	reason := access.ReasonAdminRequired
	if min == models.RoleSuperAdmin {
		reason = access.ReasonSuperAdminOnly
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r)
			if !ok {
				response.Error(w, http.StatusUnauthorized,
					service.CodeInvalidToken, "Authentication required")
				return
			}
			if !claims.Role.AtLeast(min) {
				a.metrics.Denied(RoutePattern(r))
				response.Error(w, http.StatusForbidden, service.CodeForbidden, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
