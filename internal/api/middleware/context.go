package middleware

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/auth"
)

type contextKey string

const (
	sessionKey     contextKey = "session"
	requestInfoKey contextKey = "request_info"
)

// requestInfo is installed by Logger and filled in by inner middleware, so
// the access log can report who made the request.
type requestInfo struct {
	userID string
}

func SetSession(ctx context.Context, s auth.Session) context.Context {
	if info, ok := ctx.Value(requestInfoKey).(*requestInfo); ok {
		info.userID = s.Claims.UserID.String()
	}
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFrom returns the verified session of an authenticated request.
func SessionFrom(r *http.Request) (auth.Session, bool) {
	s, ok := r.Context().Value(sessionKey).(auth.Session)
	return s, ok
}

// ClaimsFrom returns the caller's claims. Handlers must only be mounted
// behind Authenticate, so ok is false only on wiring mistakes.
func ClaimsFrom(r *http.Request) (access.Claims, bool) {
	s, ok := SessionFrom(r)
	if !ok {
		return access.Claims{}, false
	}
	return s.Claims, true
}
