package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/taskforge/internal/access"
	mw "github.com/kiranshivaraju/taskforge/internal/api/middleware"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/auth"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// Identity is the registration and session service used by the auth routes.
type Identity interface {
	RegisterTenant(ctx context.Context, in service.RegisterTenantInput) (*service.Registration, error)
	Authenticate(ctx context.Context, in service.LoginInput) (*service.LoginResult, error)
	CurrentUser(ctx context.Context, actor access.Claims) (*models.CurrentUser, error)
	Logout(ctx context.Context, session auth.Session) error
}

// NewRegisterTenantHandler returns an http.HandlerFunc for POST /api/auth/register-tenant.
func NewRegisterTenantHandler(svc Identity, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.RegisterTenantInput
		if !decodeJSON(w, r, &in) {
			m.Registration("invalid")
			return
		}

		reg, err := svc.RegisterTenant(r.Context(), in)
		m.Registration(outcome(err))
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Created(w, reg, "Tenant registered successfully")
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/auth/login.
func NewLoginHandler(svc Identity, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in service.LoginInput
		if !decodeJSON(w, r, &in) {
			m.Login("invalid")
			return
		}

		res, err := svc.Authenticate(r.Context(), in)
		m.Login(outcome(err))
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, res)
	}
}

// NewMeHandler returns an http.HandlerFunc for GET /api/auth/me.
func NewMeHandler(svc Identity, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		me, err := svc.CurrentUser(r.Context(), claims)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, me)
	}
}

// NewLogoutHandler returns an http.HandlerFunc for POST /api/auth/logout.
func NewLogoutHandler(svc Identity, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := mw.SessionFrom(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, service.CodeInvalidToken, "Authentication required")
			return
		}
		if err := svc.Logout(r.Context(), session); err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Message(w, "Logged out successfully")
	}
}
