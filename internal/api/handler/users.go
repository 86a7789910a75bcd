package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type Users interface {
	Add(ctx context.Context, actor access.Claims, tenantID uuid.UUID, in service.AddUserInput) (*models.User, error)
	List(ctx context.Context, actor access.Claims, tenantID uuid.UUID, in service.UserListInput) (*service.Page[*models.User], error)
	Update(ctx context.Context, actor access.Claims, userID uuid.UUID, patch models.UserPatch) (*models.User, error)
	Delete(ctx context.Context, actor access.Claims, userID uuid.UUID) error
}

// NewAddUserHandler returns an http.HandlerFunc for POST /api/tenants/{tenantID}/users.
func NewAddUserHandler(svc Users, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		tenantID, ok := pathUUID(w, r, "tenantID")
		if !ok {
			return
		}
		var in service.AddUserInput
		if !decodeJSON(w, r, &in) {
			return
		}
		user, err := svc.Add(r.Context(), claims, tenantID, in)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Created(w, user, "User added successfully")
	}
}

// NewListUsersHandler returns an http.HandlerFunc for GET /api/tenants/{tenantID}/users.
func NewListUsersHandler(svc Users, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		tenantID, ok := pathUUID(w, r, "tenantID")
		if !ok {
			return
		}
		page, err := svc.List(r.Context(), claims, tenantID, service.UserListInput{
			Pagination: pagination(r),
			Role:       models.Role(filter(r, "role")),
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
		})
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		writePage(w, page)
	}
}

// NewUpdateUserHandler returns an http.HandlerFunc for PUT /api/users/{userID}.
func NewUpdateUserHandler(svc Users, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		userID, ok := pathUUID(w, r, "userID")
		if !ok {
			return
		}
		var patch models.UserPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		user, err := svc.Update(r.Context(), claims, userID, patch)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, user)
	}
}

// NewDeleteUserHandler returns an http.HandlerFunc for DELETE /api/users/{userID}.
func NewDeleteUserHandler(svc Users, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		userID, ok := pathUUID(w, r, "userID")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), claims, userID); err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Message(w, "User deleted successfully")
	}
}
