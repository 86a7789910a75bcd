// Package handler holds the HTTP handlers. Each constructor takes the
// narrow service interface it needs and returns an http.HandlerFunc.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	mw "github.com/kiranshivaraju/taskforge/internal/api/middleware"
	"github.com/kiranshivaraju/taskforge/internal/api/response"
	"github.com/kiranshivaraju/taskforge/internal/metrics"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/internal/store"
)

const maxBodyBytes = 1 << 20

// statusOf maps a service error kind to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError renders a service error. Unclassified errors are logged with
// their cause and shown as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, err error) {
	var se *service.Error
	if errors.As(err, &se) {
		status := statusOf(se.Kind)
		if status == http.StatusForbidden {
			m.Denied(mw.RoutePattern(r))
		}
		response.Error(w, status, se.Code, se.Message)
		return
	}

	slog.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", chimw.GetReqID(r.Context()),
	)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
}

// outcome labels an operation result for the metrics counters.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, service.ErrValidation):
		return "invalid"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrConflict):
		return "conflict"
	case errors.Is(err, service.ErrForbidden):
		return "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return "not_found"
	}
	return "error"
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Error(w, http.StatusBadRequest, service.CodeValidation, "Invalid JSON body")
		return false
	}
	return true
}

// actor returns the authenticated caller.
func actor(w http.ResponseWriter, r *http.Request) (access.Claims, bool) {
	claims, ok := mw.ClaimsFrom(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, service.CodeInvalidToken, "Authentication required")
		return access.Claims{}, false
	}
	return claims, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.Error(w, http.StatusBadRequest, service.CodeValidation, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional id from the query string.
func queryUUID(w http.ResponseWriter, r *http.Request, key string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(w, http.StatusBadRequest, service.CodeValidation, "Invalid "+key)
		return nil, false
	}
	return &id, true
}

// filter returns a query filter value; "all" means no filter.
func filter(r *http.Request, key string) string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if strings.EqualFold(v, "all") {
		return ""
	}
	return v
}

// pagination reads page and limit. Unparseable values fall back to the
// defaults applied by the service.
func pagination(r *http.Request) store.Pagination {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.Pagination{Page: page, Limit: limit}
}

func writePage[T any](w http.ResponseWriter, page *service.Page[T]) {
	response.Collection(w, page.Items,
		response.NewPaginationMeta(page.Pagination.Page, page.Pagination.Limit, page.Total))
}
