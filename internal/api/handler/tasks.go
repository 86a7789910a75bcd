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

type Tasks interface {
	Create(ctx context.Context, actor access.Claims, projectID uuid.UUID, in service.CreateTaskInput) (*models.Task, error)
	ListByProject(ctx context.Context, actor access.Claims, projectID uuid.UUID, in service.TaskListInput) (*service.Page[*models.TaskSummary], error)
	List(ctx context.Context, actor access.Claims, in service.TaskListInput) (*service.Page[*models.TaskSummary], error)
	Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.TaskPatch) (*models.Task, error)
	UpdateStatus(ctx context.Context, actor access.Claims, id uuid.UUID, status models.TaskStatus) (*models.Task, error)
	Delete(ctx context.Context, actor access.Claims, id uuid.UUID) error
}

// taskListInput reads the task filters shared by both task listings.
func taskListInput(w http.ResponseWriter, r *http.Request) (service.TaskListInput, bool) {
	assignee, ok := queryUUID(w, r, "assignedTo")
	if !ok {
		return service.TaskListInput{}, false
	}
	return service.TaskListInput{
		Pagination: pagination(r),
		Status:     models.TaskStatus(filter(r, "status")),
		Priority:   models.TaskPriority(filter(r, "priority")),
		AssignedTo: assignee,
		Search:     strings.TrimSpace(r.URL.Query().Get("search")),
	}, true
}

// NewCreateTaskHandler returns an http.HandlerFunc for POST /api/projects/{projectID}/tasks.
func NewCreateTaskHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		projectID, ok := pathUUID(w, r, "projectID")
		if !ok {
			return
		}
		var in service.CreateTaskInput
		if !decodeJSON(w, r, &in) {
			return
		}
		task, err := svc.Create(r.Context(), claims, projectID, in)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Created(w, task, "Task created successfully")
	}
}

// NewListProjectTasksHandler returns an http.HandlerFunc for GET /api/projects/{projectID}/tasks.
func NewListProjectTasksHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		projectID, ok := pathUUID(w, r, "projectID")
		if !ok {
			return
		}
		in, ok := taskListInput(w, r)
		if !ok {
			return
		}
		page, err := svc.ListByProject(r.Context(), claims, projectID, in)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		writePage(w, page)
	}
}

// NewListTasksHandler returns an http.HandlerFunc for GET /api/tasks.
func NewListTasksHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		in, ok := taskListInput(w, r)
		if !ok {
			return
		}
		if in.TenantID, ok = queryUUID(w, r, "tenantId"); !ok {
			return
		}
		if in.ProjectID, ok = queryUUID(w, r, "projectId"); !ok {
			return
		}
		page, err := svc.List(r.Context(), claims, in)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		writePage(w, page)
	}
}

// NewGetTaskHandler returns an http.HandlerFunc for GET /api/tasks/{taskID}.
func NewGetTaskHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "taskID")
		if !ok {
			return
		}
		task, err := svc.Get(r.Context(), claims, id)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, task)
	}
}

// NewUpdateTaskHandler returns an http.HandlerFunc for PUT /api/tasks/{taskID}.
func NewUpdateTaskHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "taskID")
		if !ok {
			return
		}
		var patch models.TaskPatch
		if !decodeJSON(w, r, &patch) {
			return
		}
		task, err := svc.Update(r.Context(), claims, id, patch)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, task)
	}
}

// NewUpdateTaskStatusHandler returns an http.HandlerFunc for PATCH /api/tasks/{taskID}/status.
func NewUpdateTaskStatusHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "taskID")
		if !ok {
			return
		}
		var req struct {
			Status models.TaskStatus `json:"status"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		task, err := svc.UpdateStatus(r.Context(), claims, id, req.Status)
		if err != nil {
			writeError(w, r, m, err)
			return
		}
		response.JSON(w, task)
	}
}

// NewDeleteTaskHandler returns an http.HandlerFunc for DELETE /api/tasks/{taskID}.
func NewDeleteTaskHandler(svc Tasks, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := actor(w, r)
		if !ok {
			return
		}
		id, ok := pathUUID(w, r, "taskID")
		if !ok {
			return
		}
		if err := svc.Delete(r.Context(), claims, id); err != nil {
			writeError(w, r, m, err)
			return
		}
		response.Message(w, "Task deleted successfully")
	}
}
