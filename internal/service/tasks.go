package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

type CreateTaskInput struct {
	Title       string              `json:"title"`
	Description *string             `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID          `json:"assignedTo"`
	DueDate     *models.Date        `json:"dueDate"`
}

// TaskListInput filters a task listing. TenantID follows the same rule as
// ProjectListInput.
type TaskListInput struct {
	store.Pagination
	TenantID   *uuid.UUID
	ProjectID  *uuid.UUID
	Status     models.TaskStatus
	Priority   models.TaskPriority
	AssignedTo *uuid.UUID
	Search     string
}

type TaskService struct {
	store store.Store
	now   func() time.Time
}

func NewTaskService(st store.Store) *TaskService {
	return &TaskService{store: st, now: time.Now}
}

// Create adds a task under projectID. The task's tenant is the project's
// tenant, checked against the actor's scope here and again by the store's
// insert predicate.
func (s *TaskService) Create(ctx context.Context, actor access.Claims, projectID uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	owner, err := s.store.ProjectTenant(ctx, projectID)
	tenantID, err := reachable(actor, owner, err, "Project")
	if err != nil {
		return nil, err
	}

	title, err := required("title", in.Title)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = models.TaskTodo
	}
	if !status.Valid() {
		return nil, validation("status must be todo, in_progress or completed")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, validation("priority must be low, medium or high")
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(ctx, *in.AssignedTo, tenantID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	task := &models.Task{
		ID:          uuid.New(),
		ProjectID:   projectID,
		TenantID:    tenantID,
		Title:       title,
		Description: optionalText(in.Description),
		Status:      status,
		Priority:    priority,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, storeErr("create task", err, "Project")
	}
	return task, nil
}

// checkAssignee requires the assignee to be a user of tenantID.
func (s *TaskService) checkAssignee(ctx context.Context, userID, tenantID uuid.UUID) error {
	_, err := s.store.GetUser(ctx, userID, &tenantID)
	if errors.Is(err, store.ErrNotFound) {
		return validation("assignedTo must be a user of the same tenant")
	}
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	return nil
}

// ListByProject lists the tasks of one project.
func (s *TaskService) ListByProject(ctx context.Context, actor access.Claims, projectID uuid.UUID, in TaskListInput) (*Page[*models.TaskSummary], error) {
	owner, err := s.store.ProjectTenant(ctx, projectID)
	tenantID, err := reachable(actor, owner, err, "Project")
	if err != nil {
		return nil, err
	}
	in.TenantID = &tenantID
	in.ProjectID = &projectID
	return s.list(ctx, in)
}

// List lists every task in the actor's scope.
func (s *TaskService) List(ctx context.Context, actor access.Claims, in TaskListInput) (*Page[*models.TaskSummary], error) {
	scope, err := access.ScopeOf(actor)
	if err != nil {
		return nil, forbidden(access.ReasonUnauthorized)
	}
	tenantID, d := scope.ListTenant(in.TenantID)
	if !d.Allowed {
		return nil, denied(d)
	}
	in.TenantID = tenantID
	return s.list(ctx, in)
}

func (s *TaskService) list(ctx context.Context, in TaskListInput) (*Page[*models.TaskSummary], error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, validation("status must be todo, in_progress or completed")
	}
	if in.Priority != "" && !in.Priority.Valid() {
		return nil, validation("priority must be low, medium or high")
	}

	p := in.Pagination.Normalize(TaskPageLimit)
	tasks, total, err := s.store.ListTasks(ctx, store.TaskFilter{
		Pagination: p,
		TenantID:   in.TenantID,
		ProjectID:  in.ProjectID,
		Status:     in.Status,
		Priority:   in.Priority,
		AssignedTo: in.AssignedTo,
		Search:     in.Search,
	})
	if err != nil {
		return nil, storeErr("list tasks", err, "Task")
	}
	return newPage(tasks, total, p), nil
}

func (s *TaskService) Get(ctx context.Context, actor access.Claims, id uuid.UUID) (*models.Task, error) {
	owner, err := s.store.TaskTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Task")
	if err != nil {
		return nil, err
	}
	task, err := s.store.GetTask(ctx, id, tenantID)
	if err != nil {
		return nil, storeErr("get task", err, "Task")
	}
	return task, nil
}

func (s *TaskService) Update(ctx context.Context, actor access.Claims, id uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	owner, err := s.store.TaskTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Task")
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, validation(msgNoFields)
	}
	if err := validateTaskPatch(&patch); err != nil {
		return nil, err
	}
	if patch.AssignedTo.Set && patch.AssignedTo.Value != nil {
		if err := s.checkAssignee(ctx, *patch.AssignedTo.Value, tenantID); err != nil {
			return nil, err
		}
	}

	task, err := s.store.UpdateTask(ctx, id, tenantID, patch)
	if err != nil {
		return nil, storeErr("update task", err, "Task")
	}
	return task, nil
}

// UpdateStatus sets only the status. Setting the current status again is
// allowed and still advances updatedAt.
func (s *TaskService) UpdateStatus(ctx context.Context, actor access.Claims, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, validation("status must be todo, in_progress or completed")
	}
	return s.Update(ctx, actor, id, models.TaskPatch{Status: &status})
}

func (s *TaskService) Delete(ctx context.Context, actor access.Claims, id uuid.UUID) error {
	owner, err := s.store.TaskTenant(ctx, id)
	tenantID, err := reachable(actor, owner, err, "Task")
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id, tenantID); err != nil {
		return storeErr("delete task", err, "Task")
	}
	return nil
}
