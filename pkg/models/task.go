package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	return s == TaskTodo || s == TaskInProgress || s == TaskCompleted
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func (p TaskPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// Task is a unit of work in a project. TenantID is copied from the parent
// project and must always match it.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	ProjectID   uuid.UUID    `json:"projectId"`
	TenantID    uuid.UUID    `json:"tenantId"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID   `json:"assignedTo"`
	DueDate     *Date        `json:"dueDate"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TaskSummary is a row of the task listings.
type TaskSummary struct {
	Task
	ProjectName  string  `json:"projectName"`
	AssigneeName *string `json:"assigneeName"`
}

type TaskPatch struct {
	Title       *string             `json:"title"`
	Description Nullable[string]    `json:"description"`
	Status      *TaskStatus         `json:"status"`
	Priority    *TaskPriority       `json:"priority"`
	AssignedTo  Nullable[uuid.UUID] `json:"assignedTo"`
	DueDate     Nullable[Date]      `json:"dueDate"`
}

func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && !p.Description.Set && p.Status == nil &&
		p.Priority == nil && !p.AssignedTo.Set && !p.DueDate.Set
}

func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	p.Description.applyTo(&t.Description)
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	p.AssignedTo.applyTo(&t.AssignedTo)
	p.DueDate.applyTo(&t.DueDate)
}
