package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectArchived || s == ProjectCompleted
}

// Project groups tasks inside one tenant. CreatedBy becomes nil once the
// creating user is deleted.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	TenantID    uuid.UUID     `json:"tenantId"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   *uuid.UUID    `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProjectSummary is a row of the project listing.
type ProjectSummary struct {
	Project
	CreatedByName *string `json:"createdByName"`
	TaskCount     int     `json:"taskCount"`
}

type ProjectPatch struct {
	Name        *string          `json:"name"`
	Description Nullable[string] `json:"description"`
	Status      *ProjectStatus   `json:"status"`
}

func (p ProjectPatch) IsEmpty() bool {
	return p.Name == nil && !p.Description.Set && p.Status == nil
}

func (p ProjectPatch) Apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	p.Description.applyTo(&pr.Description)
	if p.Status != nil {
		pr.Status = *p.Status
	}
}
