package models

import (
	"time"

	"github.com/google/uuid"
)

type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

func (s TenantStatus) Valid() bool {
	return s == TenantActive || s == TenantSuspended
}

type Plan string

const (
	PlanFree       Plan = "free"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

func (p Plan) Valid() bool {
	return p == PlanFree || p == PlanPro || p == PlanEnterprise
}

// Defaults applied to a freshly registered tenant.
const (
	DefaultPlan        = PlanFree
	DefaultMaxUsers    = 5
	DefaultMaxProjects = 3
)

// Tenant represents an organization. Every user (except super admins),
// project and task belongs to exactly one tenant.
type Tenant struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	Subdomain        string       `json:"subdomain"`
	Status           TenantStatus `json:"status"`
	SubscriptionPlan Plan         `json:"subscriptionPlan"`
	MaxUsers         int          `json:"maxUsers"`
	MaxProjects      int          `json:"maxProjects"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

type TenantStats struct {
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
	TotalTasks    int `json:"totalTasks"`
}

// TenantDetails is the single-tenant view returned by GET /tenants/{id}.
type TenantDetails struct {
	Tenant
	Stats TenantStats `json:"stats"`
}

// TenantSummary is a row of the super admin tenant listing.
type TenantSummary struct {
	Tenant
	TotalUsers    int `json:"totalUsers"`
	TotalProjects int `json:"totalProjects"`
}

// TenantPatch lists the tenant fields a caller may change. Subdomain is
// deliberately absent: it is immutable.
type TenantPatch struct {
	Name             *string       `json:"name"`
	Status           *TenantStatus `json:"status"`
	SubscriptionPlan *Plan         `json:"subscriptionPlan"`
	MaxUsers         *int          `json:"maxUsers"`
	MaxProjects      *int          `json:"maxProjects"`
}

func (p TenantPatch) IsEmpty() bool {
	return p.Name == nil && p.Status == nil && p.SubscriptionPlan == nil &&
		p.MaxUsers == nil && p.MaxProjects == nil
}

// Apply merges the supplied fields into t.
func (p TenantPatch) Apply(t *Tenant) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.SubscriptionPlan != nil {
		t.SubscriptionPlan = *p.SubscriptionPlan
	}
	if p.MaxUsers != nil {
		t.MaxUsers = *p.MaxUsers
	}
	if p.MaxProjects != nil {
		t.MaxProjects = *p.MaxProjects
	}
}
