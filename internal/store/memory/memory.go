// Package memory is an in-process store.Store used by the service, handler
// and server tests. It enforces the same uniqueness, limit and cascade rules
// as the schema.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/pkg/models"
)

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int64
	tenants  map[uuid.UUID]*entry[models.Tenant]
	users    map[uuid.UUID]*entry[models.User]
	projects map[uuid.UUID]*entry[models.Project]
	tasks    map[uuid.UUID]*entry[models.Task]
}

// entry remembers insertion order so rows created in the same instant still
// list deterministically.
type entry[T any] struct {
	seq int64
	val T
}

type Option func(*Store)

// WithClock replaces time.Now for updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:      time.Now,
		tenants:  map[uuid.UUID]*entry[models.Tenant]{},
		users:    map[uuid.UUID]*entry[models.User]{},
		projects: map[uuid.UUID]*entry[models.Project]{},
		tasks:    map[uuid.UUID]*entry[models.Task]{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Store = (*Store)(nil)

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

// --- Tenants ---

func (s *Store) RegisterTenant(_ context.Context, tenant *models.Tenant, admin *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.val.Subdomain == tenant.Subdomain {
			return store.ErrDuplicateSubdomain
		}
	}
	if s.emailTaken(admin.Email) {
		return store.ErrDuplicateEmail
	}
	s.tenants[tenant.ID] = &entry[models.Tenant]{seq: s.next(), val: *tenant}
	s.users[admin.ID] = &entry[models.User]{seq: s.next(), val: *admin}
	return nil
}

func (s *Store) GetTenant(_ context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	v := t.val
	return &v, nil
}

func (s *Store) GetTenantBySubdomain(_ context.Context, subdomain string) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.val.Subdomain == subdomain {
			v := t.val
			return &v, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetTenantStats(_ context.Context, id uuid.UUID) (models.TenantStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats(id), nil
}

func (s *Store) stats(id uuid.UUID) models.TenantStats {
	var st models.TenantStats
	for _, u := range s.users {
		if u.val.TenantID != nil && *u.val.TenantID == id {
			st.TotalUsers++
		}
	}
	for _, p := range s.projects {
		if p.val.TenantID == id {
			st.TotalProjects++
		}
	}
	for _, t := range s.tasks {
		if t.val.TenantID == id {
			st.TotalTasks++
		}
	}
	return st
}

func (s *Store) ListTenants(_ context.Context, filter store.TenantFilter) ([]*models.TenantSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entry[models.Tenant]
	for _, t := range s.tenants {
		if filter.Status != "" && t.val.Status != filter.Status {
			continue
		}
		if !contains(filter.Search, t.val.Name, t.val.Subdomain) {
			continue
		}
		matched = append(matched, t)
	}
	rows := paginate(matched, filter.Pagination, func(e *entry[models.Tenant]) (time.Time, int64) {
		return e.val.CreatedAt, e.seq
	})

	out := make([]*models.TenantSummary, 0, len(rows))
	for _, t := range rows {
		st := s.stats(t.val.ID)
		out = append(out, &models.TenantSummary{
			Tenant:        t.val,
			TotalUsers:    st.TotalUsers,
			TotalProjects: st.TotalProjects,
		})
	}
	return out, len(matched), nil
}

func (s *Store) UpdateTenant(_ context.Context, id uuid.UUID, patch models.TenantPatch) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	patch.Apply(&t.val)
	t.val.UpdatedAt = s.stamp()
	v := t.val
	return &v, nil
}

// --- Users ---

func (s *Store) emailTaken(email string) bool {
	for _, u := range s.users {
		if u.val.Email == email {
			return true
		}
	}
	return false
}

func (s *Store) UserTenant(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyID(u.val.TenantID), nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID, tenantID *uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !sameTenant(u.val.TenantID, tenantID) {
		return nil, store.ErrNotFound
	}
	return copyUser(u.val), nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string, tenantID *uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.val.Email == email && sameTenant(u.val.TenantID, tenantID) {
			return copyUser(u.val), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.TenantID != nil {
		t, ok := s.tenants[*user.TenantID]
		if !ok {
			return store.ErrNotFound
		}
		if s.stats(t.val.ID).TotalUsers >= t.val.MaxUsers {
			return store.ErrLimitReached
		}
	}
	if s.emailTaken(user.Email) {
		return store.ErrDuplicateEmail
	}
	s.users[user.ID] = &entry[models.User]{seq: s.next(), val: *copyUser(*user)}
	return nil
}

func (s *Store) ListUsers(_ context.Context, filter store.UserFilter) ([]*models.User, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entry[models.User]
	for _, u := range s.users {
		if u.val.TenantID == nil || *u.val.TenantID != filter.TenantID {
			continue
		}
		if filter.Role != "" && u.val.Role != filter.Role {
			continue
		}
		if !contains(filter.Search, u.val.Email, u.val.FullName) {
			continue
		}
		matched = append(matched, u)
	}
	rows := paginate(matched, filter.Pagination, func(e *entry[models.User]) (time.Time, int64) {
		return e.val.CreatedAt, e.seq
	})

	out := make([]*models.User, 0, len(rows))
	for _, u := range rows {
		out = append(out, copyUser(u.val))
	}
	return out, len(matched), nil
}

func (s *Store) UpdateUser(_ context.Context, id uuid.UUID, tenantID *uuid.UUID, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || !sameTenant(u.val.TenantID, tenantID) {
		return nil, store.ErrNotFound
	}
	patch.Apply(&u.val)
	u.val.UpdatedAt = s.stamp()
	return copyUser(u.val), nil
}

// DeleteUser mirrors ON DELETE SET NULL on projects.created_by and
// tasks.assigned_to.
func (s *Store) DeleteUser(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.val.TenantID == nil || *u.val.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(s.users, id)
	for _, p := range s.projects {
		if p.val.CreatedBy != nil && *p.val.CreatedBy == id {
			p.val.CreatedBy = nil
		}
	}
	for _, t := range s.tasks {
		if t.val.AssignedTo != nil && *t.val.AssignedTo == id {
			t.val.AssignedTo = nil
		}
	}
	return nil
}

// --- Projects ---

func (s *Store) ProjectTenant(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok {
		return uuid.Nil, store.ErrNotFound
	}
	return p.val.TenantID, nil
}

func (s *Store) CreateProject(_ context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[project.TenantID]
	if !ok {
		return store.ErrNotFound
	}
	if s.stats(t.val.ID).TotalProjects >= t.val.MaxProjects {
		return store.ErrLimitReached
	}
	s.projects[project.ID] = &entry[models.Project]{seq: s.next(), val: *copyProject(*project)}
	return nil
}

func (s *Store) GetProject(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.val.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return copyProject(p.val), nil
}

func (s *Store) ListProjects(_ context.Context, filter store.ProjectFilter) ([]*models.ProjectSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entry[models.Project]
	for _, p := range s.projects {
		if filter.TenantID != nil && p.val.TenantID != *filter.TenantID {
			continue
		}
		if filter.Status != "" && p.val.Status != filter.Status {
			continue
		}
		if !contains(filter.Search, p.val.Name, deref(p.val.Description)) {
			continue
		}
		matched = append(matched, p)
	}
	rows := paginate(matched, filter.Pagination, func(e *entry[models.Project]) (time.Time, int64) {
		return e.val.CreatedAt, e.seq
	})

	out := make([]*models.ProjectSummary, 0, len(rows))
	for _, p := range rows {
		summary := &models.ProjectSummary{Project: *copyProject(p.val)}
		if p.val.CreatedBy != nil {
			if u, ok := s.users[*p.val.CreatedBy]; ok {
				name := u.val.FullName
				summary.CreatedByName = &name
			}
		}
		for _, t := range s.tasks {
			if t.val.ProjectID == p.val.ID {
				summary.TaskCount++
			}
		}
		out = append(out, summary)
	}
	return out, len(matched), nil
}

func (s *Store) UpdateProject(_ context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.ProjectPatch) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.val.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	patch.Apply(&p.val)
	p.val.UpdatedAt = s.stamp()
	return copyProject(p.val), nil
}

func (s *Store) DeleteProject(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[id]
	if !ok || p.val.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(s.projects, id)
	for taskID, t := range s.tasks {
		if t.val.ProjectID == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

// --- Tasks ---

func (s *Store) TaskTenant(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return uuid.Nil, store.ErrNotFound
	}
	return t.val.TenantID, nil
}

func (s *Store) CreateTask(_ context.Context, task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[task.ProjectID]
	if !ok || p.val.TenantID != task.TenantID {
		return store.ErrOutOfScope
	}
	task.TenantID = p.val.TenantID
	s.tasks[task.ID] = &entry[models.Task]{seq: s.next(), val: *copyTask(*task)}
	return nil
}

func (s *Store) GetTask(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.val.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	return copyTask(t.val), nil
}

func (s *Store) ListTasks(_ context.Context, filter store.TaskFilter) ([]*models.TaskSummary, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*entry[models.Task]
	for _, t := range s.tasks {
		v := t.val
		switch {
		case filter.TenantID != nil && v.TenantID != *filter.TenantID,
			filter.ProjectID != nil && v.ProjectID != *filter.ProjectID,
			filter.Status != "" && v.Status != filter.Status,
			filter.Priority != "" && v.Priority != filter.Priority,
			filter.AssignedTo != nil && (v.AssignedTo == nil || *v.AssignedTo != *filter.AssignedTo),
			!contains(filter.Search, v.Title, deref(v.Description)):
			continue
		}
		matched = append(matched, t)
	}
	rows := paginate(matched, filter.Pagination, func(e *entry[models.Task]) (time.Time, int64) {
		return e.val.CreatedAt, e.seq
	})

	out := make([]*models.TaskSummary, 0, len(rows))
	for _, t := range rows {
		summary := &models.TaskSummary{Task: *copyTask(t.val)}
		if p, ok := s.projects[t.val.ProjectID]; ok {
			summary.ProjectName = p.val.Name
		}
		if t.val.AssignedTo != nil {
			if u, ok := s.users[*t.val.AssignedTo]; ok {
				name := u.val.FullName
				summary.AssigneeName = &name
			}
		}
		out = append(out, summary)
	}
	return out, len(matched), nil
}

func (s *Store) UpdateTask(_ context.Context, id uuid.UUID, tenantID uuid.UUID, patch models.TaskPatch) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.val.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	patch.Apply(&t.val)
	t.val.UpdatedAt = s.stamp()
	return copyTask(t.val), nil
}

func (s *Store) DeleteTask(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.val.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

// --- helpers ---

// paginate orders newest first, like the SQL lists, then slices one page.
func paginate[T any](rows []*entry[T], p store.Pagination, key func(*entry[T]) (time.Time, int64)) []*entry[T] {
	sort.Slice(rows, func(i, j int) bool {
		ti, si := key(rows[i])
		tj, sj := key(rows[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return si > sj
	})
	p = p.Normalize(store.DefaultPageLimit)
	start := p.Offset()
	if start >= len(rows) {
		return nil
	}
	end := start + p.Limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func contains(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyUser(u models.User) *models.User {
	u.TenantID = copyID(u.TenantID)
	return &u
}

func copyProject(p models.Project) *models.Project {
	p.CreatedBy = copyID(p.CreatedBy)
	if p.Description != nil {
		d := *p.Description
		p.Description = &d
	}
	return &p
}

func copyTask(t models.Task) *models.Task {
	t.AssignedTo = copyID(t.AssignedTo)
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	return &t
}
