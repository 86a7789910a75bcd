package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/taskforge/internal/access"
	"github.com/kiranshivaraju/taskforge/internal/auth"
	"github.com/kiranshivaraju/taskforge/internal/cache"
	"github.com/kiranshivaraju/taskforge/internal/service"
	"github.com/kiranshivaraju/taskforge/internal/store"
	"github.com/kiranshivaraju/taskforge/internal/store/memory"
	"github.com/kiranshivaraju/taskforge/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fixture struct {
	store    *memory.Store
	identity *service.IdentityService
	tenants  *service.TenantService
	users    *service.UserService
	projects *service.ProjectService
	tasks    *service.TaskService
}

func newFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rc, err := cache.NewRedisCache("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	st := memory.New(opts...)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	tokens := auth.NewTokenManager(testSecret, time.Hour, "taskforge-test")

	return &fixture{
		store:    st,
		identity: service.NewIdentityService(st, hasher, tokens, rc),
		tenants:  service.NewTenantService(st),
		users:    service.NewUserService(st, hasher),
		projects: service.NewProjectService(st),
		tasks:    service.NewTaskService(st),
	}
}

// --- helpers ---

func claimsOf(u *models.User) access.Claims {
	return access.Claims{UserID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

// register creates a tenant and returns its id and the admin's claims.
func (f *fixture) register(t *testing.T, subdomain string) (uuid.UUID, access.Claims) {
	t.Helper()
	reg, err := f.identity.RegisterTenant(context.Background(), service.RegisterTenantInput{
		TenantName:    "Tenant " + subdomain,
		Subdomain:     subdomain,
		AdminEmail:    "admin@" + subdomain + ".test",
		AdminPassword: "password123",
		AdminFullName: "Admin " + subdomain,
	})
	require.NoError(t, err)
	return reg.TenantID, claimsOf(reg.AdminUser)
}

func (f *fixture) addUser(t *testing.T, admin access.Claims, tenantID uuid.UUID, email string, role models.Role) access.Claims {
	t.Helper()
	u, err := f.users.Add(context.Background(), admin, tenantID, service.AddUserInput{
		Email:    email,
		Password: "password123",
		FullName: "User " + email,
		Role:     role,
	})
	require.NoError(t, err)
	return claimsOf(u)
}

func (f *fixture) superAdmin(t *testing.T) access.Claims {
	t.Helper()
	ctx := context.Background()
	_, err := f.identity.EnsureSuperAdmin(ctx, "root@platform.test", "rootpassword", "Root")
	require.NoError(t, err)
	u, err := f.store.GetUserByEmail(ctx, "root@platform.test", nil)
	require.NoError(t, err)
	return claimsOf(u)
}

func (f *fixture) project(t *testing.T, actor access.Claims, name string) *models.Project {
	t.Helper()
	p, err := f.projects.Create(context.Background(), actor, service.CreateProjectInput{Name: name})
	require.NoError(t, err)
	return p
}

// requireKind asserts err is a classified error of kind and returns it.
func requireKind(t *testing.T, err error, kind error) *service.Error {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var se *service.Error
	require.ErrorAs(t, err, &se)
	return se
}

func ptr[T any](v T) *T { return &v }

// ===========================================================================
// Registration
// ===========================================================================

func TestRegisterTenant_Defaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.identity.RegisterTenant(ctx, service.RegisterTenantInput{
		TenantName:    "  Acme  ",
		Subdomain:     "Acme",
		AdminEmail:    "Admin@Acme.test",
		AdminPassword: "password123",
		AdminFullName: "Ada Admin",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", reg.Subdomain)
	assert.Equal(t, "admin@acme.test", reg.AdminUser.Email)
	assert.Equal(t, models.RoleTenantAdmin, reg.AdminUser.Role)
	require.NotNil(t, reg.AdminUser.TenantID)
	assert.Equal(t, reg.TenantID, *reg.AdminUser.TenantID)
	assert.NotEqual(t, "password123", reg.AdminUser.PasswordHash)

	tenant, err := f.store.GetTenant(ctx, reg.TenantID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", tenant.Name)
	assert.Equal(t, models.TenantActive, tenant.Status)
	assert.Equal(t, models.PlanFree, tenant.SubscriptionPlan)
	assert.Equal(t, 5, tenant.MaxUsers)
	assert.Equal(t, 3, tenant.MaxProjects)
}

func TestRegisterTenant_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "acme")

	_, err := f.identity.RegisterTenant(ctx, service.RegisterTenantInput{
		TenantName: "Other", Subdomain: "acme", AdminEmail: "x@other.test",
		AdminPassword: "password123", AdminFullName: "X",
	})
	se := requireKind(t, err, service.ErrConflict)
	assert.Equal(t, service.CodeDuplicateSubdomain, se.Code)

	_, err = f.identity.RegisterTenant(ctx, service.RegisterTenantInput{
		TenantName: "Other", Subdomain: "other", AdminEmail: "admin@acme.test",
		AdminPassword: "password123", AdminFullName: "X",
	})
	se = requireKind(t, err, service.ErrConflict)
	assert.Equal(t, service.CodeDuplicateEmail, se.Code)

	_, err = f.store.GetTenantBySubdomain(ctx, "other")
	assert.ErrorIs(t, err, store.ErrNotFound, "failed registration must not leave a tenant behind")
}

func TestRegisterTenant_Validation(t *testing.T) {
	f := newFixture(t)
	valid := service.RegisterTenantInput{
		TenantName: "Acme", Subdomain: "acme", AdminEmail: "a@acme.test",
		AdminPassword: "password123", AdminFullName: "Ada",
	}

	tests := []struct {
		name   string
		mutate func(*service.RegisterTenantInput)
	}{
		{"missing name", func(in *service.RegisterTenantInput) { in.TenantName = " " }},
		{"bad subdomain", func(in *service.RegisterTenantInput) { in.Subdomain = "-acme" }},
		{"subdomain with dot", func(in *service.RegisterTenantInput) { in.Subdomain = "ac.me" }},
		{"bad email", func(in *service.RegisterTenantInput) { in.AdminEmail = "not-an-email" }},
		{"short password", func(in *service.RegisterTenantInput) { in.AdminPassword = "short" }},
		{"missing full name", func(in *service.RegisterTenantInput) { in.AdminFullName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := f.identity.RegisterTenant(context.Background(), in)
			requireKind(t, err, service.ErrValidation)
		})
	}
}

func TestRegisterTenant_ConcurrentSameSubdomain(t *testing.T) {
	f := newFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.identity.RegisterTenant(context.Background(), service.RegisterTenantInput{
				TenantName:    "Race",
				Subdomain:     "race",
				AdminEmail:    fmt.Sprintf("admin%d@race.test", i),
				AdminPassword: "password123",
				AdminFullName: "Racer",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, service.ErrConflict):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
}

// ===========================================================================
// Authentication
// ===========================================================================

func TestAuthenticate_TenantUser(t *testing.T) {
	f := newFixture(t)
	tenantID, _ := f.register(t, "acme")

	res, err := f.identity.Authenticate(context.Background(), service.LoginInput{
		Email: "ADMIN@acme.test", Password: "password123", TenantSubdomain: "acme",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, tenantID, *res.User.TenantID)

	session, err := f.identity.VerifySession(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, session.Claims.UserID)
	assert.Equal(t, models.RoleTenantAdmin, session.Claims.Role)
}

func TestAuthenticate_FailuresAreUniform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, admin := f.register(t, "acme")
	member := f.addUser(t, admin, tenantID, "member@acme.test", models.RoleUser)
	_, err := f.users.Update(ctx, admin, member.UserID, models.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	f.register(t, "globex")

	tests := []struct {
		name string
		in   service.LoginInput
	}{
		{"wrong password", service.LoginInput{Email: "admin@acme.test", Password: "wrong-password", TenantSubdomain: "acme"}},
		{"unknown email", service.LoginInput{Email: "ghost@acme.test", Password: "password123", TenantSubdomain: "acme"}},
		{"inactive user", service.LoginInput{Email: "member@acme.test", Password: "password123", TenantSubdomain: "acme"}},
		{"user of another tenant", service.LoginInput{Email: "admin@globex.test", Password: "password123", TenantSubdomain: "acme"}},
		{"tenant user without subdomain", service.LoginInput{Email: "admin@acme.test", Password: "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.identity.Authenticate(ctx, tt.in)
			se := requireKind(t, err, service.ErrInvalidCredentials)
			assert.Equal(t, "Invalid credentials", se.Message)
		})
	}
}

func TestAuthenticate_TenantState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, _ := f.register(t, "acme")

	_, err := f.identity.Authenticate(ctx, service.LoginInput{
		Email: "admin@acme.test", Password: "password123", TenantSubdomain: "nope",
	})
	se := requireKind(t, err, service.ErrNotFound)
	assert.Equal(t, service.CodeTenantNotFound, se.Code)

	_, err = f.store.UpdateTenant(ctx, tenantID, models.TenantPatch{Status: ptr(models.TenantSuspended)})
	require.NoError(t, err)

	_, err = f.identity.Authenticate(ctx, service.LoginInput{
		Email: "admin@acme.test", Password: "password123", TenantSubdomain: "acme",
	})
	se = requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, service.CodeTenantInactive, se.Code)
}

func TestAuthenticate_SuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.identity.EnsureSuperAdmin(ctx, "root@platform.test", "rootpassword", "Root")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = f.identity.EnsureSuperAdmin(ctx, "root@platform.test", "rootpassword", "Root")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := f.identity.Authenticate(ctx, service.LoginInput{Email: "root@platform.test", Password: "rootpassword"})
	require.NoError(t, err)
	assert.Nil(t, res.User.TenantID)
	assert.Equal(t, models.RoleSuperAdmin, res.User.Role)

	f.register(t, "acme")
	_, err = f.identity.Authenticate(ctx, service.LoginInput{
		Email: "root@platform.test", Password: "rootpassword", TenantSubdomain: "acme",
	})
	requireKind(t, err, service.ErrInvalidCredentials)
}

func TestLogout_RevokesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "acme")

	res, err := f.identity.Authenticate(ctx, service.LoginInput{
		Email: "admin@acme.test", Password: "password123", TenantSubdomain: "acme",
	})
	require.NoError(t, err)
	session, err := f.identity.VerifySession(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, f.identity.Logout(ctx, session))

	_, err = f.identity.VerifySession(ctx, res.Token)
	requireKind(t, err, service.ErrInvalidToken)
}

func TestVerifySession_Garbage(t *testing.T) {
	f := newFixture(t)
	_, err := f.identity.VerifySession(context.Background(), "not.a.token")
	requireKind(t, err, service.ErrInvalidToken)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tenantID, admin := f.register(t, "acme")

	me, err := f.identity.CurrentUser(ctx, admin)
	require.NoError(t, err)
	require.NotNil(t, me.Tenant)
	assert.Equal(t, tenantID, me.Tenant.ID)

	member := f.addUser(t, admin, tenantID, "member@acme.test", models.RoleUser)
	_, err = f.users.Update(ctx, admin, member.UserID, models.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = f.identity.CurrentUser(ctx, member)
	requireKind(t, err, service.ErrInvalidToken)

	root := f.superAdmin(t)
	me, err = f.identity.CurrentUser(ctx, root)
	require.NoError(t, err)
	assert.Nil(t, me.Tenant)
}

// ===========================================================================
// Tenants
// ===========================================================================

func TestTenantGet_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, acmeAdmin := f.register(t, "acme")
	globex, _ := f.register(t, "globex")
	f.project(t, acmeAdmin, "Roadmap")

	details, err := f.tenants.Get(ctx, acmeAdmin, acme)
	require.NoError(t, err)
	assert.Equal(t, 1, details.Stats.TotalUsers)
	assert.Equal(t, 1, details.Stats.TotalProjects)

	_, err = f.tenants.Get(ctx, acmeAdmin, globex)
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonUnauthorized, se.Message)

	_, err = f.tenants.Get(ctx, f.superAdmin(t), uuid.New())
	requireKind(t, err, service.ErrNotFound)
}

func TestTenantList_SuperAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, acmeAdmin := f.register(t, "acme")
	f.register(t, "globex")

	_, err := f.tenants.List(ctx, acmeAdmin, service.TenantListInput{})
	requireKind(t, err, service.ErrForbidden)

	page, err := f.tenants.List(ctx, f.superAdmin(t), service.TenantListInput{Search: "glob"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "globex", page.Items[0].Subdomain)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, service.TenantPageLimit, page.Pagination.Limit)
}

func TestTenantUpdate_RoleFiltering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)

	tenant, err := f.tenants.Update(ctx, admin, acme, models.TenantPatch{
		Name:     ptr("Acme Corp"),
		MaxUsers: ptr(500),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", tenant.Name)
	assert.Equal(t, 5, tenant.MaxUsers, "tenant admins cannot raise their own limits")

	tenant, err = f.tenants.Update(ctx, admin, acme, models.TenantPatch{MaxUsers: ptr(500)})
	require.NoError(t, err)
	assert.Equal(t, 5, tenant.MaxUsers)

	_, err = f.tenants.Update(ctx, member, acme, models.TenantPatch{Name: ptr("Mine")})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.tenants.Update(ctx, admin, acme, models.TenantPatch{})
	se := requireKind(t, err, service.ErrValidation)
	assert.Equal(t, "No valid fields to update", se.Message)

	root := f.superAdmin(t)
	tenant, err = f.tenants.Update(ctx, root, acme, models.TenantPatch{
		SubscriptionPlan: ptr(models.PlanPro),
		MaxUsers:         ptr(50),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PlanPro, tenant.SubscriptionPlan)
	assert.Equal(t, 50, tenant.MaxUsers)

	_, err = f.tenants.Update(ctx, root, acme, models.TenantPatch{MaxProjects: ptr(0)})
	requireKind(t, err, service.ErrValidation)
}

// ===========================================================================
// Users
// ===========================================================================

func TestUserAdd_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	globex, _ := f.register(t, "globex")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)

	_, err := f.users.Add(ctx, member, acme, service.AddUserInput{
		Email: "x@acme.test", Password: "password123", FullName: "X",
	})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.users.Add(ctx, admin, globex, service.AddUserInput{
		Email: "x@globex.test", Password: "password123", FullName: "X",
	})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.users.Add(ctx, admin, acme, service.AddUserInput{
		Email: "x@acme.test", Password: "password123", FullName: "X", Role: models.RoleSuperAdmin,
	})
	requireKind(t, err, service.ErrForbidden)

	u, err := f.users.Add(ctx, f.superAdmin(t), globex, service.AddUserInput{
		Email: "x@globex.test", Password: "password123", FullName: "X",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.True(t, u.IsActive)

	_, err = f.users.Add(ctx, admin, acme, service.AddUserInput{
		Email: "x@globex.test", Password: "password123", FullName: "Dup",
	})
	se := requireKind(t, err, service.ErrConflict)
	assert.Equal(t, service.CodeDuplicateEmail, se.Code)
}

func TestUserAdd_LimitReached(t *testing.T) {
	f := newFixture(t)
	acme, admin := f.register(t, "acme")

	for i := 1; i < models.DefaultMaxUsers; i++ {
		f.addUser(t, admin, acme, fmt.Sprintf("user%d@acme.test", i), models.RoleUser)
	}

	_, err := f.users.Add(context.Background(), admin, acme, service.AddUserInput{
		Email: "one-too-many@acme.test", Password: "password123", FullName: "Extra",
	})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, service.CodeLimitReached, se.Code)
}

func TestUserList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	f.register(t, "globex")

	page, err := f.users.List(ctx, admin, acme, service.UserListInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, service.UserPageLimit, page.Pagination.Limit)

	page, err = f.users.List(ctx, admin, acme, service.UserListInput{Role: models.RoleUser})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, member.UserID, page.Items[0].ID)

	_, err = f.users.List(ctx, member, acme, service.UserListInput{})
	requireKind(t, err, service.ErrForbidden)
}

func TestUserUpdate_SelfService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)

	u, err := f.users.Update(ctx, member, member.UserID, models.UserPatch{FullName: ptr("New Name")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", u.FullName)

	_, err = f.users.Update(ctx, member, member.UserID, models.UserPatch{Role: ptr(models.RoleTenantAdmin)})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonSelfUpdate, se.Message)

	_, err = f.users.Update(ctx, admin, admin.UserID, models.UserPatch{IsActive: ptr(false)})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.users.Update(ctx, member, admin.UserID, models.UserPatch{FullName: ptr("Hijack")})
	requireKind(t, err, service.ErrForbidden)

	stored, err := f.store.GetUser(ctx, member.UserID, &acme)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, stored.Role)
}

func TestUserUpdate_Admin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)

	u, err := f.users.Update(ctx, admin, member.UserID, models.UserPatch{
		Role:     ptr(models.RoleTenantAdmin),
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTenantAdmin, u.Role)
	assert.False(t, u.IsActive)

	_, err = f.users.Update(ctx, admin, member.UserID, models.UserPatch{Role: ptr(models.RoleSuperAdmin)})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.users.Update(ctx, globexAdmin, member.UserID, models.UserPatch{FullName: ptr("x")})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonUnauthorized, se.Message)

	_, err = f.users.Update(ctx, admin, uuid.New(), models.UserPatch{FullName: ptr("x")})
	requireKind(t, err, service.ErrNotFound)

	_, err = f.users.Update(ctx, admin, member.UserID, models.UserPatch{})
	requireKind(t, err, service.ErrValidation)
}

func TestUserDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	other := f.addUser(t, admin, acme, "other@acme.test", models.RoleUser)

	err := f.users.Delete(ctx, admin, admin.UserID)
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonSelfDelete, se.Message)

	err = f.users.Delete(ctx, member, other.UserID)
	requireKind(t, err, service.ErrForbidden)

	p := f.project(t, admin, "Roadmap")
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{Title: "Plan", AssignedTo: &member.UserID})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, admin, member.UserID))

	got, err := f.tasks.Get(ctx, admin, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.AssignedTo)

	err = f.users.Delete(ctx, admin, member.UserID)
	requireKind(t, err, service.ErrNotFound)

	err = f.users.Delete(ctx, admin, f.superAdmin(t).UserID)
	requireKind(t, err, service.ErrForbidden)
}

// ===========================================================================
// Projects
// ===========================================================================

func TestProjectCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)

	p, err := f.projects.Create(ctx, member, service.CreateProjectInput{
		Name:        "Roadmap",
		Description: ptr("   "),
	})
	require.NoError(t, err)
	assert.Equal(t, acme, p.TenantID)
	assert.Equal(t, models.ProjectActive, p.Status)
	assert.Nil(t, p.Description)
	require.NotNil(t, p.CreatedBy)
	assert.Equal(t, member.UserID, *p.CreatedBy)

	_, err = f.projects.Create(ctx, member, service.CreateProjectInput{Name: ""})
	requireKind(t, err, service.ErrValidation)

	_, err = f.projects.Create(ctx, member, service.CreateProjectInput{Name: "X", Status: "paused"})
	requireKind(t, err, service.ErrValidation)

	_, err = f.projects.Create(ctx, f.superAdmin(t), service.CreateProjectInput{Name: "Platform"})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonTenantAccountReq, se.Message)
}

func TestProjectCreate_LimitReached(t *testing.T) {
	f := newFixture(t)
	_, admin := f.register(t, "acme")
	for i := 0; i < models.DefaultMaxProjects; i++ {
		f.project(t, admin, fmt.Sprintf("Project %d", i))
	}

	_, err := f.projects.Create(context.Background(), admin, service.CreateProjectInput{Name: "Extra"})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, service.CodeLimitReached, se.Code)
	assert.Equal(t, "Subscription limit reached", se.Message)
}

func TestProject_CrossTenantIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, acmeAdmin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	p := f.project(t, acmeAdmin, "Secret")

	_, err := f.projects.Get(ctx, globexAdmin, p.ID)
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonUnauthorized, se.Message)

	_, err = f.projects.Update(ctx, globexAdmin, p.ID, models.ProjectPatch{Name: ptr("Pwned")})
	requireKind(t, err, service.ErrForbidden)

	err = f.projects.Delete(ctx, globexAdmin, p.ID)
	requireKind(t, err, service.ErrForbidden)

	_, err = f.projects.Get(ctx, globexAdmin, uuid.New())
	se = requireKind(t, err, service.ErrNotFound)
	assert.Equal(t, "Project not found", se.Message)

	page, err := f.projects.List(ctx, globexAdmin, service.ProjectListInput{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)

	_, err = f.projects.List(ctx, globexAdmin, service.ProjectListInput{TenantID: &acme})
	requireKind(t, err, service.ErrForbidden)

	got, err := f.projects.Get(ctx, acmeAdmin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Secret", got.Name)
}

func TestProjectList_SuperAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, acmeAdmin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	f.project(t, acmeAdmin, "A")
	f.project(t, globexAdmin, "B")
	root := f.superAdmin(t)

	page, err := f.projects.List(ctx, root, service.ProjectListInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.projects.List(ctx, root, service.ProjectListInput{TenantID: &acme})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A", page.Items[0].Name)
	require.NotNil(t, page.Items[0].CreatedByName)
	assert.Equal(t, "Admin acme", *page.Items[0].CreatedByName)
}

func TestProjectList_PaginationClamp(t *testing.T) {
	f := newFixture(t)
	_, admin := f.register(t, "acme")
	f.project(t, admin, "Only")

	page, err := f.projects.List(context.Background(), admin, service.ProjectListInput{
		Pagination: store.Pagination{Page: -3, Limit: 1000},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, store.MaxPageLimit, page.Pagination.Limit)
	assert.Len(t, page.Items, 1)

	page, err = f.projects.List(context.Background(), admin, service.ProjectListInput{
		Pagination: store.Pagination{Page: 5},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 1, page.Total)
}

func TestProjectUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, admin := f.register(t, "acme")
	p, err := f.projects.Create(ctx, admin, service.CreateProjectInput{Name: "Roadmap", Description: ptr("Q3")})
	require.NoError(t, err)

	updated, err := f.projects.Update(ctx, admin, p.ID, models.ProjectPatch{
		Status:      ptr(models.ProjectArchived),
		Description: models.Null[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, models.ProjectArchived, updated.Status)
	assert.Nil(t, updated.Description)
	assert.Equal(t, "Roadmap", updated.Name)

	_, err = f.projects.Update(ctx, admin, p.ID, models.ProjectPatch{})
	requireKind(t, err, service.ErrValidation)

	_, err = f.projects.Update(ctx, admin, p.ID, models.ProjectPatch{Status: ptr(models.ProjectStatus("gone"))})
	requireKind(t, err, service.ErrValidation)
}

func TestProjectDelete_CascadesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, admin := f.register(t, "acme")
	p := f.project(t, admin, "Roadmap")
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{Title: "Plan"})
	require.NoError(t, err)

	require.NoError(t, f.projects.Delete(ctx, admin, p.ID))

	_, err = f.tasks.Get(ctx, admin, task.ID)
	requireKind(t, err, service.ErrNotFound)
	_, err = f.projects.Get(ctx, admin, p.ID)
	requireKind(t, err, service.ErrNotFound)
}

// ===========================================================================
// Tasks
// ===========================================================================

func TestTaskCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	p := f.project(t, admin, "Roadmap")
	due := models.NewDate(2026, time.December, 1)

	task, err := f.tasks.Create(ctx, member, p.ID, service.CreateTaskInput{
		Title:      "Write plan",
		AssignedTo: &member.UserID,
		DueDate:    &due,
	})
	require.NoError(t, err)
	assert.Equal(t, acme, task.TenantID)
	assert.Equal(t, p.ID, task.ProjectID)
	assert.Equal(t, models.TaskTodo, task.Status)
	assert.Equal(t, models.PriorityMedium, task.Priority)
	assert.Equal(t, "2026-12-01", task.DueDate.String())

	_, err = f.tasks.Create(ctx, member, p.ID, service.CreateTaskInput{Title: "X", Priority: "urgent"})
	requireKind(t, err, service.ErrValidation)

	_, err = f.tasks.Create(ctx, member, uuid.New(), service.CreateTaskInput{Title: "X"})
	requireKind(t, err, service.ErrNotFound)
}

func TestTaskCreate_CrossTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, acmeAdmin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	acmeProject := f.project(t, acmeAdmin, "Acme")
	globexProject := f.project(t, globexAdmin, "Globex")

	_, err := f.tasks.Create(ctx, globexAdmin, acmeProject.ID, service.CreateTaskInput{Title: "Sneaky"})
	se := requireKind(t, err, service.ErrForbidden)
	assert.Equal(t, access.ReasonUnauthorized, se.Message)

	_, err = f.tasks.Create(ctx, globexAdmin, globexProject.ID, service.CreateTaskInput{
		Title:      "Assign outside",
		AssignedTo: &acmeAdmin.UserID,
	})
	requireKind(t, err, service.ErrValidation)

	page, err := f.tasks.List(ctx, acmeAdmin, service.TaskListInput{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestTaskUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	p := f.project(t, admin, "Roadmap")
	due := models.NewDate(2026, time.December, 1)
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{Title: "Plan", DueDate: &due})
	require.NoError(t, err)

	updated, err := f.tasks.Update(ctx, member, task.ID, models.TaskPatch{
		Priority:   ptr(models.PriorityHigh),
		AssignedTo: models.Some(member.UserID),
		DueDate:    models.Null[models.Date](),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, updated.Priority)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, member.UserID, *updated.AssignedTo)
	assert.Nil(t, updated.DueDate)
	assert.Equal(t, "Plan", updated.Title)

	_, err = f.tasks.Update(ctx, admin, task.ID, models.TaskPatch{AssignedTo: models.Some(globexAdmin.UserID)})
	requireKind(t, err, service.ErrValidation)

	_, err = f.tasks.Update(ctx, globexAdmin, task.ID, models.TaskPatch{Title: ptr("Pwned")})
	requireKind(t, err, service.ErrForbidden)

	_, err = f.tasks.Update(ctx, admin, task.ID, models.TaskPatch{})
	requireKind(t, err, service.ErrValidation)
}

func TestTaskUpdateStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, admin := f.register(t, "acme")
	p := f.project(t, admin, "Roadmap")
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{Title: "Plan"})
	require.NoError(t, err)

	updated, err := f.tasks.UpdateStatus(ctx, admin, task.ID, models.TaskInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, updated.Status)

	_, err = f.tasks.UpdateStatus(ctx, admin, task.ID, "done")
	requireKind(t, err, service.ErrValidation)
}

func TestTaskUpdateStatus_SameStatusAdvancesUpdatedAt(t *testing.T) {
	var (
		mu    sync.Mutex
		clock = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	)
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	f := newFixture(t, memory.WithClock(tick))
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	p := f.project(t, admin, "Roadmap")
	due := models.NewDate(2026, time.March, 1)
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{
		Title:      "Plan",
		Priority:   models.PriorityHigh,
		AssignedTo: &member.UserID,
		DueDate:    &due,
	})
	require.NoError(t, err)

	first, err := f.tasks.UpdateStatus(ctx, admin, task.ID, models.TaskTodo)
	require.NoError(t, err)
	second, err := f.tasks.UpdateStatus(ctx, admin, task.ID, models.TaskTodo)
	require.NoError(t, err)

	assert.Equal(t, models.TaskTodo, second.Status)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt), "updatedAt %s not after %s", second.UpdatedAt, first.UpdatedAt)
	assert.Equal(t, task.Title, second.Title)
	assert.Equal(t, task.Priority, second.Priority)
	require.NotNil(t, second.AssignedTo)
	assert.Equal(t, member.UserID, *second.AssignedTo)
	require.NotNil(t, second.DueDate)
	assert.Equal(t, due.String(), second.DueDate.String())
	assert.Equal(t, task.CreatedAt, second.CreatedAt)
}

func TestTaskList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme, admin := f.register(t, "acme")
	member := f.addUser(t, admin, acme, "member@acme.test", models.RoleUser)
	roadmap := f.project(t, admin, "Roadmap")
	ops := f.project(t, admin, "Ops")

	_, err := f.tasks.Create(ctx, admin, roadmap.ID, service.CreateTaskInput{Title: "Draft roadmap", AssignedTo: &member.UserID})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, admin, roadmap.ID, service.CreateTaskInput{Title: "Review", Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, admin, ops.ID, service.CreateTaskInput{Title: "Rotate keys", Status: models.TaskCompleted})
	require.NoError(t, err)

	page, err := f.tasks.ListByProject(ctx, member, roadmap.ID, service.TaskListInput{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	for _, task := range page.Items {
		assert.Equal(t, "Roadmap", task.ProjectName)
	}

	page, err = f.tasks.List(ctx, member, service.TaskListInput{AssignedTo: &member.UserID})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotNil(t, page.Items[0].AssigneeName)
	assert.Equal(t, "User member@acme.test", *page.Items[0].AssigneeName)

	page, err = f.tasks.List(ctx, member, service.TaskListInput{Status: models.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Rotate keys", page.Items[0].Title)

	page, err = f.tasks.List(ctx, member, service.TaskListInput{Search: "ROAD"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = f.tasks.List(ctx, member, service.TaskListInput{Priority: "urgent"})
	requireKind(t, err, service.ErrValidation)
}

func TestTaskDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, admin := f.register(t, "acme")
	_, globexAdmin := f.register(t, "globex")
	p := f.project(t, admin, "Roadmap")
	task, err := f.tasks.Create(ctx, admin, p.ID, service.CreateTaskInput{Title: "Plan"})
	require.NoError(t, err)

	err = f.tasks.Delete(ctx, globexAdmin, task.ID)
	requireKind(t, err, service.ErrForbidden)

	require.NoError(t, f.tasks.Delete(ctx, admin, task.ID))
	err = f.tasks.Delete(ctx, admin, task.ID)
	requireKind(t, err, service.ErrNotFound)
}
