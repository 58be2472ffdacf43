package company

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
	"github.com/lesnich/TeamMotion/internal/users"
)

type memoryRepo struct {
	nextID    int64
	companies map[int64]Company
}

func newMemoryRepo(seed ...Company) *memoryRepo {
	r := &memoryRepo{nextID: 1, companies: map[int64]Company{}}
	for _, c := range seed {
		if c.ID >= r.nextID {
			r.nextID = c.ID + 1
		}
		r.companies[c.ID] = c
	}
	return r
}

func (r *memoryRepo) Get(_ context.Context, id int64) (Company, error) {
	c, ok := r.companies[id]
	if !ok {
		return Company{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) List(_ context.Context, page, limit int) ([]Company, int, error) {
	var out []Company
	for _, c := range r.companies {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(_ context.Context, c Company) (Company, error) {
	c.ID = r.nextID
	r.nextID++
	r.companies[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Update(_ context.Context, c Company) (Company, error) {
	if _, ok := r.companies[c.ID]; !ok {
		return Company{}, shared.ErrNotFound
	}
	r.companies[c.ID] = c
	return c, nil
}

func (r *memoryRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.companies[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.companies, id)
	return nil
}

type memoryDirectory struct {
	users map[int64]users.User
}

func newMemoryDirectory(seed ...users.User) *memoryDirectory {
	d := &memoryDirectory{users: map[int64]users.User{}}
	for _, u := range seed {
		d.users[u.ID] = u
	}
	return d
}

func (d *memoryDirectory) Get(_ context.Context, id int64) (users.User, error) {
	u, ok := d.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (d *memoryDirectory) List(_ context.Context, q users.ListQuery, scope authz.Filter, viewer authz.Principal) ([]users.User, int, error) {
	var out []users.User
	for _, u := range d.users {
		if scope.Kind == authz.FilterByCompanyMembers && u.CompanyID != scope.CompanyID {
			continue
		}
		if !viewer.IsRoot() && u.ID != viewer.ID &&
			(hasRole(u.Roles, authz.RoleAdmin) || hasRole(u.Roles, authz.RoleRoot)) {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func hasRole(roles []authz.Role, want authz.Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func (d *memoryDirectory) AssignCompany(_ context.Context, userID, companyID int64, department string) (users.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	u.CompanyID = companyID
	u.Department = department
	u.Approved = true
	d.users[userID] = u
	return u, nil
}

func (d *memoryDirectory) Approve(_ context.Context, userID int64) (users.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	u.Approved = true
	d.users[userID] = u
	return u, nil
}

func (d *memoryDirectory) DetachUser(_ context.Context, userID int64) (users.User, error) {
	u, ok := d.users[userID]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	u.CompanyID = 0
	u.Department = ""
	u.Approved = false
	d.users[userID] = u
	return u, nil
}

func (d *memoryDirectory) DetachCompany(_ context.Context, companyID int64) error {
	for id, u := range d.users {
		if u.CompanyID == companyID {
			u.CompanyID = 0
			u.Department = ""
			u.Approved = false
			d.users[id] = u
		}
	}
	return nil
}

var (
	rootP  = authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleRoot}}
	adminP = authz.Principal{ID: 2, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 10}
	userP  = authz.Principal{ID: 3, Roles: []authz.Role{authz.RoleUser}, CompanyID: 10}
)

func seedCompanies() []Company {
	return []Company{
		{ID: 10, Name: "Acme", Departments: []string{"Engineering", "Sales"}, CreatedBy: 2},
		{ID: 20, Name: "Globex", CreatedBy: 5},
	}
}

func seedDirectory() []users.User {
	return []users.User{
		{ID: 1, Email: "root@teammotion.io", Roles: []authz.Role{authz.RoleRoot}, Active: true},
		{ID: 2, Email: "admin@acme.io", Roles: []authz.Role{authz.RoleAdmin}, Active: true, CompanyID: 10},
		{ID: 3, Email: "walker@acme.io", Roles: []authz.Role{authz.RoleUser}, Active: true, CompanyID: 10},
		{ID: 4, Email: "free@agent.io", Roles: []authz.Role{authz.RoleUser}, Active: true},
		{ID: 5, Email: "admin@globex.io", Roles: []authz.Role{authz.RoleAdmin}, Active: true, CompanyID: 20},
	}
}

func newTestService() (*Service, *memoryRepo, *memoryDirectory) {
	repo := newMemoryRepo(seedCompanies()...)
	dir := newMemoryDirectory(seedDirectory()...)
	return NewService(repo, dir, authz.NewGate(), nil), repo, dir
}

func TestCreateJoinsCreator(t *testing.T) {
	svc, _, dir := newTestService()
	ctx := context.Background()

	freeAdmin := authz.Principal{ID: 6, Roles: []authz.Role{authz.RoleAdmin}}
	dir.users[6] = users.User{ID: 6, Email: "founder@initech.io", Roles: []authz.Role{authz.RoleAdmin}, Active: true}

	created, err := svc.Create(ctx, freeAdmin, CreateInput{Name: "Initech"})
	require.NoError(t, err)
	require.Equal(t, int64(6), created.CreatedBy)
	require.Equal(t, created.ID, dir.users[6].CompanyID)
}

func TestCreateDeniedForPlainUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), userP, CreateInput{Name: "Rogue Inc"})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPolicyDenied, perm.Reason)
}

func TestGetScopedToOwnCompany(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Get(ctx, userP, 10)
	require.NoError(t, err)
	require.Equal(t, "Acme", c.Name)

	_, err = svc.Get(ctx, userP, 20)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)

	c, err = svc.Get(ctx, rootP, 20)
	require.NoError(t, err)
	require.Equal(t, "Globex", c.Name)
}

func TestListRootOnly(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	list, pagination, err := svc.List(ctx, rootP, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, 2, pagination.Total)

	_, _, err = svc.List(ctx, adminP, 1, 10)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPolicyDenied, perm.Reason)
}

func TestUpdateRequiresOwnCompany(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	name := "Acme Corp"
	updated, err := svc.Update(ctx, adminP, 10, UpdateInput{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Acme Corp", updated.Name)

	_, err = svc.Update(ctx, adminP, 20, UpdateInput{Name: &name})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)

	_, err = svc.Update(ctx, userP, 10, UpdateInput{Name: &name})
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPolicyDenied, perm.Reason)
}

func TestDeleteDetachesMembers(t *testing.T) {
	svc, repo, dir := newTestService()
	ctx := context.Background()

	err := svc.Delete(ctx, adminP, 10)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPolicyDenied, perm.Reason)

	require.NoError(t, svc.Delete(ctx, rootP, 10))
	_, err = repo.Get(ctx, 10)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Zero(t, dir.users[2].CompanyID)
	require.Zero(t, dir.users[3].CompanyID)
	require.False(t, dir.users[3].Approved)
}

func TestAssignUser(t *testing.T) {
	svc, _, dir := newTestService()
	ctx := context.Background()

	assigned, err := svc.AssignUser(ctx, adminP, 10, AssignInput{UserID: 4, Department: "Engineering"})
	require.NoError(t, err)
	require.Equal(t, int64(10), assigned.CompanyID)
	require.Equal(t, "Engineering", assigned.Department)
	require.True(t, assigned.Approved)
	require.Equal(t, int64(10), dir.users[4].CompanyID)
}

func TestAssignUserRejectsUnknownDepartment(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AssignUser(context.Background(), adminP, 10, AssignInput{UserID: 4, Department: "Skunkworks"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignUserPrivilegedTargetBlocked(t *testing.T) {
	svc, _, _ := newTestService()

	// Globex's admin is a privileged target for a non-root caller.
	_, err := svc.AssignUser(context.Background(), adminP, 10, AssignInput{UserID: 5})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonPrivilegedTarget, perm.Reason)
}

func TestAssignUserRejectsMemberOfOtherCompany(t *testing.T) {
	svc, _, dir := newTestService()

	dir.users[7] = users.User{ID: 7, Email: "runner@globex.io", Roles: []authz.Role{authz.RoleUser}, Active: true, CompanyID: 20}
	_, err := svc.AssignUser(context.Background(), adminP, 10, AssignInput{UserID: 7})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAssignUserOtherCompanyDenied(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.AssignUser(context.Background(), adminP, 20, AssignInput{UserID: 4})
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)
}

func TestApproveUser(t *testing.T) {
	svc, _, dir := newTestService()
	ctx := context.Background()

	dir.users[3] = users.User{ID: 3, Email: "walker@acme.io", Roles: []authz.Role{authz.RoleUser}, Active: true, CompanyID: 10, Approved: false}

	approved, err := svc.ApproveUser(ctx, adminP, 10, 3)
	require.NoError(t, err)
	require.True(t, approved.Approved)

	_, err = svc.ApproveUser(ctx, adminP, 10, 4)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRemoveUserClearsMembership(t *testing.T) {
	svc, _, dir := newTestService()
	ctx := context.Background()

	dir.users[3] = users.User{ID: 3, Email: "walker@acme.io", Roles: []authz.Role{authz.RoleUser}, Active: true, CompanyID: 10, Department: "Sales", Approved: true}

	removed, err := svc.RemoveUser(ctx, adminP, 10, 3)
	require.NoError(t, err)
	require.Zero(t, removed.CompanyID)
	require.Empty(t, removed.Department)
	require.False(t, removed.Approved)
}

func TestMembersListing(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	members, pagination, err := svc.Members(ctx, adminP, 10, 1, 10)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, 2, pagination.Total)

	// Plain members see co-workers but not the admin accounts.
	members, _, err = svc.Members(ctx, userP, 10, 1, 10)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, int64(3), members[0].ID)

	_, _, err = svc.Members(ctx, userP, 20, 1, 10)
	var perm *shared.PermissionError
	require.ErrorAs(t, err, &perm)
	require.Equal(t, authz.ReasonCompanyMismatch, perm.Reason)
}
