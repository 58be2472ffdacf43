package authz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/authz"
)

func TestOwnOnlyUpdate(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}, CompanyID: 10}

	d, err := gate.Authorize(p, authz.ActionUpdate, authz.ResourceActivity, &authz.Descriptor{OwnerID: 1, CompanyID: 10})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	d, err = gate.Authorize(p, authz.ActionUpdate, authz.ResourceActivity, &authz.Descriptor{OwnerID: 2, CompanyID: 10})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonNotOwner, d.Reason)
}

func TestCompanyScopedRead(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}, CompanyID: 10}

	d, err := gate.Authorize(p, authz.ActionRead, authz.ResourceSleep, &authz.Descriptor{OwnerID: 2, CompanyID: 10})
	require.NoError(t, err)
	require.True(t, d.Allowed, "company mates are visible for reads")

	d, err = gate.Authorize(p, authz.ActionRead, authz.ResourceSleep, &authz.Descriptor{OwnerID: 2, CompanyID: 11})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonCompanyMismatch, d.Reason)

	orphan := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}}
	d, err = gate.Authorize(orphan, authz.ActionRead, authz.ResourceSleep, &authz.Descriptor{OwnerID: 2, CompanyID: 10})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonNoCompany, d.Reason)
}

func TestAdminDeleteOtherCompany(t *testing.T) {
	gate := authz.NewGate()
	admin := authz.Principal{ID: 5, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 1}

	d, err := gate.Authorize(admin, authz.ActionDelete, authz.ResourceActivity, &authz.Descriptor{OwnerID: 9, CompanyID: 2})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonCompanyMismatch, d.Reason)

	d, err = gate.Authorize(admin, authz.ActionDelete, authz.ResourceActivity, &authz.Descriptor{OwnerID: 9, CompanyID: 1})
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestRootSupremacy(t *testing.T) {
	gate := authz.NewGate()
	root := authz.Principal{ID: 99, Roles: []authz.Role{authz.RoleRoot}}

	for _, res := range []authz.Resource{authz.ResourceActivity, authz.ResourceSleep, authz.ResourceChallenge, authz.ResourceProgress, authz.ResourceCompany} {
		for _, act := range []authz.Action{authz.ActionRead, authz.ActionCreate, authz.ActionUpdate, authz.ActionDelete} {
			d, err := gate.Authorize(root, act, res, &authz.Descriptor{OwnerID: 1, CompanyID: 42})
			require.NoError(t, err)
			require.True(t, d.Allowed, "root must pass %s on %s", act, res)
		}
	}
}

func TestRootTargetMutationDeniedForEveryone(t *testing.T) {
	gate := authz.NewGate()
	target := &authz.Descriptor{OwnerID: 7, CompanyID: 1, Roles: []authz.Role{authz.RoleRoot}}

	actors := []authz.Principal{
		{ID: 99, Roles: []authz.Role{authz.RoleRoot}},
		{ID: 5, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 1},
		{ID: 2, Roles: []authz.Role{authz.RoleUser}, CompanyID: 1},
	}
	for _, actor := range actors {
		for _, act := range []authz.Action{authz.ActionUpdate, authz.ActionDelete} {
			d, err := gate.Authorize(actor, act, authz.ResourceUser, target)
			require.NoError(t, err)
			require.False(t, d.Allowed)
			require.Equal(t, authz.ReasonPrivilegedTarget, d.Reason)
		}
	}

	// The root account itself may still self-update.
	self := authz.Principal{ID: 7, Roles: []authz.Role{authz.RoleRoot}}
	d, err := gate.Authorize(self, authz.ActionUpdate, authz.ResourceUser, target)
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Reads of a root account stay open to root actors only.
	d, err = gate.Authorize(actors[0], authz.ActionRead, authz.ResourceUser, target)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	d, err = gate.Authorize(actors[1], authz.ActionRead, authz.ResourceUser, target)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonPrivilegedTarget, d.Reason)
}

func TestAdminCannotTouchOtherAdmin(t *testing.T) {
	gate := authz.NewGate()
	admin := authz.Principal{ID: 5, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 1}
	otherAdmin := &authz.Descriptor{OwnerID: 6, CompanyID: 1, Roles: []authz.Role{authz.RoleAdmin, authz.RoleUser}}

	for _, act := range []authz.Action{authz.ActionRead, authz.ActionUpdate, authz.ActionDelete} {
		d, err := gate.Authorize(admin, act, authz.ResourceUser, otherAdmin)
		require.NoError(t, err)
		require.False(t, d.Allowed, "admin must not %s another admin", act)
		require.Equal(t, authz.ReasonPrivilegedTarget, d.Reason)
	}

	// Self-update stays possible for admins.
	selfDesc := &authz.Descriptor{OwnerID: 5, CompanyID: 1, Roles: []authz.Role{authz.RoleAdmin}}
	d, err := gate.Authorize(admin, authz.ActionUpdate, authz.ResourceUser, selfDesc)
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestAdminCannotCreateAdmin(t *testing.T) {
	gate := authz.NewGate()
	admin := authz.Principal{ID: 5, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 1}

	d, err := gate.Authorize(admin, authz.ActionCreate, authz.ResourceUser, &authz.Descriptor{CompanyID: 1, Roles: []authz.Role{authz.RoleAdmin}})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonPrivilegedTarget, d.Reason)

	d, err = gate.Authorize(admin, authz.ActionCreate, authz.ResourceUser, &authz.Descriptor{CompanyID: 1, Roles: []authz.Role{authz.RoleUser}})
	require.NoError(t, err)
	require.True(t, d.Allowed)

	root := authz.Principal{ID: 99, Roles: []authz.Role{authz.RoleRoot}}
	d, err = gate.Authorize(root, authz.ActionCreate, authz.ResourceUser, &authz.Descriptor{CompanyID: 1, Roles: []authz.Role{authz.RoleAdmin}})
	require.NoError(t, err)
	require.True(t, d.Allowed)
}

func TestMostPermissiveRoleWins(t *testing.T) {
	gate := authz.NewGate()
	// User+Admin principal gets the admin grant: company-wide update instead
	// of own-only, whichever order the roles arrive in.
	for _, roles := range [][]authz.Role{
		{authz.RoleUser, authz.RoleAdmin},
		{authz.RoleAdmin, authz.RoleUser},
	} {
		p := authz.Principal{ID: 5, Roles: roles, CompanyID: 1}
		d, err := gate.Authorize(p, authz.ActionUpdate, authz.ResourceActivity, &authz.Descriptor{OwnerID: 9, CompanyID: 1})
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
}

func TestFailClosedDefaults(t *testing.T) {
	gate := authz.NewGate()

	// No grant exists for plain users creating challenges.
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}, CompanyID: 1}
	d, err := gate.Authorize(p, authz.ActionCreate, authz.ResourceChallenge, nil)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonPolicyDenied, d.Reason)

	// Unknown roles hold no grants at all.
	ghost := authz.Principal{ID: 1, Roles: []authz.Role{authz.Role("Auditor")}, CompanyID: 1}
	d, err = gate.Authorize(ghost, authz.ActionRead, authz.ResourceActivity, &authz.Descriptor{OwnerID: 1, CompanyID: 1})
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonPolicyDenied, d.Reason)
}

func TestMalformedInput(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleRoot}}

	_, err := gate.Authorize(p, authz.Action("browse"), authz.ResourceActivity, nil)
	require.ErrorIs(t, err, authz.ErrMalformedInput)

	_, err = gate.Authorize(p, authz.ActionRead, authz.Resource("widget"), nil)
	require.ErrorIs(t, err, authz.ErrMalformedInput)
}

func TestDeterminism(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 3, Roles: []authz.Role{authz.RoleUser, authz.RoleAdmin}, CompanyID: 4}
	desc := &authz.Descriptor{OwnerID: 8, CompanyID: 4}

	first, err := gate.Authorize(p, authz.ActionRead, authz.ResourceProgress, desc)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		d, err := gate.Authorize(p, authz.ActionRead, authz.ResourceProgress, desc)
		require.NoError(t, err)
		require.Equal(t, first, d)
	}
}
