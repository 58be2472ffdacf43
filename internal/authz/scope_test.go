package authz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/authz"
)

func TestScopeListCompanyMembers(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}, CompanyID: 7}

	d, err := gate.ScopeList(p, authz.ResourceActivity)
	require.NoError(t, err)
	require.True(t, d.Allowed)
	require.Equal(t, authz.FilterByCompanyMembers, d.Filter.Kind)
	require.Equal(t, int64(7), d.Filter.CompanyID)
}

func TestScopeListRootUnrestricted(t *testing.T) {
	gate := authz.NewGate()
	root := authz.Principal{ID: 9, Roles: []authz.Role{authz.RoleRoot}}

	for _, res := range []authz.Resource{authz.ResourceActivity, authz.ResourceSleep, authz.ResourceChallenge, authz.ResourceProgress, authz.ResourceCompany, authz.ResourceUser} {
		d, err := gate.ScopeList(root, res)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, authz.FilterUnrestricted, d.Filter.Kind)
	}
}

func TestScopeListNoCompany(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}}

	d, err := gate.ScopeList(p, authz.ResourceSleep)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonNoCompany, d.Reason)
}

func TestScopeListDenied(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 1, Roles: []authz.Role{authz.RoleUser}, CompanyID: 7}

	d, err := gate.ScopeList(p, authz.ResourceUser)
	require.NoError(t, err)
	require.False(t, d.Allowed)
	require.Equal(t, authz.ReasonPolicyDenied, d.Reason)
}

func TestAuthorizeListDelegatesToScoper(t *testing.T) {
	gate := authz.NewGate()
	admin := authz.Principal{ID: 2, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 3}

	viaAuthorize, err := gate.Authorize(admin, authz.ActionList, authz.ResourceUser, nil)
	require.NoError(t, err)
	viaScope, err := gate.ScopeList(admin, authz.ResourceUser)
	require.NoError(t, err)
	require.Equal(t, viaScope, viaAuthorize)
	require.Equal(t, authz.FilterByCompanyMembers, viaAuthorize.Filter.Kind)
}

func TestScopeListDeterministic(t *testing.T) {
	gate := authz.NewGate()
	p := authz.Principal{ID: 4, Roles: []authz.Role{authz.RoleAdmin}, CompanyID: 2}

	first, err := gate.ScopeList(p, authz.ResourceProgress)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		d, err := gate.ScopeList(p, authz.ResourceProgress)
		require.NoError(t, err)
		require.Equal(t, first, d)
	}
}
