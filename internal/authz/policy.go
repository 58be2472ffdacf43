package authz

// Tier is the coarse permission level assigned to a (role, action, resource)
// triple. The zero value is TierDenied so that missing table entries fail
// closed.
type Tier int

// Tiers, from narrowest to widest.
const (
	TierDenied Tier = iota
	TierOwnOnly
	TierCompanyScoped
	TierUnrestricted
)

type policyKey struct {
	role     Role
	action   Action
	resource Resource
}

// defaultPolicy builds the static grant table. It is pure data: evaluated once
// at gate construction and read-only afterwards.
func defaultPolicy() map[policyKey]Tier {
	t := make(map[policyKey]Tier)

	grant := func(role Role, resource Resource, tier Tier, actions ...Action) {
		for _, a := range actions {
			t[policyKey{role: role, action: a, resource: resource}] = tier
		}
	}

	// Root is unrestricted everywhere. The gate short-circuits on the Root
	// role, but the table still records it so the query scoper sees the same
	// grants.
	for _, res := range []Resource{ResourceActivity, ResourceSleep, ResourceChallenge, ResourceProgress, ResourceCompany, ResourceUser} {
		grant(RoleRoot, res, TierUnrestricted, ActionRead, ActionList, ActionCreate, ActionUpdate, ActionDelete)
	}

	// Personal fitness records: reads are visible within the company so
	// leaderboards work; mutations are owner-only for plain users and
	// company-wide for admins.
	for _, res := range []Resource{ResourceActivity, ResourceSleep, ResourceProgress} {
		grant(RoleUser, res, TierCompanyScoped, ActionRead, ActionList)
		grant(RoleUser, res, TierOwnOnly, ActionCreate, ActionUpdate, ActionDelete)

		grant(RoleAdmin, res, TierCompanyScoped, ActionRead, ActionList, ActionUpdate, ActionDelete)
		grant(RoleAdmin, res, TierOwnOnly, ActionCreate)
	}

	// Challenges belong to a company; only admins run them, and only the
	// admin who created a challenge may change it.
	grant(RoleUser, ResourceChallenge, TierCompanyScoped, ActionRead, ActionList)
	grant(RoleAdmin, ResourceChallenge, TierCompanyScoped, ActionRead, ActionList, ActionCreate)
	grant(RoleAdmin, ResourceChallenge, TierOwnOnly, ActionUpdate, ActionDelete)

	// Companies: members may view their own; admins may create one and manage
	// theirs. Listing and deleting companies stays with Root.
	grant(RoleUser, ResourceCompany, TierCompanyScoped, ActionRead)
	grant(RoleAdmin, ResourceCompany, TierCompanyScoped, ActionRead, ActionUpdate)
	grant(RoleAdmin, ResourceCompany, TierUnrestricted, ActionCreate)

	// User administration: self-service for plain users, company-scoped for
	// admins. The privileged-target override in the gate further restricts
	// admin access to Admin/Root-tagged accounts.
	grant(RoleUser, ResourceUser, TierOwnOnly, ActionRead, ActionUpdate)
	grant(RoleAdmin, ResourceUser, TierCompanyScoped, ActionRead, ActionList, ActionCreate, ActionUpdate, ActionDelete)

	return t
}

// tierFor resolves the effective tier for a principal: the most permissive
// tier among the principal's roles. Unknown roles contribute nothing, so a
// principal with no recognised role lands on TierDenied.
func (g *Gate) tierFor(p Principal, action Action, resource Resource) Tier {
	tier := TierDenied
	for _, role := range p.Roles {
		if t := g.policies[policyKey{role: role, action: action, resource: resource}]; t > tier {
			tier = t
		}
	}
	return tier
}
