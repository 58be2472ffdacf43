package authz

import "fmt"

// ScopeList resolves the scope filter for a list operation. Instead of a
// per-record verdict it returns a Decision whose Filter the repository turns
// into a query predicate. The result is a pure function of the principal and
// resource type.
func (g *Gate) ScopeList(p Principal, resource Resource) (Decision, error) {
	if !validResource(resource) {
		return Decision{}, fmt.Errorf("%w: resource %q", ErrMalformedInput, resource)
	}

	if p.IsRoot() {
		return Decision{Allowed: true, Filter: Filter{Kind: FilterUnrestricted}}, nil
	}

	switch tier := g.tierFor(p, ActionList, resource); tier {
	case TierUnrestricted:
		return Decision{Allowed: true, Filter: Filter{Kind: FilterUnrestricted}}, nil
	case TierOwnOnly:
		return Decision{Allowed: true, Filter: Filter{Kind: FilterByOwner, OwnerID: p.ID}}, nil
	case TierCompanyScoped:
		if p.CompanyID == 0 {
			return Decision{Reason: ReasonNoCompany}, nil
		}
		return Decision{Allowed: true, Filter: Filter{Kind: FilterByCompanyMembers, CompanyID: p.CompanyID}}, nil
	default:
		return Decision{Reason: ReasonPolicyDenied}, nil
	}
}
