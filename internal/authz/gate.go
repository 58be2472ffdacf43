package authz

import "fmt"

// Gate is the single entry point for authorization decisions. It holds only
// the immutable policy table, so a single instance is safe for concurrent use
// from any number of request handlers.
type Gate struct {
	policies map[policyKey]Tier
}

// NewGate builds a Gate with the default policy table. Construct once at
// process start and share.
func NewGate() *Gate {
	return &Gate{policies: defaultPolicy()}
}

// Authorize decides whether the principal may perform action on a resource.
// desc carries the target record's ownership metadata and must be non-nil for
// single-record operations; create passes the intended record's metadata (or
// nil when the caller stamps ownership itself). For list actions the returned
// Decision carries the scope filter.
//
// Denials are returned as data. The only error is ErrMalformedInput for
// unknown action/resource values, which callers treat as a programming error.
func (g *Gate) Authorize(p Principal, action Action, resource Resource, desc *Descriptor) (Decision, error) {
	if !validAction(action) {
		return Decision{}, fmt.Errorf("%w: action %q", ErrMalformedInput, action)
	}
	if !validResource(resource) {
		return Decision{}, fmt.Errorf("%w: resource %q", ErrMalformedInput, resource)
	}

	if action == ActionList {
		return g.ScopeList(p, resource)
	}

	// Privileged accounts are shielded before any tier logic: the outcome
	// must not depend on how wide the actor's grant is.
	if resource == ResourceUser && desc != nil {
		if d, blocked := privilegedTargetCheck(p, action, desc); blocked {
			return d, nil
		}
	}

	if p.IsRoot() {
		return Decision{Allowed: true}, nil
	}

	switch tier := g.tierFor(p, action, resource); tier {
	case TierUnrestricted:
		return Decision{Allowed: true}, nil
	case TierOwnOnly:
		if desc == nil {
			// Create-style call: the caller stamps the principal as owner.
			return Decision{Allowed: true}, nil
		}
		if desc.OwnerID == p.ID {
			return Decision{Allowed: true}, nil
		}
		return Decision{Reason: ReasonNotOwner}, nil
	case TierCompanyScoped:
		if p.CompanyID == 0 {
			return Decision{Reason: ReasonNoCompany}, nil
		}
		if desc == nil || desc.CompanyID == p.CompanyID {
			return Decision{Allowed: true}, nil
		}
		return Decision{Reason: ReasonCompanyMismatch}, nil
	default:
		return Decision{Reason: ReasonPolicyDenied}, nil
	}
}

// privilegedTargetCheck applies the hard override protecting Admin and Root
// tagged accounts. It runs before the Root short-circuit: a Root-tagged user
// may only be mutated by that same identity, whoever the actor is, so role
// tampering is impossible even between Root accounts. Non-Root actors may not
// target Admin/Root-tagged accounts at all (any action) unless acting on
// themselves.
func privilegedTargetCheck(p Principal, action Action, desc *Descriptor) (Decision, bool) {
	self := desc.OwnerID != 0 && desc.OwnerID == p.ID
	if self {
		return Decision{}, false
	}
	mutation := action == ActionUpdate || action == ActionDelete

	if rolesInclude(desc.Roles, RoleRoot) {
		if mutation || !p.IsRoot() {
			return Decision{Reason: ReasonPrivilegedTarget}, true
		}
		return Decision{}, false
	}
	if rolesInclude(desc.Roles, RoleAdmin) && !p.IsRoot() {
		return Decision{Reason: ReasonPrivilegedTarget}, true
	}
	return Decision{}, false
}
