// Package authz is the authorization-scoping engine shared by every
// resource module. It is purely computational: callers resolve ownership
// metadata up front and pass it in, the gate returns a Decision.
package authz

import "errors"

// Role is a coarse account role.
type Role string

// Platform roles.
const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
	RoleRoot  Role = "Root"
)

// Action classifies what a caller wants to do with a resource.
type Action string

// Supported actions.
const (
	ActionRead   Action = "read"
	ActionList   Action = "list"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource identifies the entity type a decision applies to.
type Resource string

// Supported resource types.
const (
	ResourceActivity Resource = "activity"
	ResourceSleep    Resource = "sleep"
	ResourceChallenge Resource = "challenge"
	ResourceProgress  Resource = "challenge_progress"
	ResourceCompany   Resource = "company"
	ResourceUser      Resource = "user"
)

// Principal is the authenticated actor. It is built once per request by the
// auth middleware and never mutated afterwards. CompanyID is zero for
// accounts without a company affiliation.
type Principal struct {
	ID        int64
	Roles     []Role
	CompanyID int64
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsRoot reports whether the principal carries the Root role.
func (p Principal) IsRoot() bool {
	return p.HasRole(RoleRoot)
}

// Descriptor carries the ownership metadata of a target record. Callers
// resolve CompanyID through the owning user before invoking the gate, since
// most records store the owner id but not the company. Roles is the role set
// of the target record itself and is only meaningful for user records.
//
// Descriptors are resolved fresh per request: company affiliation can change
// between requests, so they must never be cached.
type Descriptor struct {
	OwnerID   int64
	CompanyID int64
	Roles     []Role
}

// Reason explains a denial. The zero value means "no denial".
type Reason string

// Denial reasons, mapped to transport responses by the handler layer.
const (
	ReasonPolicyDenied     Reason = "policy_denied"
	ReasonNotOwner         Reason = "not_owner"
	ReasonNoCompany        Reason = "no_company"
	ReasonCompanyMismatch  Reason = "company_mismatch"
	ReasonPrivilegedTarget Reason = "privileged_target_protected"
)

// FilterKind selects the shape of a list scope filter.
type FilterKind int

// Filter kinds, from narrowest to widest.
const (
	FilterByOwner FilterKind = iota
	FilterByCompanyMembers
	FilterUnrestricted
)

// Filter is a declarative predicate restricting list queries. Repositories
// translate FilterByCompanyMembers into a members-of-company subquery.
type Filter struct {
	Kind      FilterKind
	OwnerID   int64
	CompanyID int64
}

// Decision is the outcome of an authorization check. Denials are values, not
// errors; callers must inspect Allowed explicitly. For list actions Filter
// describes the allowed scope.
type Decision struct {
	Allowed bool
	Reason  Reason
	Filter  Filter
}

// ErrMalformedInput indicates an unknown action or resource type. This is a
// caller defect, never a legitimate denial.
var ErrMalformedInput = errors.New("authz: unknown action or resource type")

func validAction(a Action) bool {
	switch a {
	case ActionRead, ActionList, ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

func validResource(r Resource) bool {
	switch r {
	case ResourceActivity, ResourceSleep, ResourceChallenge, ResourceProgress, ResourceCompany, ResourceUser:
		return true
	}
	return false
}

func rolesInclude(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
