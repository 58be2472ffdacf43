package auth

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// User represents an authenticated user account. CompanyID is zero for
// accounts without a company affiliation.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Active       bool
	Roles        []authz.Role
	CompanyID    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal derives the immutable request principal from the account.
func (u *User) Principal() authz.Principal {
	roles := make([]authz.Role, len(u.Roles))
	copy(roles, u.Roles)
	return authz.Principal{ID: u.ID, Roles: roles, CompanyID: u.CompanyID}
}
