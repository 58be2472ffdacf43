package users

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// User represents a user account for management. CompanyID is zero for
// accounts without a company; Department is meaningful only with a company.
type User struct {
	ID         int64        `json:"id"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	Roles      []authz.Role `json:"roles"`
	Active     bool         `json:"active"`
	CompanyID  int64        `json:"companyId,omitempty"`
	Department string       `json:"department,omitempty"`
	Approved   bool         `json:"approved"`
	IsOnline   bool         `json:"isOnline"`
	LastActive time.Time    `json:"lastActive"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// Descriptor returns the ownership metadata the authorization gate needs for
// this account. User records own themselves.
func (u User) Descriptor() *authz.Descriptor {
	return &authz.Descriptor{OwnerID: u.ID, CompanyID: u.CompanyID, Roles: u.Roles}
}

// ListQuery captures list filters, sorting and pagination.
type ListQuery struct {
	Role      string
	Email     string
	CompanyID int64
	Active    *bool
	SortBy    string
	Order     string
	Page      int
	Limit     int
}

// CreateInput is the payload for creating an account.
type CreateInput struct {
	Name       string       `json:"name" validate:"required,min=2"`
	Email      string       `json:"email" validate:"required,email"`
	Password   string       `json:"password" validate:"required,min=8"`
	Roles      []authz.Role `json:"roles" validate:"omitempty,min=1"`
	Active     *bool        `json:"active"`
	CompanyID  int64        `json:"companyId"`
	Department string       `json:"department"`
}

// UpdateInput is the payload for administrative updates. Nil fields are left
// untouched.
type UpdateInput struct {
	Name       *string      `json:"name" validate:"omitempty,min=2"`
	Email      *string      `json:"email" validate:"omitempty,email"`
	Password   *string      `json:"password" validate:"omitempty,min=8"`
	Roles      []authz.Role `json:"roles" validate:"omitempty,min=1"`
	Active     *bool        `json:"active"`
	CompanyID  *int64       `json:"companyId"`
	Department *string      `json:"department"`
}

// SelfUpdateInput is the payload for profile self-service.
type SelfUpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=2"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}
