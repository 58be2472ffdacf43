package company

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// Company groups users for scoped visibility and challenges. Departments is
// the set of department names members may be assigned to.
type Company struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Departments []string  `json:"departments"`
	CreatedBy   int64     `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Descriptor returns ownership metadata for the authorization gate. A company
// is "inside" itself: company-scoped access means membership in this company.
func (c Company) Descriptor() *authz.Descriptor {
	return &authz.Descriptor{OwnerID: c.CreatedBy, CompanyID: c.ID}
}

// CreateInput is the payload for registering a company.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,min=2"`
	Description string   `json:"description"`
	Departments []string `json:"departments" validate:"omitempty,dive,min=1"`
}

// UpdateInput is the payload for editing a company. Nil fields are left
// untouched.
type UpdateInput struct {
	Name        *string  `json:"name" validate:"omitempty,min=2"`
	Description *string  `json:"description"`
	Departments []string `json:"departments" validate:"omitempty,dive,min=1"`
}

// AssignInput places a user into the company.
type AssignInput struct {
	UserID     int64  `json:"userId" validate:"required"`
	Department string `json:"department"`
}
