package progress

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// Progress is one user's accumulated value toward a challenge goal. There is
// at most one row per (challenge, user) pair.
type Progress struct {
	ID          int64     `json:"id"`
	ChallengeID int64     `json:"challengeId"`
	UserID      int64     `json:"userId"`
	Value       float64   `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Descriptor returns ownership metadata for the authorization gate. The
// caller fills in the owner's company, resolved fresh per request.
func (p Progress) Descriptor(companyID int64) *authz.Descriptor {
	return &authz.Descriptor{OwnerID: p.UserID, CompanyID: companyID}
}

// ListQuery captures list filters and pagination.
type ListQuery struct {
	ChallengeID int64
	UserID      int64
	Page        int
	Limit       int
}

// UpsertInput is the payload for reporting progress.
type UpsertInput struct {
	ChallengeID int64   `json:"challengeId" validate:"required"`
	Value       float64 `json:"value" validate:"gte=0"`
}
