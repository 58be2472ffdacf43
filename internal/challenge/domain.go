package challenge

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// Type selects the metric a challenge is scored on.
type Type string

// Known challenge types.
const (
	TypeSteps           Type = "steps"
	TypeCalories        Type = "calories"
	TypeDistance        Type = "distance"
	TypeMinutesActive   Type = "minutesActive"
	TypeCyclingDistance Type = "cyclingDistance"
)

// ValidType reports whether t is a known challenge type.
func ValidType(t Type) bool {
	switch t {
	case TypeSteps, TypeCalories, TypeDistance, TypeMinutesActive, TypeCyclingDistance:
		return true
	}
	return false
}

// Mode selects whether participants compete alone or in teams.
type Mode string

// Known challenge modes.
const (
	ModeIndividual Mode = "individual"
	ModeTeam       Mode = "team"
)

// ValidMode reports whether m is a known challenge mode.
func ValidMode(m Mode) bool {
	return m == ModeIndividual || m == ModeTeam
}

// Status is the lifecycle phase derived from the date window.
type Status string

// Lifecycle phases.
const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Challenge is a company-wide competition over a date window.
type Challenge struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"companyId"`
	CreatedBy   int64     `json:"createdBy"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        Type      `json:"type"`
	Mode        Mode      `json:"mode"`
	Status      Status    `json:"status"`
	Goal        float64   `json:"goal"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Descriptor returns ownership metadata for the authorization gate. The
// creating admin owns the challenge; mutations are owner-only below Root.
func (c Challenge) Descriptor() *authz.Descriptor {
	return &authz.Descriptor{OwnerID: c.CreatedBy, CompanyID: c.CompanyID}
}

// StatusFor derives the lifecycle phase from the date window at the given
// instant.
func (c Challenge) StatusFor(now time.Time) Status {
	switch {
	case now.Before(c.StartDate):
		return StatusUpcoming
	case now.After(c.EndDate):
		return StatusCompleted
	default:
		return StatusOngoing
	}
}

// Participant records a user who joined a challenge.
type Participant struct {
	ChallengeID int64     `json:"challengeId"`
	UserID      int64     `json:"userId"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// LeaderboardEntry is one ranked row of a challenge leaderboard.
type LeaderboardEntry struct {
	Rank   int     `json:"rank"`
	UserID int64   `json:"userId"`
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
}

// ListQuery captures list filters and pagination.
type ListQuery struct {
	Status Status
	Type   Type
	Page   int
	Limit  int
}

// CreateInput is the payload for launching a challenge. CompanyID is honoured
// only for unrestricted callers; everyone else launches within their own
// company.
type CreateInput struct {
	Title       string    `json:"title" validate:"required,min=2"`
	Description string    `json:"description"`
	Type        Type      `json:"type" validate:"required"`
	Mode        Mode      `json:"mode" validate:"required"`
	Goal        float64   `json:"goal" validate:"gt=0"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
	CompanyID   int64     `json:"companyId"`
}

// UpdateInput is the payload for editing a challenge. Nil fields are left
// untouched.
type UpdateInput struct {
	Title       *string    `json:"title" validate:"omitempty,min=2"`
	Description *string    `json:"description"`
	Goal        *float64   `json:"goal" validate:"omitempty,gt=0"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}
