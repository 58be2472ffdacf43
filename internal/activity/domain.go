package activity

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// Source identifies where a record originated.
type Source string

// Known activity sources.
const (
	SourceManual    Source = "manual"
	SourceGoogleFit Source = "google_fit"
)

// ValidSource reports whether s is a known source.
func ValidSource(s Source) bool {
	return s == SourceManual || s == SourceGoogleFit
}

// Activity is one day's worth of movement for a user. Distance is kilometers,
// Calories kcal, Duration minutes.
type Activity struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Type      string    `json:"type"`
	Steps     int       `json:"steps"`
	Calories  float64   `json:"calories"`
	Distance  float64   `json:"distance"`
	Duration  int       `json:"duration"`
	Source    Source    `json:"source"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Descriptor returns ownership metadata for the authorization gate. The
// caller fills in the owner's company, resolved fresh per request.
func (a Activity) Descriptor(companyID int64) *authz.Descriptor {
	return &authz.Descriptor{OwnerID: a.UserID, CompanyID: companyID}
}

// ListQuery captures list filters and pagination.
type ListQuery struct {
	UserID int64
	Source Source
	From   time.Time
	To     time.Time
	Page   int
	Limit  int
}

// CreateInput is the payload for recording an activity.
type CreateInput struct {
	Type     string    `json:"type" validate:"required,min=2"`
	Steps    int       `json:"steps" validate:"gte=0"`
	Calories float64   `json:"calories" validate:"gte=0"`
	Distance float64   `json:"distance" validate:"gte=0"`
	Duration int       `json:"duration" validate:"gte=0"`
	Source   Source    `json:"source"`
	Date     time.Time `json:"date" validate:"required"`
}

// UpdateInput is the payload for editing an activity. Nil fields are left
// untouched.
type UpdateInput struct {
	Type     *string    `json:"type" validate:"omitempty,min=2"`
	Steps    *int       `json:"steps" validate:"omitempty,gte=0"`
	Calories *float64   `json:"calories" validate:"omitempty,gte=0"`
	Distance *float64   `json:"distance" validate:"omitempty,gte=0"`
	Duration *int       `json:"duration" validate:"omitempty,gte=0"`
	Date     *time.Time `json:"date"`
}
