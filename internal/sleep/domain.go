package sleep

import (
	"time"

	"github.com/lesnich/TeamMotion/internal/authz"
)

// Source identifies where a record originated.
type Source string

// Known record sources.
const (
	SourceManual    Source = "manual"
	SourceGoogleFit Source = "google_fit"
)

// ValidSource reports whether s is a known source.
func ValidSource(s Source) bool {
	return s == SourceManual || s == SourceGoogleFit
}

// Record is one night of sleep for a user. Duration and stage values are
// minutes.
type Record struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  int       `json:"duration"`
	Light     int       `json:"lightMinutes"`
	Deep      int       `json:"deepMinutes"`
	Rem       int       `json:"remMinutes"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Descriptor returns ownership metadata for the authorization gate. The
// caller fills in the owner's company, resolved fresh per request.
func (rec Record) Descriptor(companyID int64) *authz.Descriptor {
	return &authz.Descriptor{OwnerID: rec.UserID, CompanyID: companyID}
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

// CreateInput is the payload for recording a night of sleep. Duration is
// derived from the start/end window when omitted.
type CreateInput struct {
	StartTime time.Time `json:"startTime" validate:"required"`
	EndTime   time.Time `json:"endTime" validate:"required"`
	Duration  int       `json:"duration" validate:"gte=0"`
	Light     int       `json:"lightMinutes" validate:"gte=0"`
	Deep      int       `json:"deepMinutes" validate:"gte=0"`
	Rem       int       `json:"remMinutes" validate:"gte=0"`
	Source    Source    `json:"source"`
}

// UpdateInput is the payload for editing a record. Nil fields are left
// untouched.
type UpdateInput struct {
	StartTime *time.Time `json:"startTime"`
	EndTime   *time.Time `json:"endTime"`
	Duration  *int       `json:"duration" validate:"omitempty,gte=0"`
	Light     *int       `json:"lightMinutes" validate:"omitempty,gte=0"`
	Deep      *int       `json:"deepMinutes" validate:"omitempty,gte=0"`
	Rem       *int       `json:"remMinutes" validate:"omitempty,gte=0"`
}
