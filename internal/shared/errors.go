package shared

import (
	"errors"
	"fmt"

	"github.com/lesnich/TeamMotion/internal/authz"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict (email, company name).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrValidation indicates rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBlocked indicates a deactivated account.
	ErrAccountBlocked = errors.New("account has been blocked")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// PermissionError surfaces an authorization denial to the transport layer.
// The reason code selects the response detail; the status is always 403.
type PermissionError struct {
	Reason authz.Reason
}

func (e *PermissionError) Error() string {
	return "forbidden: " + string(e.Reason)
}

// Denied converts a deny Decision into a transportable error.
func Denied(d authz.Decision) error {
	return &PermissionError{Reason: d.Reason}
}

// Invalid wraps a validation message in ErrValidation.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
