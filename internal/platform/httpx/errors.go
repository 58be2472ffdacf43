package httpx

import (
	"errors"
	"net/http"

	"github.com/lesnich/TeamMotion/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Denials
// from the authorization gate arrive as *shared.PermissionError and always
// map to 403 with the reason code in the detail field; clients use the code,
// not the text.
func RespondError(w http.ResponseWriter, err error) {
	var perm *shared.PermissionError
	switch {
	case errors.As(err, &perm):
		Problem(w, http.StatusForbidden, "Forbidden", string(perm.Reason))
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrAccountBlocked):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	default:
		// Includes authz.ErrMalformedInput: a caller defect, not a request error.
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
