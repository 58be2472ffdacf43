package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/platform/httpx"
	"github.com/lesnich/TeamMotion/internal/shared"
)

// Middleware resolves the session user into an authz.Principal for each
// request. Handlers downstream read the principal from context; it is built
// once and never mutated.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequirePrincipal rejects unauthenticated requests and stores the principal
// in context.
func (m Middleware) RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		userID := sess.User()
		if userID == 0 {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}

		principal, err := m.Service.Principal(r.Context(), userID)
		if err != nil {
			switch {
			case errors.Is(err, shared.ErrAccountBlocked):
				httpx.Problem(w, http.StatusForbidden, "Forbidden", shared.ErrAccountBlocked.Error())
			case errors.Is(err, shared.ErrNotFound):
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "account no longer exists")
			default:
				if m.Logger != nil {
					m.Logger.Error("auth resolve principal", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			}
			return
		}

		ctx := authz.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
