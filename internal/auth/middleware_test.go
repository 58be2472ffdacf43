package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lesnich/TeamMotion/internal/auth"
	"github.com/lesnich/TeamMotion/internal/authz"
	"github.com/lesnich/TeamMotion/internal/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouter(h *auth.Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1/auth", h.MountRoutes)
	return r
}

func capturePrincipal(t *testing.T, captured *authz.Principal) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := authz.PrincipalFromContext(r.Context())
		require.True(t, ok)
		*captured = p
		w.WriteHeader(http.StatusNoContent)
	})
}

func sessionRequest(t *testing.T, sm *shared.SessionManager, userID int64) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != 0 {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequirePrincipalInjectsPrincipal(t *testing.T) {
	user := activeUser(t, "correctpass123")
	_, sm := newAuthHandler(t, &stubRepo{user: user})
	mw := auth.Middleware{Service: auth.NewService(&stubRepo{user: user}), Logger: testLogger()}

	var captured authz.Principal
	handler := mw.RequirePrincipal(capturePrincipal(t, &captured))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, sm, 1))

	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, int64(1), captured.ID)
	require.Equal(t, []authz.Role{authz.RoleUser}, captured.Roles)
	require.Equal(t, int64(3), captured.CompanyID)
}

func TestRequirePrincipalRejectsAnonymous(t *testing.T) {
	user := activeUser(t, "correctpass123")
	_, sm := newAuthHandler(t, &stubRepo{user: user})
	mw := auth.Middleware{Service: auth.NewService(&stubRepo{user: user}), Logger: testLogger()}

	handler := mw.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, sm, 0))
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestRequirePrincipalRejectsBlocked(t *testing.T) {
	user := activeUser(t, "correctpass123")
	user.Active = false
	_, sm := newAuthHandler(t, &stubRepo{user: user})
	mw := auth.Middleware{Service: auth.NewService(&stubRepo{user: user}), Logger: testLogger()}

	handler := mw.RequirePrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, sessionRequest(t, sm, 1))
	require.Equal(t, http.StatusForbidden, res.Code)
}
