package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lesnich/TeamMotion/internal/activity"
	"github.com/lesnich/TeamMotion/internal/auth"
	"github.com/lesnich/TeamMotion/internal/challenge"
	"github.com/lesnich/TeamMotion/internal/company"
	"github.com/lesnich/TeamMotion/internal/observability"
	"github.com/lesnich/TeamMotion/internal/progress"
	"github.com/lesnich/TeamMotion/internal/shared"
	"github.com/lesnich/TeamMotion/internal/sleep"
	"github.com/lesnich/TeamMotion/internal/users"
	"github.com/lesnich/TeamMotion/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler      *auth.Handler
	AuthMiddleware   auth.Middleware
	UsersHandler     *users.Handler
	CompanyHandler   *company.Handler
	ActivityHandler  *activity.Handler
	SleepHandler     *sleep.Handler
	ChallengeHandler *challenge.Handler
	ProgressHandler  *progress.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with TeamMotion defaults. Everything
// under /api/v1 except /api/v1/auth requires an authenticated principal.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequirePrincipal)

			r.Route("/users", params.UsersHandler.MountRoutes)
			r.Route("/companies", params.CompanyHandler.MountRoutes)
			r.Route("/activities", params.ActivityHandler.MountRoutes)
			r.Route("/sleep", params.SleepHandler.MountRoutes)
			r.Route("/challenges", params.ChallengeHandler.MountRoutes)
			r.Route("/progress", params.ProgressHandler.MountRoutes)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
