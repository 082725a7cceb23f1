package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"aisocial/internal/http/handlers"
	"aisocial/internal/middleware"
)

// RouterConfig holds the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	JWTSecret       string
	CORSOrigins     []string
	RateLimitPerMin int
	DefaultTimezone string
	TimeZoneLookup  middleware.TimeZoneLookup
	Logger          zerolog.Logger
}

func NewRouter(app *handlers.App, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(cfg.Logger),
		middleware.CORS(cfg.CORSOrigins),
		middleware.Timezone(cfg.DefaultTimezone, cfg.TimeZoneLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		if cfg.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute))
		}

		r.Route("/workflows", func(r chi.Router) {
			r.Get("/", app.WorkflowsList)
			r.Post("/", app.WorkflowsCreate)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", app.WorkflowsGet)
				r.Delete("/", app.WorkflowsDelete)
				r.Put("/recurrence", app.WorkflowsUpdateRecurrence)
				r.Post("/activate", app.WorkflowsActivate)
				r.Post("/deactivate", app.WorkflowsDeactivate)
				r.Get("/scheduled-posts", app.ScheduledPostsList)
				r.Post("/run", app.WorkflowsRun)
				r.Get("/run", app.WorkflowsActiveRun)
			})
		})

		r.Post("/schedule/preview", app.SchedulePreview)
		r.Get("/runs", app.RunsList)
		r.Get("/events", app.Events)

		r.Route("/credits", func(r chi.Router) {
			r.Get("/", app.CreditsBalance)
			r.Get("/transactions", app.CreditsTransactions)
		})
	})

	return r
}
