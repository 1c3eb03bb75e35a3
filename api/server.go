/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in access logs
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. hlog:       Request-scoped zerolog logger plus access log
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the frontend
  6. httprate:   Per-IP request limit

ROUTE GROUPS:
  /metrics              Prometheus exposition (public)
  /api/health           Liveness and store reachability (public)
  /api/auth/*           Register and login (public), me (token)
  /api/places/*         Places (token)
  /api/machinery/*      Machinery (token)
  /api/data/*           Fuel events, summaries, exports, analyses (token)
  /api/scenarios/*      Demo scenarios (superadmin)

SEE ALSO:
  - handlers.go: Handler implementations
  - ../auth: Token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/warp/fuel-engine/auth"
	"github.com/warp/fuel-engine/fuel"
)

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	// AllowedOrigins for CORS. Empty allows none.
	AllowedOrigins []string

	// RateLimitPerMinute per client IP. Zero disables the limiter.
	RateLimitPerMinute int

	// Logger is the base request logger.
	Logger zerolog.Logger
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("req_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
	}

	r.Method(http.MethodGet, "/metrics", h.Metrics.Handler())

	authn := auth.NewMiddleware(h.secret)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)

			r.Get("/auth/me", h.Me)

			// Place routes
			r.Route("/places", func(r chi.Router) {
				r.Get("/", h.ListPlaces)
				r.Post("/", h.CreatePlace)
				r.Get("/{id}", h.GetPlace)
				r.Put("/{id}", h.UpdatePlace)
				r.Delete("/{id}", h.DeletePlace)
				r.Get("/{id}/machinery", h.ListPlaceMachinery)
			})

			// Machinery routes
			r.Route("/machinery", func(r chi.Router) {
				r.Get("/", h.ListMachinery)
				r.Post("/", h.CreateMachinery)
				r.Get("/{id}", h.GetMachinery)
				r.Put("/{id}", h.UpdateMachinery)
				r.Delete("/{id}", h.DeleteMachinery)
			})

			// Fuel event routes. Static paths before /{id}.
			r.Route("/data", func(r chi.Router) {
				r.Get("/", h.ListEvents)
				r.Post("/", h.CreateEvent)
				r.Get("/daily", h.DailySummary)
				r.Get("/monthly", h.MonthlySummary)
				r.Get("/export.csv", h.ExportCSV)
				r.Get("/export.xlsx", h.ExportXLSX)
				r.Get("/central-tank-analysis", h.CentralTankAnalysis)
				r.Get("/tank-analysis/{machineryID}", h.TankAnalysis)
				r.Get("/tank-analysis/{machineryID}/report.pdf", h.TankReportPDF)
				r.Put("/{id}", h.UpdateEvent)
				r.Delete("/{id}", h.DeleteEvent)
			})

			// Scenario routes
			r.Route("/scenarios", func(r chi.Router) {
				r.Use(auth.RequireRole(fuel.RoleSuperAdmin))
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
		})
	})

	return r
}
