/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:        Unique ID per request for tracing
  2. StructuredLogger: slog line per request
  3. Recoverer:        Panic recovery (500 instead of crash)
  4. CORS:             Cross-origin requests; credentials only for listed origins
  5. Locale:           Accept-Language for error messages
  6. Identity:         Bearer token subject (only when a secret is set)

ROUTE GROUPS:
  /api/vacations/*  Ledger operations
  /api/scenarios/*  Demo data (only with RouterOptions.Scenarios)
  /ws               Event stream (websocket)
  /health           Liveness, outside Identity

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Logger, Locale, Identity
  - cmd/server/main.go: Server startup
*/
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type RouterOptions struct {
	Logger      *slog.Logger
	CORSOrigins []string
	JWTSecret   []byte       // empty disables Identity
	Events      http.Handler // websocket hub; /ws is not mounted when nil
	Scenarios   bool         // mount /api/scenarios
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	// Credentialed CORS only for an explicit origin list.
	credentials := true
	for _, o := range origins {
		if o == "*" {
			credentials = false
		}
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(StructuredLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: credentials,
	}))
	r.Use(Locale)

	r.Get("/health", h.Health)

	r.Group(func(r chi.Router) {
		if len(opts.JWTSecret) > 0 {
			r.Use(Identity(opts.JWTSecret))
		}

		r.Route("/api/vacations", func(r chi.Router) {
			r.Route("/requests", func(r chi.Router) {
				r.Post("/", h.SubmitRequest)
				r.Get("/", h.ListRequests)
				r.Get("/{id}", h.GetRequest)
				r.Post("/{id}/status", h.TransitionRequest)
			})

			r.Get("/status", h.GetStatus)
			r.Put("/balances/{user_id}/{year}", h.SetTotals)
			r.Post("/reconcile", h.Reconcile)

			r.Get("/calendar", h.GetCalendar)

			r.Get("/policy", h.GetPolicy)
			r.Put("/policy", h.UpdatePolicy)

			r.Route("/blocked-dates", func(r chi.Router) {
				r.Get("/", h.ListBlockedDates)
				r.Post("/", h.AddBlockedDate)
				r.Delete("/{id}", h.RemoveBlockedDate)
			})
		})

		if opts.Scenarios {
			r.Route("/api/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
			})
		}

		if opts.Events != nil {
			r.Handle("/ws", opts.Events)
		}
	})

	return r
}
