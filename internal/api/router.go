package api

import (
	"net/http"

	"github.com/courtbook/courtbook/internal/auth"
	"github.com/courtbook/courtbook/internal/metrics"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Events         EventRegistry
	Users          UserAccounts
	MailConfig     MailConfigStore
	Notifier       Notifier
	Sessions       auth.SessionLookup
	Metrics        *metrics.Metrics
	DBPool         *pgxpool.Pool
	AllowedOrigins []string
	UI             http.Handler
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(deps.Metrics))

	// Handlers.
	authH := newAuthHandler(deps.Users, deps.Metrics)
	eventsH := newEventsHandler(deps.Events, deps.Notifier)
	configH := newConfigHandler(deps.MailConfig)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "connected"}
		if deps.DBPool != nil {
			if err := deps.DBPool.Ping(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable,
					map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, status)
	})

	// Well-known manifest.
	r.Get("/.well-known/courtbook.json", WellKnownHandler)

	// Embedded UI shell.
	if deps.UI != nil {
		r.Get("/", deps.UI.ServeHTTP)
	}

	// Public identity lifecycle.
	r.Post("/api/v1/auth/register", authH.Register)
	r.Post("/api/v1/auth/login", authH.Login)
	r.Post("/api/v1/auth/logout", authH.Logout)

	// Session-authed routes.
	r.Route("/api/v1", func(ar chi.Router) {
		ar.Use(auth.SessionMiddleware(deps.Sessions))

		ar.Get("/auth/me", authH.Me)

		ar.Get("/events", eventsH.ListUpcoming)
		ar.Post("/events", eventsH.Create)
		ar.Get("/events/{id}", eventsH.Get)
		ar.Delete("/events/{id}", eventsH.Delete)
		ar.Post("/events/{id}/attend", eventsH.ToggleAttend)
		ar.Post("/events/{id}/substitute", eventsH.ToggleSubstitute)

		ar.Get("/stats", eventsH.Stats)
	})

	// Admin routes.
	r.Route("/api/v1/admin", func(ar chi.Router) {
		ar.Use(auth.AdminMiddleware(deps.Sessions))

		ar.Get("/mailconfig", configH.Get)
		ar.Put("/mailconfig", configH.Put)
	})

	// Metrics summary for the admin screen.
	if deps.Metrics != nil {
		r.Route("/metrics", func(mr chi.Router) {
			mr.Use(auth.AdminMiddleware(deps.Sessions))
			mr.Get("/summary", deps.Metrics.Handler())
		})
	}

	return r
}
