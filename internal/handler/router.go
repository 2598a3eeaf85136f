package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/oculab/growthtrack/internal/config"
	"github.com/oculab/growthtrack/internal/service"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Auth     *AuthHandler
	Data     *DataHandler
	Chart    *ChartHandler
	Sessions *service.SessionService
	Config   *config.Config
	Logger   zerolog.Logger
}

// NewRouter assembles the HTTP routing tree.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	if deps.Config.Metrics.Enabled {
		r.Use(Metrics)
	}
	r.Use(SessionLoader(deps.Sessions, deps.Config.Session.CookieName))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Config.Metrics.Enabled {
		r.Method(http.MethodGet, deps.Config.Metrics.Path, MetricsHandler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.Auth.Register)
			r.Post("/login", deps.Auth.Login)
			r.Post("/demo", deps.Auth.DemoLogin)
			r.Post("/logout", deps.Auth.Logout)
			r.With(RequireSession).Get("/me", deps.Auth.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireSession)

			r.Put("/data/{filename}", deps.Data.Save)
			r.Get("/data/{filename}", deps.Data.Load)

			r.Get("/institution/patients", deps.Data.ListPatients)
			r.Get("/institution/users", deps.Data.ListUsers)

			r.Get("/chart/axial-length", deps.Chart.AxialLength)
		})
	})

	return r
}
