package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/turnera/turnos-api/internal/agenda"
	"github.com/turnera/turnos-api/internal/report"
)

type RouterConfig struct {
	Personas *agenda.PersonaService
	Turnos   *agenda.TurnoService
	Reportes *report.Service
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
	LogoPath string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Personas
	ph := &personasHandler{svc: cfg.Personas}
	r.Route("/personas", func(r chi.Router) {
		r.Get("/", ph.list)
		r.Post("/", ph.create)
		r.Get("/{id}", ph.get)
		r.Put("/{id}", ph.update)
		r.Delete("/{id}", ph.delete)
	})

	// Turnos
	th := &turnosHandler{svc: cfg.Turnos}
	r.Route("/turnos", func(r chi.Router) {
		r.Get("/", th.list)
		r.Post("/", th.create)
		r.Get("/{id}", th.get)
		r.Put("/{id}", th.update)
		r.Delete("/{id}", th.delete)
		r.Put("/{id}/cancelar", th.cancelar)
		r.Put("/{id}/confirmar", th.confirmar)
	})
	r.Get("/turnos-disponibles", th.disponibles)

	// Reportes, each with CSV and PDF variants over the same table
	rh := &reportesHandler{svc: cfg.Reportes, logoPath: cfg.LogoPath}
	r.Route("/reportes", func(r chi.Router) {
		reportes := map[string]reporteFetch{
			"turnos-por-fecha":          rh.turnosPorFecha,
			"turnos-por-persona":        rh.turnosPorPersona,
			"estado-personas":           rh.estadoPersonas,
			"turnos-cancelados":         rh.turnosCancelados,
			"turnos-cancelados-por-mes": rh.turnosCanceladosPorMes,
			"turnos-confirmados":        rh.turnosConfirmados,
		}
		for nombre, fetch := range reportes {
			r.Get("/"+nombre, rh.json(fetch))
			r.Get("/csv/"+nombre, rh.csv(fetch, nombre))
			r.Get("/pdf/"+nombre, rh.pdf(fetch, nombre))
		}
	})

	return r
}
