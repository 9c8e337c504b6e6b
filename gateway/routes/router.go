package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"riskgov/gateway/middleware"
	"riskgov/native/controller"
)

// Config assembles the governance API router.
type Config struct {
	Engine        *controller.Engine
	Audit         AuditLog
	Authenticator *middleware.Authenticator
	Observability *middleware.Observability
}

// New builds the HTTP handler exposing policy administration, parameter
// proposals, the timelock queue, and the audit trail.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)

	obs := cfg.Observability
	if obs != nil {
		r.Use(obs.Middleware("root"))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	gr := newGovernanceRoutes(cfg.Engine, cfg.Audit)

	r.Route("/v1", func(api chi.Router) {
		api.Group(func(admin chi.Router) {
			if cfg.Authenticator != nil {
				admin.Use(cfg.Authenticator.Middleware(middleware.ScopeAdmin))
			}
			gr.mountAdmin(admin)
		})
		api.Route("/proposals", func(proposals chi.Router) {
			if cfg.Authenticator != nil {
				proposals.Use(cfg.Authenticator.Middleware(middleware.ScopePropose))
			}
			gr.mountProposals(proposals)
		})
		api.Route("/transactions", func(queue chi.Router) {
			if cfg.Authenticator != nil {
				queue.Use(cfg.Authenticator.Middleware(middleware.ScopeExecute))
			}
			gr.mountQueue(queue)
		})
		api.Group(func(audit chi.Router) {
			if cfg.Authenticator != nil {
				audit.Use(cfg.Authenticator.Middleware(middleware.ScopeAdmin))
			}
			audit.Get("/audit", gr.listAudit)
		})
	})

	if obs != nil {
		r.Handle("/metrics", obs.MetricsHandler())
	}

	return r
}
