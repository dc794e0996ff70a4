package apiserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/budgetguard/budgetguard/internal/apiserver/handler"
	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/controller/remediation"
	"github.com/budgetguard/budgetguard/internal/controller/scheduler"
	"github.com/budgetguard/budgetguard/internal/controller/storageopt"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
)

// NewRouter creates the API router with all endpoints.
func NewRouter(cfg *config.Config, audit *state.AuditLog, provider cloudprovider.ResourceProvider,
	rem *remediation.Controller, sched *scheduler.Controller, storage *storageopt.Controller) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	eventHandler := handler.NewEventHandler(rem, sched, storage)
	auditHandler := handler.NewAuditHandler(audit)
	resourceHandler := handler.NewResourceHandler(provider)
	configHandler := handler.NewConfigHandler(cfg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/events/budget-alert", eventHandler.BudgetAlert)
		r.Post("/events/tick", eventHandler.Tick)
		r.Post("/events/storage-run", eventHandler.StorageRun)

		r.Get("/audit", auditHandler.List)
		r.Get("/resources", resourceHandler.List)
		r.Get("/config", configHandler.Get)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
