// Package apiserver exposes the REST API: inbound event webhooks, the
// audit trail, live inventory, and operational endpoints.
package apiserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/controller/remediation"
	"github.com/budgetguard/budgetguard/internal/controller/scheduler"
	"github.com/budgetguard/budgetguard/internal/controller/storageopt"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
)

// NewServer creates the HTTP server for the REST API.
func NewServer(cfg *config.Config, audit *state.AuditLog, provider cloudprovider.ResourceProvider,
	rem *remediation.Controller, sched *scheduler.Controller, storage *storageopt.Controller) *http.Server {
	router := NewRouter(cfg, audit, provider, rem, sched, storage)

	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.APIServer.Address, cfg.APIServer.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
