package handler

import (
	"encoding/json"
	"net/http"

	"github.com/budgetguard/budgetguard/internal/controller/remediation"
	"github.com/budgetguard/budgetguard/internal/controller/scheduler"
	"github.com/budgetguard/budgetguard/internal/controller/storageopt"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// EventHandler receives inbound webhook events and runs the matching
// controller cycle synchronously, returning the cycle result.
type EventHandler struct {
	remediation *remediation.Controller
	scheduler   *scheduler.Controller
	storage     *storageopt.Controller
}

func NewEventHandler(rem *remediation.Controller, sched *scheduler.Controller, storage *storageopt.Controller) *EventHandler {
	return &EventHandler{remediation: rem, scheduler: sched, storage: storage}
}

// BudgetAlert handles a pushed budget threshold alert.
func (h *EventHandler) BudgetAlert(w http.ResponseWriter, r *http.Request) {
	var ev lifecycle.BudgetAlertEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid budget alert payload: "+err.Error())
		return
	}
	if ev.BudgetName == "" {
		writeError(w, http.StatusBadRequest, "budgetName is required")
		return
	}
	switch ev.AlertType {
	case "ACTUAL", "FORECASTED":
	default:
		writeError(w, http.StatusBadRequest, "alertType must be ACTUAL or FORECASTED")
		return
	}

	result, tier, err := h.remediation.HandleAlert(r.Context(), ev)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	succeeded, skipped, failed := result.Counts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cycleId":   result.CycleID,
		"tier":      tier.String(),
		"dryRun":    result.DryRun,
		"processed": result.Processed,
		"succeeded": succeeded,
		"skipped":   skipped,
		"failed":    failed,
		"records":   result.Records,
	})
}

// Tick triggers a schedule enforcement cycle out of band.
func (h *EventHandler) Tick(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.Tick(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StorageRun triggers a storage optimization pass out of band.
func (h *EventHandler) StorageRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.storage.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}
