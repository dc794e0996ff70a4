package handler

import (
	"net/http"

	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// AuditHandler serves the action audit trail.
type AuditHandler struct {
	auditLog *state.AuditLog
}

func NewAuditHandler(auditLog *state.AuditLog) *AuditHandler {
	return &AuditHandler{auditLog: auditLog}
}

// List returns recent action records, newest first. With ?all=1 the
// full persisted history is served instead of the in-memory window.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	var records []lifecycle.ActionRecord
	if r.URL.Query().Get("all") == "1" {
		records = h.auditLog.GetAll()
	} else {
		records = h.auditLog.GetRecent(limitParam(r, 100))
	}
	if records == nil {
		records = []lifecycle.ActionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"records": records,
	})
}
