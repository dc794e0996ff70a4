package handler

import (
	"net/http"

	"github.com/budgetguard/budgetguard/internal/config"
)

// ConfigHandler exposes the effective runtime configuration.
type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// Get returns the running configuration with secrets redacted.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":     h.cfg.Mode,
		"region":   h.cfg.Region,
		"timezone": h.cfg.Timezone,
		"budget": map[string]interface{}{
			"name":         h.cfg.Budget.Name,
			"limitUsd":     h.cfg.Budget.LimitUSD,
			"warningPct":   h.cfg.Budget.WarningPct,
			"criticalPct":  h.cfg.Budget.CriticalPct,
			"emergencyPct": h.cfg.Budget.EmergencyPct,
		},
		"remediation": map[string]interface{}{
			"enabled":          h.cfg.Remediation.Enabled,
			"shutdownDisabled": h.cfg.Remediation.ShutdownDisabled,
			"workers":          h.cfg.Remediation.Workers,
		},
		"scheduler": map[string]interface{}{
			"enabled":      h.cfg.Scheduler.Enabled,
			"tickSchedule": h.cfg.Scheduler.TickSchedule,
		},
		"storage": map[string]interface{}{
			"enabled":  h.cfg.Storage.Enabled,
			"schedule": h.cfg.Storage.Schedule,
		},
	})
}
