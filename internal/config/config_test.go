package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Region = "us-east-1"
	cfg.Budget.LimitUSD = 100
	return cfg
}

func TestDefaultConfig_ReturnsExpectedDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Mode != "monitor" {
		t.Errorf("Mode = %q, want %q", cfg.Mode, "monitor")
	}
	if cfg.Budget.WarningPct != 50 || cfg.Budget.CriticalPct != 80 || cfg.Budget.EmergencyPct != 100 {
		t.Errorf("tier boundaries = %.0f/%.0f/%.0f, want 50/80/100",
			cfg.Budget.WarningPct, cfg.Budget.CriticalPct, cfg.Budget.EmergencyPct)
	}
	if cfg.Scheduler.DefaultSchedule != "24x7" {
		t.Errorf("DefaultSchedule = %q, want %q", cfg.Scheduler.DefaultSchedule, "24x7")
	}
	if cfg.Remediation.MaxRetries != 2 {
		t.Errorf("MaxRetries = %d, want 2", cfg.Remediation.MaxRetries)
	}
	if cfg.Remediation.ActionTimeout != 30*time.Second {
		t.Errorf("ActionTimeout = %v, want 30s", cfg.Remediation.ActionTimeout)
	}
	if cfg.Storage.IADays != 30 || cfg.Storage.ArchiveDays != 90 || cfg.Storage.DeepArchiveDays != 365 {
		t.Errorf("storage days = %d/%d/%d, want 30/90/365",
			cfg.Storage.IADays, cfg.Storage.ArchiveDays, cfg.Storage.DeepArchiveDays)
	}
	if cfg.Tags.ScheduleKey != "AutoSchedule" || cfg.Tags.ProtectionKey != "DoNotShutdown" {
		t.Errorf("tag keys = %q/%q, want AutoSchedule/DoNotShutdown", cfg.Tags.ScheduleKey, cfg.Tags.ProtectionKey)
	}
	if cfg.Database.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.Database.RetentionDays)
	}
}

func TestValidate_AcceptsValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
}

func TestValidate_RejectsBadConfigs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "dryrun" }},
		{"missing region", func(c *Config) { c.Region = "" }},
		{"zero limit", func(c *Config) { c.Budget.LimitUSD = 0 }},
		{"non-increasing boundaries", func(c *Config) { c.Budget.CriticalPct = 40 }},
		{"emergency below critical", func(c *Config) { c.Budget.EmergencyPct = 70 }},
		{"zero workers", func(c *Config) { c.Remediation.Workers = 0 }},
		{"action timeout exceeds cycle", func(c *Config) { c.Remediation.ActionTimeout = 10 * time.Minute }},
		{"non-increasing storage days", func(c *Config) { c.Storage.ArchiveDays = 20 }},
		{"unparseable default schedule", func(c *Config) { c.Scheduler.DefaultSchedule = "weekdays-only" }},
		{"bad timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadFromFile_OverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlContent := []byte(`mode: active
region: eu-west-1
budget:
  name: dev-budget
  limitUsd: 250
  warningPct: 40
scheduler:
  tickSchedule: "*/5 * * * *"
`)
	if err := os.WriteFile(path, yamlContent, 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile(%q) returned error: %v", path, err)
	}

	if cfg.Mode != "active" {
		t.Errorf("Mode = %q, want %q", cfg.Mode, "active")
	}
	if cfg.Budget.LimitUSD != 250 {
		t.Errorf("LimitUSD = %.0f, want 250", cfg.Budget.LimitUSD)
	}
	if cfg.Budget.WarningPct != 40 {
		t.Errorf("WarningPct = %.0f, want 40", cfg.Budget.WarningPct)
	}
	// Untouched fields keep their defaults.
	if cfg.Budget.CriticalPct != 80 {
		t.Errorf("CriticalPct = %.0f, want default 80", cfg.Budget.CriticalPct)
	}
	if cfg.Scheduler.TickSchedule != "*/5 * * * *" {
		t.Errorf("TickSchedule = %q, want override", cfg.Scheduler.TickSchedule)
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyEnvOverrides_ShutdownDisabled(t *testing.T) {
	t.Setenv("SHUTDOWN_DISABLED", "true")
	cfg := DefaultConfig()
	if !cfg.Remediation.ShutdownDisabled {
		t.Error("ShutdownDisabled = false, want true from env")
	}
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "not-a-zone"
	if loc := cfg.Location(); loc != time.UTC {
		t.Errorf("Location() = %v, want UTC fallback", loc)
	}
}
