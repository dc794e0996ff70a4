// Package config loads and validates the daemon configuration: a YAML
// file overlaid on defaults, with environment variable overrides for the
// values a deployment platform typically injects.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/budgetguard/budgetguard/internal/schedule"
)

// Config is the top-level configuration for budgetguard.
type Config struct {
	// Mode is "monitor" (record decisions, never mutate the provider)
	// or "active" (apply actions).
	Mode     string `yaml:"mode"`
	Region   string `yaml:"region"`
	Timezone string `yaml:"timezone"` // IANA name; schedules evaluate in this zone

	Budget      BudgetConfig      `yaml:"budget"`
	Remediation RemediationConfig `yaml:"remediation"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Storage     StorageConfig     `yaml:"storage"`
	Notify      NotifyConfig      `yaml:"notifications"`
	Tags        TagConfig         `yaml:"tags"`
	APIServer   APIServerConfig   `yaml:"apiServer"`
	Database    DatabaseConfig    `yaml:"database"`
}

type BudgetConfig struct {
	Name     string  `yaml:"name"`
	LimitUSD float64 `yaml:"limitUsd"`
	Currency string  `yaml:"currency"`

	// Tier boundaries as percent of limit. All closed: spend exactly at
	// a boundary selects the higher tier.
	WarningPct   float64 `yaml:"warningPct"`
	CriticalPct  float64 `yaml:"criticalPct"`
	EmergencyPct float64 `yaml:"emergencyPct"`
}

type RemediationConfig struct {
	Enabled bool `yaml:"enabled"`

	// ShutdownDisabled is a kill-switch: budget alerts produce
	// notifications only, no resource actions.
	ShutdownDisabled bool `yaml:"shutdownDisabled"`

	Workers       int           `yaml:"workers"`
	ActionTimeout time.Duration `yaml:"actionTimeout"`
	CycleTimeout  time.Duration `yaml:"cycleTimeout"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryBackoff  time.Duration `yaml:"retryBackoff"`
}

type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// TickSchedule is a cron expression for the periodic evaluation.
	TickSchedule string `yaml:"tickSchedule"`

	// DefaultSchedule applies to resources whose AutoSchedule tag is
	// malformed. Must parse; "24x7" unless overridden.
	DefaultSchedule string `yaml:"defaultSchedule"`
}

type StorageConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"` // cron expression

	IADays               int `yaml:"iaDays"`
	ArchiveDays          int `yaml:"archiveDays"`
	DeepArchiveDays      int `yaml:"deepArchiveDays"`
	AbortIncompleteDays  int `yaml:"abortIncompleteDays"`
	NoncurrentExpiryDays int `yaml:"noncurrentExpiryDays"`

	// MinBucketSizeGB excludes small buckets from savings estimates.
	MinBucketSizeGB float64 `yaml:"minBucketSizeGb"`
}

type NotifyConfig struct {
	TopicARN    string        `yaml:"topicArn"`
	DedupWindow time.Duration `yaml:"dedupWindow"`
}

type TagConfig struct {
	ScheduleKey   string `yaml:"scheduleKey"`
	ProtectionKey string `yaml:"protectionKey"`
}

type APIServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// DefaultConfig returns a Config with safe defaults: monitor mode, the
// standard 50/80/100 tier boundaries, and the availability-first 24x7
// fallback schedule.
func DefaultConfig() *Config {
	cfg := &Config{
		Mode:     "monitor",
		Timezone: "UTC",
		Budget: BudgetConfig{
			Name:         "default-budget",
			Currency:     "USD",
			WarningPct:   50,
			CriticalPct:  80,
			EmergencyPct: 100,
		},
		Remediation: RemediationConfig{
			Enabled:       true,
			Workers:       8,
			ActionTimeout: 30 * time.Second,
			CycleTimeout:  5 * time.Minute,
			MaxRetries:    2,
			RetryBackoff:  1 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:         true,
			TickSchedule:    "*/15 * * * *",
			DefaultSchedule: "24x7",
		},
		Storage: StorageConfig{
			Enabled:              true,
			Schedule:             "0 3 * * *",
			IADays:               30,
			ArchiveDays:          90,
			DeepArchiveDays:      365,
			AbortIncompleteDays:  7,
			NoncurrentExpiryDays: 90,
			MinBucketSizeGB:      1,
		},
		Notify: NotifyConfig{
			DedupWindow: 15 * time.Minute,
		},
		Tags: TagConfig{
			ScheduleKey:   "AutoSchedule",
			ProtectionKey: "DoNotShutdown",
		},
		APIServer: APIServerConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    8080,
		},
		Database: DatabaseConfig{
			Path:          "/data/budgetguard.db",
			RetentionDays: 90,
		},
	}
	cfg.applyEnvOverrides()
	return cfg
}

// LoadFromFile loads config from a YAML file, overlaying on defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides fills in empty fields from environment variables set
// by the deployment platform.
func (c *Config) applyEnvOverrides() {
	if c.Region == "" {
		if v := os.Getenv("AWS_REGION"); v != "" {
			c.Region = v
		} else if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
			c.Region = v
		}
	}
	if c.Notify.TopicARN == "" {
		if v := os.Getenv("SNS_TOPIC_ARN"); v != "" {
			c.Notify.TopicARN = v
		}
	}
	if v := os.Getenv("SHUTDOWN_DISABLED"); v == "true" {
		c.Remediation.ShutdownDisabled = true
	}
}

// Location resolves the configured timezone, defaulting to UTC when the
// name does not resolve.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the config for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case "monitor", "active":
	default:
		return fmt.Errorf("invalid mode %q: must be monitor or active", c.Mode)
	}

	if c.Region == "" {
		return fmt.Errorf("region is required: set in config file or AWS_REGION env var")
	}

	if c.Budget.LimitUSD <= 0 {
		return fmt.Errorf("budget limitUsd must be > 0, got %.2f", c.Budget.LimitUSD)
	}
	if c.Budget.WarningPct <= 0 {
		return fmt.Errorf("warningPct must be > 0, got %.1f", c.Budget.WarningPct)
	}
	if c.Budget.CriticalPct <= c.Budget.WarningPct {
		return fmt.Errorf("criticalPct (%.1f) must be greater than warningPct (%.1f)",
			c.Budget.CriticalPct, c.Budget.WarningPct)
	}
	if c.Budget.EmergencyPct <= c.Budget.CriticalPct {
		return fmt.Errorf("emergencyPct (%.1f) must be greater than criticalPct (%.1f)",
			c.Budget.EmergencyPct, c.Budget.CriticalPct)
	}

	if c.Remediation.Workers < 1 {
		return fmt.Errorf("remediation workers must be >= 1, got %d", c.Remediation.Workers)
	}
	if c.Remediation.MaxRetries < 0 {
		return fmt.Errorf("maxRetries must be >= 0, got %d", c.Remediation.MaxRetries)
	}
	if c.Remediation.ActionTimeout >= c.Remediation.CycleTimeout {
		return fmt.Errorf("actionTimeout (%v) must be shorter than cycleTimeout (%v)",
			c.Remediation.ActionTimeout, c.Remediation.CycleTimeout)
	}

	if _, err := schedule.Parse(c.Scheduler.DefaultSchedule); err != nil {
		return fmt.Errorf("invalid defaultSchedule %q: %w", c.Scheduler.DefaultSchedule, err)
	}

	if c.Storage.Enabled {
		if c.Storage.IADays >= c.Storage.ArchiveDays || c.Storage.ArchiveDays >= c.Storage.DeepArchiveDays {
			return fmt.Errorf("storage transition days must be strictly increasing: ia=%d archive=%d deepArchive=%d",
				c.Storage.IADays, c.Storage.ArchiveDays, c.Storage.DeepArchiveDays)
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	return nil
}
