package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ahmedjamion/pdf-merger/internal/intake"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Limits  LimitsConfig  `mapstructure:"limits"`
	Preview PreviewConfig `mapstructure:"preview"`
	Compose ComposeConfig `mapstructure:"compose"`
	GCP     GCPConfig     `mapstructure:"gcp"`
	Log     LogConfig     `mapstructure:"log"`
}

// LimitsConfig holds the import caps.
type LimitsConfig struct {
	MaxFileSizeMB     int `mapstructure:"max_file_size_mb"`
	MaxTotalSizeMB    int `mapstructure:"max_total_size_mb"`
	MaxPages          int `mapstructure:"max_pages"`
	MaxPreviewEntries int `mapstructure:"max_preview_entries"`
}

// Intake converts the caps into intake limits.
func (l LimitsConfig) Intake() intake.Limits {
	const mb = 1024 * 1024
	return intake.Limits{
		MaxFileSize:  int64(l.MaxFileSizeMB) * mb,
		MaxTotalSize: int64(l.MaxTotalSizeMB) * mb,
		MaxPages:     l.MaxPages,
	}
}

// PreviewConfig holds thumbnail and export preview tuning.
type PreviewConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	ThumbnailScale float64       `mapstructure:"thumbnail_scale"`
	QuickScale     float64       `mapstructure:"quick_scale"`
	FullScale      float64       `mapstructure:"full_scale"`
	FullMaxPages   int           `mapstructure:"full_max_pages"`
}

// ComposeConfig holds output settings.
type ComposeConfig struct {
	OptimizeOutput bool `mapstructure:"optimize_output"`
}

// GCPConfig holds cloud function settings.
type GCPConfig struct {
	ProjectID              string `mapstructure:"project_id"`
	OutputBucket           string `mapstructure:"output_bucket"`
	FirestoreCollection    string `mapstructure:"firestore_collection"`
	WorkflowID             string `mapstructure:"workflow_id"`
	WorkflowLocation       string `mapstructure:"workflow_location"`
	MaxConcurrentDownloads int    `mapstructure:"max_concurrent_downloads"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from defaults and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("limits.max_file_size_mb", 10)
	v.SetDefault("limits.max_total_size_mb", 120)
	v.SetDefault("limits.max_pages", 400)
	v.SetDefault("limits.max_preview_entries", 300)

	v.SetDefault("preview.debounce", "220ms")
	v.SetDefault("preview.thumbnail_scale", 0.35)
	v.SetDefault("preview.quick_scale", 0.9)
	v.SetDefault("preview.full_scale", 0.68)
	v.SetDefault("preview.full_max_pages", 24)

	v.SetDefault("compose.optimize_output", true)

	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.output_bucket", "")
	v.SetDefault("gcp.firestore_collection", "compose-jobs")
	v.SetDefault("gcp.workflow_id", "")
	v.SetDefault("gcp.workflow_location", "us-central1")
	v.SetDefault("gcp.max_concurrent_downloads", 10)

	v.SetDefault("log.level", "info")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"limits.max_file_size_mb":      "MAX_FILE_SIZE_MB",
		"limits.max_total_size_mb":     "MAX_TOTAL_SIZE_MB",
		"limits.max_pages":             "MAX_PAGES",
		"limits.max_preview_entries":   "MAX_PREVIEW_ENTRIES",
		"preview.debounce":             "PREVIEW_DEBOUNCE",
		"preview.full_max_pages":       "PREVIEW_FULL_MAX_PAGES",
		"compose.optimize_output":      "COMPOSE_OPTIMIZE_OUTPUT",
		"gcp.project_id":               "PROJECT_ID",
		"gcp.output_bucket":            "OUTPUT_BUCKET",
		"gcp.firestore_collection":     "FIRESTORE_COLLECTION",
		"gcp.workflow_id":              "WORKFLOW_ID",
		"gcp.workflow_location":        "WORKFLOW_LOCATION",
		"gcp.max_concurrent_downloads": "MAX_CONCURRENT_DOWNLOADS",
		"log.level":                    "LOG_LEVEL",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the components cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Limits.MaxFileSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.Limits.MaxFileSizeMB))
	}
	if c.Limits.MaxTotalSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_TOTAL_SIZE_MB must be positive, got %d", c.Limits.MaxTotalSizeMB))
	}
	if c.Limits.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("MAX_PAGES must be positive, got %d", c.Limits.MaxPages))
	}
	if c.Limits.MaxPreviewEntries <= 0 {
		errs = append(errs, fmt.Errorf("MAX_PREVIEW_ENTRIES must be positive, got %d", c.Limits.MaxPreviewEntries))
	}
	if c.Preview.Debounce < 0 {
		errs = append(errs, fmt.Errorf("PREVIEW_DEBOUNCE must not be negative, got %s", c.Preview.Debounce))
	}
	if c.Preview.FullMaxPages <= 0 {
		errs = append(errs, fmt.Errorf("PREVIEW_FULL_MAX_PAGES must be positive, got %d", c.Preview.FullMaxPages))
	}
	for _, scale := range []struct {
		key   string
		value float64
	}{
		{"preview.thumbnail_scale", c.Preview.ThumbnailScale},
		{"preview.quick_scale", c.Preview.QuickScale},
		{"preview.full_scale", c.Preview.FullScale},
	} {
		if scale.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %g", scale.key, scale.value))
		}
	}
	if c.GCP.MaxConcurrentDownloads <= 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENT_DOWNLOADS must be positive, got %d", c.GCP.MaxConcurrentDownloads))
	}
	return errors.Join(errs...)
}

// RequireCloud checks the settings every cloud function needs.
func (c *Config) RequireCloud() error {
	if c.GCP.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if c.GCP.OutputBucket == "" {
		return fmt.Errorf("OUTPUT_BUCKET environment variable must be set")
	}
	return nil
}

// NewLogger builds the JSON slog logger used by every entry point.
func (c LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
