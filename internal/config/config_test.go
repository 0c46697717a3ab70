package config_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmedjamion/pdf-merger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Limits.MaxFileSizeMB)
	assert.Equal(t, 120, cfg.Limits.MaxTotalSizeMB)
	assert.Equal(t, 400, cfg.Limits.MaxPages)
	assert.Equal(t, 300, cfg.Limits.MaxPreviewEntries)
	assert.Equal(t, 220*time.Millisecond, cfg.Preview.Debounce)
	assert.InDelta(t, 0.35, cfg.Preview.ThumbnailScale, 1e-9)
	assert.InDelta(t, 0.9, cfg.Preview.QuickScale, 1e-9)
	assert.InDelta(t, 0.68, cfg.Preview.FullScale, 1e-9)
	assert.Equal(t, 24, cfg.Preview.FullMaxPages)
	assert.True(t, cfg.Compose.OptimizeOutput)
	assert.Equal(t, "compose-jobs", cfg.GCP.FirestoreCollection)
	assert.Equal(t, "us-central1", cfg.GCP.WorkflowLocation)
	assert.Equal(t, 10, cfg.GCP.MaxConcurrentDownloads)

	limits := cfg.Limits.Intake()
	assert.Equal(t, int64(10*1024*1024), limits.MaxFileSize)
	assert.Equal(t, int64(120*1024*1024), limits.MaxTotalSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAX_PAGES", "50")
	t.Setenv("PREVIEW_DEBOUNCE", "1s")
	t.Setenv("COMPOSE_OPTIMIZE_OUTPUT", "false")
	t.Setenv("OUTPUT_BUCKET", "merged-out")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PREVIEW_FULL_MAX_PAGES", "8")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Limits.MaxPages)
	assert.Equal(t, time.Second, cfg.Preview.Debounce)
	assert.False(t, cfg.Compose.OptimizeOutput)
	assert.Equal(t, "merged-out", cfg.GCP.OutputBucket)
	assert.Equal(t, 8, cfg.Preview.FullMaxPages)
	assert.True(t, cfg.Log.NewLogger().Enabled(context.Background(), slog.LevelDebug))
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("MAX_FILE_SIZE_MB", "0")
	t.Setenv("MAX_PAGES", "-1")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_FILE_SIZE_MB")
	assert.Contains(t, err.Error(), "MAX_PAGES")
}

func TestLoad_RejectsEmptyFullPreview(t *testing.T) {
	t.Setenv("PREVIEW_FULL_MAX_PAGES", "0")

	_, err := config.Load()
	assert.ErrorContains(t, err, "PREVIEW_FULL_MAX_PAGES")
}

func TestValidate_RejectsNonPositiveScales(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.Preview.QuickScale = 0
	cfg.Preview.FullScale = -0.5
	err = cfg.Validate()
	assert.ErrorContains(t, err, "preview.quick_scale")
	assert.ErrorContains(t, err, "preview.full_scale")
	assert.NotContains(t, err.Error(), "preview.thumbnail_scale")
}

func TestRequireCloud(t *testing.T) {
	cfg := &config.Config{}
	assert.ErrorContains(t, cfg.RequireCloud(), "PROJECT_ID")

	cfg.GCP.ProjectID = "p"
	assert.ErrorContains(t, cfg.RequireCloud(), "OUTPUT_BUCKET")

	cfg.GCP.OutputBucket = "b"
	assert.NoError(t, cfg.RequireCloud())
}

func TestNewLogger_UnknownLevelFallsBackToInfo(t *testing.T) {
	logger := config.LogConfig{Level: "chatty"}.NewLogger()
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
}
