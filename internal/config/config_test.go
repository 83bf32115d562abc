package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-report-agent/internal/extraction"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DOCTOR_CHAT_ID", "")
	t.Setenv("REPORT_ENGINE", "")
	t.Setenv("KEYWORDS_FILE", "")
	t.Setenv("REPORT_DIR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, EngineFPDF, cfg.Report.Engine)
	assert.Equal(t, "reports", cfg.Report.OutputDir)
	assert.Equal(t, extraction.DefaultKeywords(), cfg.Keywords)
	assert.Equal(t, extraction.DefaultLimits(), cfg.Limits)
	assert.Zero(t, cfg.Telegram.DoctorChatID)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("DOCTOR_CHAT_ID", "-100123")
	t.Setenv("REPORT_ENGINE", "GoPDF")
	t.Setenv("REPORT_DIR", "/var/reports")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("KEYWORDS_FILE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, int64(-100123), cfg.Telegram.DoctorChatID)
	assert.Equal(t, EngineGoPDF, cfg.Report.Engine)
	assert.Equal(t, "/var/reports", cfg.Report.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("KEYWORDS_FILE", "")

	t.Setenv("DOCTOR_CHAT_ID", "not-a-number")
	_, err := Load()
	assert.ErrorContains(t, err, "DOCTOR_CHAT_ID")

	t.Setenv("DOCTOR_CHAT_ID", "")
	t.Setenv("REPORT_ENGINE", "latex")
	_, err = Load()
	assert.ErrorContains(t, err, "REPORT_ENGINE")
}

func TestKeywordsFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[keywords]
medications = ["inhaler", "salbutamol"]

[limits]
causes = 3

[prompts]
disclaimer = "Not medical advice."
`), 0o644))

	t.Setenv("APP_ENV", "test")
	t.Setenv("DOCTOR_CHAT_ID", "")
	t.Setenv("REPORT_ENGINE", "")
	t.Setenv("KEYWORDS_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	defaults := extraction.DefaultKeywords()
	assert.Equal(t, []string{"inhaler", "salbutamol"}, cfg.Keywords.Medications)
	assert.Equal(t, defaults.SymptomHints, cfg.Keywords.SymptomHints)
	assert.Equal(t, defaults.Causes, cfg.Keywords.Causes)
	assert.Equal(t, 3, cfg.Limits.Causes)
	assert.Equal(t, 20, cfg.Limits.Symptoms)
	assert.Equal(t, "Not medical advice.", cfg.Prompts.Disclaimer)
	assert.Empty(t, cfg.Prompts.System)
}

func TestKeywordsFileErrors(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DOCTOR_CHAT_ID", "")
	t.Setenv("REPORT_ENGINE", "")

	t.Setenv("KEYWORDS_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err := Load()
	assert.ErrorContains(t, err, "read keywords file")

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[keywords\n"), 0o644))
	t.Setenv("KEYWORDS_FILE", bad)
	_, err = Load()
	assert.ErrorContains(t, err, "parse keywords file")
}
