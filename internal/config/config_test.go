package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, 2000, cfg.MinutesTarget)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RateLimitDelay)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 0.9, cfg.ShortfallThreshold)
	assert.Equal(t, "yandexgpt-lite", cfg.GPTModel)
	assert.Equal(t, defaultGPTAPIURL, cfg.GPTAPIURL)
	assert.Equal(t, 465, cfg.SMTPPort)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANALYSIS_MINUTES_TARGET", "500")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("RATE_LIMIT_DELAY", "10s")
	t.Setenv("SHORTFALL_THRESHOLD", "0.75")
	t.Setenv("MEGAFON_HOST", "https://pbx.example/crmapi/v1/")

	cfg := Load()
	assert.Equal(t, 500, cfg.MinutesTarget)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 10*time.Second, cfg.RateLimitDelay)
	assert.Equal(t, 0.75, cfg.ShortfallThreshold)
	// trailing slash is trimmed
	assert.Equal(t, "https://pbx.example/crmapi/v1", cfg.MegafonHost)
}

func TestLoadIgnoresUnparsableValues(t *testing.T) {
	t.Setenv("RETRY_ATTEMPTS", "many")
	t.Setenv("RATE_LIMIT_DELAY", "soon")

	cfg := Load()
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5*time.Second, cfg.RateLimitDelay)
}

func TestValidateReportsMissingKeys(t *testing.T) {
	t.Setenv("MEGAFON_HOST", "")
	t.Setenv("MEGAFON_KEY", "")
	t.Setenv("YANDEX_FOLDER_ID", "")
	t.Setenv("YANDEX_API_KEY", "")

	err := Load().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEGAFON_HOST")
}

func TestValidateCreatesTempDir(t *testing.T) {
	t.Setenv("MEGAFON_HOST", "https://pbx.example")
	t.Setenv("MEGAFON_KEY", "key")
	t.Setenv("YANDEX_FOLDER_ID", "folder")
	t.Setenv("YANDEX_API_KEY", "apikey")
	dir := t.TempDir() + "/audio"
	t.Setenv("TEMP_AUDIO_PATH", dir)

	require.NoError(t, Load().Validate())
	assert.DirExists(t, dir)
}
