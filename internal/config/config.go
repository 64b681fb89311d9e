package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is built once at process start and passed into each component
// constructor. There is no global config state.
type Config struct {
	// Megafon PBX
	MegafonHost string
	MegafonKey  string

	// Yandex Cloud
	YandexFolderID string
	YandexAPIKey   string
	GPTModel       string
	GPTAPIURL      string
	SpeechAPIURL   string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	EmailTo      string

	// Processing
	MinutesTarget      int           // total minutes of audio to select per run
	RetryAttempts      int           // scoring request attempts
	RateLimitDelay     time.Duration // backoff after HTTP 429
	RetryDelay         time.Duration // backoff after other transient failures
	ShortfallThreshold float64       // warn when selected minutes fall below this fraction of target
	TempAudioDir       string
	DBPath             string
	LogDir             string

	// Timeouts
	DownloadTimeout time.Duration // large media files
	ScoringTimeout  time.Duration // text completion
}

const defaultGPTAPIURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

// Load reads configuration from the environment. Callers load .env via
// godotenv before calling this.
func Load() Config {
	return Config{
		MegafonHost: strings.TrimRight(os.Getenv("MEGAFON_HOST"), "/"),
		MegafonKey:  os.Getenv("MEGAFON_KEY"),

		YandexFolderID: os.Getenv("YANDEX_FOLDER_ID"),
		YandexAPIKey:   os.Getenv("YANDEX_API_KEY"),
		GPTModel:       envOr("YANDEX_GPT_MODEL", "yandexgpt-lite"),
		GPTAPIURL:      envOr("YANDEX_GPT_API_URL", defaultGPTAPIURL),
		SpeechAPIURL:   os.Getenv("SPEECH_API_URL"),

		SMTPHost:     envOr("SMTP_HOST", "smtp.yandex.ru"),
		SMTPPort:     envInt("SMTP_PORT", 465),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailTo:      os.Getenv("EMAIL_TO"),

		MinutesTarget:      envInt("ANALYSIS_MINUTES_TARGET", 2000),
		RetryAttempts:      envInt("RETRY_ATTEMPTS", 3),
		RateLimitDelay:     envDuration("RATE_LIMIT_DELAY", 5*time.Second),
		RetryDelay:         envDuration("RETRY_DELAY", 2*time.Second),
		ShortfallThreshold: envFloat("SHORTFALL_THRESHOLD", 0.9),
		TempAudioDir:       envOr("TEMP_AUDIO_PATH", "./temp_audio"),
		DBPath:             envOr("DB_PATH", "./calls.db"),
		LogDir:             envOr("LOG_DIR", "./logs"),

		DownloadTimeout: envDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		ScoringTimeout:  envDuration("SCORING_TIMEOUT", 60*time.Second),
	}
}

// Validate checks that the credentials a real (non-mock) run needs are
// present and creates the temp audio directory.
func (c Config) Validate() error {
	required := map[string]string{
		"MEGAFON_HOST":     c.MegafonHost,
		"MEGAFON_KEY":      c.MegafonKey,
		"YANDEX_FOLDER_ID": c.YandexFolderID,
		"YANDEX_API_KEY":   c.YandexAPIKey,
	}
	var missing []string
	for key, value := range required {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if err := os.MkdirAll(c.TempAudioDir, 0o755); err != nil {
		return fmt.Errorf("create temp audio dir: %w", err)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
