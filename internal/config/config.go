package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey     = errors.New("OPENAI_API_KEY is not set")
	ErrMissingWebhookURL = errors.New("GAS_ENDPOINT or GAS_WEBAPP_URL is not set")
)

// webhookURLKeys lists the accepted names for the webhook endpoint, highest precedence first.
var webhookURLKeys = []string{"GAS_ENDPOINT", "GAS_WEBAPP_URL"}

// Config contains all runtime settings for the relay service.
type Config struct {
	Port             string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIBaseURL     string
	OpenAITemperature float32

	WebhookURL     string
	WebhookTimeout time.Duration

	OpenAPIPath string

	CORSAllowedOrigins []string
}

// Addr is the listen address derived from Port.
func (c Config) Addr() string {
	return ":" + c.Port
}

// Load reads environment variables and applies defaults. It fails when the chat
// API key or the webhook endpoint is missing.
func Load() (Config, error) {
	cfg := Config{
		Port:              envOrDefault("PORT", "3000"),
		MetricsNamespace:  envOrDefault("APP_METRICS_NAMESPACE", "vocabrelay"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		OpenAIAPIKey:      trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:     trimmedEnv("OPENAI_BASE_URL"),
		OpenAITemperature: 0.2,
		WebhookURL:        firstNonEmpty(webhookURLKeys...),
		WebhookTimeout:    60 * time.Second,
		OpenAPIPath:       envOrDefault("OPENAPI_PATH", "openapi.json"),
		ShutdownTimeout:   15 * time.Second,
	}
	cfg.CORSAllowedOrigins = listFromEnv("CORS_ALLOWED_ORIGINS", []string{"*"})

	if cfg.OpenAIAPIKey == "" {
		return Config{}, ErrMissingAPIKey
	}
	if cfg.WebhookURL == "" {
		return Config{}, ErrMissingWebhookURL
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.WebhookTimeout, err = durationFromEnv("WEBHOOK_TIMEOUT", cfg.WebhookTimeout)
	if err != nil {
		return Config{}, err
	}
	temp, err := floatFromEnv("OPENAI_TEMPERATURE", float64(cfg.OpenAITemperature))
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature = float32(temp)

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT parse error: %w", err)
	}
	if cfg.WebhookTimeout < 0 {
		return Config{}, fmt.Errorf("WEBHOOK_TIMEOUT must be >= 0")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be in [0,2]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// firstNonEmpty returns the value of the first key that is set to a non-blank value.
func firstNonEmpty(keys ...string) string {
	for _, key := range keys {
		if v := trimmedEnv(key); v != "" {
			return v
		}
	}
	return ""
}

// listFromEnv splits a comma separated value. "none" yields an empty list.
func listFromEnv(key string, fallback []string) []string {
	v := trimmedEnv(key)
	if v == "" {
		return fallback
	}
	if strings.EqualFold(v, "none") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}
