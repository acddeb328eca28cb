package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ent0n29/vocabrelay/internal/assistant"
	"github.com/ent0n29/vocabrelay/internal/config"
	"github.com/ent0n29/vocabrelay/internal/httpapi"
	"github.com/ent0n29/vocabrelay/internal/observability"
	"github.com/ent0n29/vocabrelay/internal/relay"
	"github.com/ent0n29/vocabrelay/internal/webhook"
)

type BuildResult struct {
	Config    config.Config
	API       *httpapi.Server
	Relay     *relay.Service
	Assistant *assistant.Client
	Webhook   *webhook.Client
	Metrics   *observability.Metrics
}

// Build wires the service graph from cfg. Metrics are registered on reg.
func Build(cfg config.Config, reg prometheus.Registerer, logger *zap.Logger) *BuildResult {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := observability.NewMetrics(cfg.MetricsNamespace, reg)

	chat := assistant.NewClient(assistant.Config{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
	})
	chat.SetObserver(metrics.ObserveChat)

	wh := webhook.NewClient(cfg.WebhookURL, cfg.WebhookTimeout)
	wh.SetObserver(metrics.ObserveWebhook)

	svc := relay.NewService(chat, wh, logger.Named("relay"))
	api := httpapi.New(cfg, svc, metrics, logger.Named("http"))

	return &BuildResult{
		Config:    cfg,
		API:       api,
		Relay:     svc,
		Assistant: chat,
		Webhook:   wh,
		Metrics:   metrics,
	}
}
