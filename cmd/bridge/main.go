package main

import (
	"amokanban/internal/branches"
	dealshandler "amokanban/internal/deals/handler"
	dealsservice "amokanban/internal/deals/service"
	healthhandler "amokanban/internal/health/handler"
	"amokanban/internal/normalizer"
	pipelineshandler "amokanban/internal/pipelines/handler"
	pipelinesservice "amokanban/internal/pipelines/service"
	webhookhandler "amokanban/internal/webhook/handler"
	webhookservice "amokanban/internal/webhook/service"
	"amokanban/internal/webhook/validator"
	"amokanban/pkg/app"
	"amokanban/pkg/cache"
	"amokanban/pkg/client"
	"amokanban/pkg/config"
	kafka_middleware "amokanban/pkg/kafka/middleware"
	"amokanban/pkg/metrics"
)

const ServiceName = "amokanban-bridge"

func main() {
	cfg := config.Load(ServiceName)
	m := metrics.NewWithRuntime()

	cfg.SetRedis()
	cfg.SetKafka()
	if cfg.Client.Kafka != nil {
		cfg.Client.Kafka.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		cfg.Client.Kafka.Use(kafka_middleware.MetricsProducerMiddleware(m))
	}

	cfg.Log.Info("Starting AmoCRM bridge service")

	registry, err := branches.NewRegistry(cfg.Branches, cfg.DefaultBranch)
	if err != nil {
		cfg.Log.Fatal("Invalid branch table", "error", err)
	}

	amo := client.NewAmoClient(cfg.AmoBaseURL, cfg.AmoAccessToken, cfg.UpstreamTimeout, m)
	kanban := client.NewKanbanClient(cfg.KanbanAPIURL, cfg.UpstreamTimeout)
	vocab, ok := normalizer.VocabularyByName(cfg.CRMVocabulary)
	if !ok {
		cfg.Log.Fatal("Unknown CRM vocabulary", "vocabulary", cfg.CRMVocabulary)
	}
	norm := normalizer.New(registry.ZoneMapper(),
		normalizer.WithLocation(cfg.Location),
		normalizer.WithVocabulary(vocab),
	)

	var leadCache *cache.RedisLeadCache
	var cachePinger healthhandler.Pinger
	if cfg.Client.Redis != nil {
		leadCache = cache.NewRedisLeadCache(cfg.Client.Redis, cfg.CacheTTL, cfg.Log)
		cachePinger = leadCache
	}

	serverApp := app.NewApplication(cfg, m)
	serverApp.SetApp(
		healthhandler.NewHealthHandler(amo, cachePinger, registry.Names(), cfg.Environment(), cfg.Log),
		dealshandler.NewDealsHandler(initDeals(cfg, amo, registry, norm, leadCache, m), cfg.Log),
		webhookhandler.NewWebhookHandler(initWebhook(cfg, amo, kanban, registry, norm, m), cfg.Log),
		pipelineshandler.NewPipelinesHandler(pipelinesservice.NewPipelinesService(amo, registry, cfg.Log), cfg.Log),
	)
	serverApp.Run()
}

func initDeals(
	cfg *config.Config,
	amo *client.AmoClient,
	registry *branches.Registry,
	norm *normalizer.Normalizer,
	leadCache *cache.RedisLeadCache,
	m *metrics.Metrics,
) dealsservice.DealsService {
	opts := []dealsservice.Option{dealsservice.WithDemoFallback(cfg.DemoFallback)}
	if leadCache != nil {
		opts = append(opts, dealsservice.WithCache(leadCache))
	}

	dealsService := dealsservice.NewDealsService(amo, registry, norm, m, cfg.Log, opts...)
	cfg.Log.Info("Deals service initialized",
		"cache_enabled", leadCache != nil,
		"demo_fallback", cfg.DemoFallback,
	)
	return dealsService
}

func initWebhook(
	cfg *config.Config,
	amo *client.AmoClient,
	kanban *client.KanbanClient,
	registry *branches.Registry,
	norm *normalizer.Normalizer,
	m *metrics.Metrics,
) webhookservice.WebhookService {
	webhookService := webhookservice.NewWebhookService(
		amo,
		kanban,
		registry,
		norm,
		validator.NewBookingValidator(cfg.Log),
		cfg.Client.Publisher(),
		m,
		cfg.Log,
	)
	cfg.Log.Info("Webhook service initialized",
		"kanban_configured", kanban.Configured(),
		"events_enabled", cfg.Client.Kafka != nil,
	)
	return webhookService
}
