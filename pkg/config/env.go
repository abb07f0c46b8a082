package config

const (
	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"

	EnvAmoBaseURL       = "AMO_BASE_URL"
	EnvAmoSubdomain     = "AMO_SUBDOMAIN"
	EnvAmoAccessToken   = "AMO_ACCESS_TOKEN"
	EnvAmoWebhookSecret = "AMO_WEBHOOK_SECRET"
	EnvKanbanAPIURL     = "KANBAN_API_URL"

	EnvBookingTimezone = "BOOKING_TIMEZONE"
	EnvDefaultBranch   = "DEFAULT_BRANCH"
	EnvBranchesFile    = "BRANCHES_FILE"
	EnvDemoFallback    = "DEMO_FALLBACK"
	EnvCRMVocabulary   = "CRM_VOCABULARY"
	EnvCORSOrigin      = "CORS_ALLOWED_ORIGIN"

	EnvRequestTimeout  = "REQUEST_TIMEOUT"
	EnvUpstreamTimeout = "UPSTREAM_TIMEOUT"
	EnvIdempotencyTTL  = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize  = "MAX_REQUEST_SIZE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvCacheTTL      = "CACHE_TTL"
)
