package config

import "time"

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultAmoSubdomain = "dungeonbron"
	AmoDomainSuffix     = ".amocrm.ru"

	DefaultBookingTimezone = "Europe/Moscow"
	DefaultBranch          = "МСК"
	DefaultCORSOrigin      = "*"

	// Languages of the CRM account's custom field names.
	VocabularyRussian    = "ru"
	VocabularyEnglish    = "en"
	DefaultCRMVocabulary = VocabularyRussian

	DefaultRequestTimeout  = 30 * time.Second
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultIdempotencyTTL  = 24 * time.Hour
	DefaultMaxRequestSize  = 1 * 1024 * 1024 // 1MB

	DefaultRateLimitRequests = 120
	DefaultRateLimitWindow   = time.Minute

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisDB  = 0
	DefaultCacheTTL = 5 * time.Minute

	// AmoCRM caps page size at 250.
	DefaultLeadsLimit = 250
)
