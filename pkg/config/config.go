package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"amokanban/pkg/client"
	kafka_config "amokanban/pkg/kafka/config"
	"amokanban/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	AmoBaseURL       string
	AmoAccessToken   string
	AmoWebhookSecret string
	KanbanAPIURL     string

	BookingTimezone string
	Location        *time.Location
	DefaultBranch   string
	BranchesFile    string
	Branches        []BranchConfig
	DemoFallback    bool
	CRMVocabulary   string
	CORSOrigin      string

	RequestTimeout  time.Duration
	UpstreamTimeout time.Duration
	IdempotencyTTL  time.Duration
	MaxRequestSize  int

	RateLimitRequests int
	RateLimitWindow   time.Duration

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	Kafka *kafka_config.Config

	Log    *logger.Logger
	Client *client.Client
}

// Load reads .env (when present) and the environment, validates the result
// and exits on invalid configuration.
func Load(serviceName string) *Config {
	envErr := godotenv.Load()

	log := logger.New(logger.Config{
		Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
		Format:    getEnvStr(EnvLogFormat, DefaultLogFormat),
		AddSource: true,
		Service:   serviceName,
	})
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		log.Warn("Failed to load .env file", "error", envErr)
	}

	cfg := FromEnv()
	cfg.Log = log
	cfg.Client = client.NewClient()

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it.
// Branches are loaded here; a broken branches file surfaces in Validate.
func FromEnv() *Config {
	cfg := &Config{
		Port: getEnvStr(EnvPort, DefaultPort),

		AmoBaseURL:       amoBaseURL(),
		AmoAccessToken:   getEnvStr(EnvAmoAccessToken, ""),
		AmoWebhookSecret: getEnvStr(EnvAmoWebhookSecret, ""),
		KanbanAPIURL:     strings.TrimRight(getEnvStr(EnvKanbanAPIURL, ""), "/"),

		BookingTimezone: getEnvStr(EnvBookingTimezone, DefaultBookingTimezone),
		DefaultBranch:   getEnvStr(EnvDefaultBranch, DefaultBranch),
		BranchesFile:    getEnvStr(EnvBranchesFile, ""),
		DemoFallback:    getEnvBool(EnvDemoFallback, false),
		CRMVocabulary:   strings.ToLower(getEnvStr(EnvCRMVocabulary, DefaultCRMVocabulary)),
		CORSOrigin:      getEnvStr(EnvCORSOrigin, DefaultCORSOrigin),

		RequestTimeout:  getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		UpstreamTimeout: getEnvDuration(EnvUpstreamTimeout, DefaultUpstreamTimeout),
		IdempotencyTTL:  getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize:  getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),
		CacheTTL:      getEnvDuration(EnvCacheTTL, DefaultCacheTTL),

		Kafka: kafka_config.Load(),
	}

	if loc, err := time.LoadLocation(cfg.BookingTimezone); err == nil {
		cfg.Location = loc
	}
	if branches, err := LoadBranches(cfg.BranchesFile); err == nil {
		cfg.Branches = branches
	}
	return cfg
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if !isHTTPURL(cfg.AmoBaseURL) {
		errors = append(errors, fmt.Sprintf("AmoBaseURL must be an http(s) URL, got: %s", cfg.AmoBaseURL))
	}
	if cfg.KanbanAPIURL != "" && !isHTTPURL(cfg.KanbanAPIURL) {
		errors = append(errors, fmt.Sprintf("KanbanAPIURL must be an http(s) URL, got: %s", cfg.KanbanAPIURL))
	}

	if _, err := time.LoadLocation(cfg.BookingTimezone); err != nil {
		errors = append(errors, fmt.Sprintf("BookingTimezone is not a known time zone: %s", cfg.BookingTimezone))
	}

	if cfg.CRMVocabulary != VocabularyRussian && cfg.CRMVocabulary != VocabularyEnglish {
		errors = append(errors, fmt.Sprintf("CRMVocabulary must be %q or %q, got: %s", VocabularyRussian, VocabularyEnglish, cfg.CRMVocabulary))
	}

	if _, err := LoadBranches(cfg.BranchesFile); err != nil {
		errors = append(errors, fmt.Sprintf("BranchesFile %q is invalid: %v", cfg.BranchesFile, err))
	} else if !hasBranch(cfg.Branches, cfg.DefaultBranch) {
		errors = append(errors, fmt.Sprintf("DefaultBranch %q is not defined in the branch table", cfg.DefaultBranch))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.UpstreamTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("UpstreamTimeout must be positive, got: %s", cfg.UpstreamTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}

	if cfg.RateLimitRequests < 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests cannot be negative, got: %d", cfg.RateLimitRequests))
	}
	if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitWindow must be positive when rate limiting is enabled, got: %s", cfg.RateLimitWindow))
	}

	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.RedisAddr != "" && cfg.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CacheTTL must be positive when Redis is enabled, got: %s", cfg.CacheTTL))
	}

	if cfg.Kafka != nil && cfg.Kafka.Enabled() {
		if err := cfg.Kafka.Validate(); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	branchNames := make([]string, 0, len(cfg.Branches))
	for _, b := range cfg.Branches {
		branchNames = append(branchNames, b.Name)
	}

	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"amo_base_url", cfg.AmoBaseURL,
		"amo_access_token", Redact(cfg.AmoAccessToken),
		"amo_webhook_secret_set", cfg.AmoWebhookSecret != "",
		"kanban_api_url", cfg.KanbanAPIURL,
		"booking_timezone", cfg.BookingTimezone,
		"default_branch", cfg.DefaultBranch,
		"branches", branchNames,
		"branches_file", cfg.BranchesFile,
		"demo_fallback", cfg.DemoFallback,
		"crm_vocabulary", cfg.CRMVocabulary,
		"cors_origin", cfg.CORSOrigin,
		"request_timeout", cfg.RequestTimeout,
		"upstream_timeout", cfg.UpstreamTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"redis_addr", cfg.RedisAddr,
		"cache_ttl", cfg.CacheTTL,
		"kafka_enabled", cfg.Kafka != nil && cfg.Kafka.Enabled(),
	)
}

// SetRedis connects the lead cache when REDIS_ADDR is set.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis address not set, lead cache disabled")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.UpstreamTimeout)
}

// SetKafka starts the event producer when brokers are configured.
func (cfg *Config) SetKafka() {
	if cfg.Kafka == nil || !cfg.Kafka.Enabled() {
		cfg.Log.Info("Kafka brokers not set, event publishing disabled")
		return
	}
	cfg.Client.SetKafka(cfg.Log, cfg.Kafka)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

// Environment returns the non-secret settings for diagnostics.
func (cfg *Config) Environment() map[string]any {
	return map[string]any{
		"amoBaseUrl":       cfg.AmoBaseURL,
		"hasAccessToken":   cfg.AmoAccessToken != "",
		"hasWebhookSecret": cfg.AmoWebhookSecret != "",
		"kanbanApiUrl":     cfg.KanbanAPIURL,
		"timezone":         cfg.BookingTimezone,
		"defaultBranch":    cfg.DefaultBranch,
		"demoFallback":     cfg.DemoFallback,
		"crmVocabulary":    cfg.CRMVocabulary,
		"cacheEnabled":     cfg.RedisAddr != "",
		"kafkaEnabled":     cfg.Kafka != nil && cfg.Kafka.Enabled(),
	}
}

// Redact keeps the first and last four characters of a secret.
func Redact(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 12:
		return "***"
	default:
		return secret[:4] + "***" + secret[len(secret)-4:]
	}
}

func amoBaseURL() string {
	if base := getEnvStr(EnvAmoBaseURL, ""); base != "" {
		return strings.TrimRight(base, "/")
	}
	return "https://" + getEnvStr(EnvAmoSubdomain, DefaultAmoSubdomain) + AmoDomainSuffix
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func hasBranch(branches []BranchConfig, name string) bool {
	for _, b := range branches {
		if b.Name == name {
			return true
		}
	}
	return false
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
