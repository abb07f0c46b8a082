package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httputil "amokanban/pkg/http"
	"amokanban/pkg/logger"
	"amokanban/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const (
	CheckOK    = "ok"
	CheckError = "error"

	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"

	probeTimeout = 5 * time.Second
)

type AccountChecker interface {
	HasToken() bool
	Account(ctx context.Context) (*model.AmoAccount, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	CRM    string `json:"crm,omitempty"`
}

type Check struct {
	Status         string         `json:"status"`
	Message        string         `json:"message"`
	ResponseTimeMS int64          `json:"responseTimeMs,omitempty"`
	Branches       []string       `json:"branches,omitempty"`
	Variables      map[string]any `json:"variables,omitempty"`
}

type Checks struct {
	AccessToken Check  `json:"accessToken"`
	AmoAPI      *Check `json:"amoApi,omitempty"`
	Config      Check  `json:"config"`
	Environment Check  `json:"environment"`
	Cache       *Check `json:"cache,omitempty"`
}

type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Checks    Checks    `json:"checks"`
}

type HealthHandler struct {
	amo         AccountChecker
	cache       Pinger
	branches    []string
	environment map[string]any
	log         *logger.Logger
	now         func() time.Time
}

// NewHealthHandler builds the liveness, readiness and diagnostics endpoints.
// cache may be nil when the lead cache is disabled.
func NewHealthHandler(amo AccountChecker, cache Pinger, branches []string, environment map[string]any, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		amo:         amo,
		cache:       cache,
		branches:    branches,
		environment: environment,
		log:         log,
		now:         time.Now,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready reports whether the CRM token is configured; the read path cannot
// serve anything without it.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if !h.amo.HasToken() {
		h.log.Error("Readiness check failed", "reason", "AMO_ACCESS_TOKEN is not configured", "path", r.URL.Path)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			CRM:    "no_token",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ready",
		CRM:    "ok",
	})
}

// Check handles GET /api/health-check.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	resp := h.run(r.Context())

	code := http.StatusOK
	if resp.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
		h.log.Error("Health check failed", "message", resp.Message)
	}
	httputil.WriteJSON(w, code, resp)
}

func (h *HealthHandler) run(ctx context.Context) HealthCheckResponse {
	var checks Checks

	if h.amo.HasToken() {
		checks.AccessToken = Check{Status: CheckOK, Message: "access token is configured"}
		checks.AmoAPI = h.probeAmo(ctx)
	} else {
		checks.AccessToken = Check{Status: CheckError, Message: "access token is not configured"}
	}

	if len(h.branches) > 0 {
		checks.Config = Check{
			Status:   CheckOK,
			Message:  fmt.Sprintf("%d branches configured", len(h.branches)),
			Branches: h.branches,
		}
	} else {
		checks.Config = Check{Status: CheckError, Message: "no branches configured"}
	}

	checks.Environment = Check{
		Status:    CheckOK,
		Message:   "environment checked",
		Variables: h.environment,
	}

	if h.cache != nil {
		checks.Cache = h.probeCache(ctx)
	}

	all := []*Check{&checks.AccessToken, checks.AmoAPI, &checks.Config, &checks.Environment, checks.Cache}
	total, failed := 0, 0
	for _, c := range all {
		if c == nil {
			continue
		}
		total++
		if c.Status == CheckError {
			failed++
		}
	}

	status, message := overall(failed, total)
	return HealthCheckResponse{
		Status:    status,
		Message:   message,
		Timestamp: h.now().UTC(),
		Checks:    checks,
	}
}

func overall(failed, total int) (status, message string) {
	switch {
	case failed == 0:
		return StatusHealthy, "all systems operational"
	case failed < total:
		return StatusDegraded, fmt.Sprintf("%d of %d checks failed", failed, total)
	default:
		return StatusUnhealthy, "all checks failed"
	}
}

func (h *HealthHandler) probeAmo(ctx context.Context) *Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := h.now()
	account, err := h.amo.Account(ctx)
	took := h.now().Sub(start).Milliseconds()
	if err != nil {
		h.log.Warn("AmoCRM API probe failed", "error", err)
		return &Check{Status: CheckError, Message: "API unavailable: " + err.Error(), ResponseTimeMS: took}
	}

	msg := "API available"
	if account != nil && account.Subdomain != "" {
		msg += " (" + account.Subdomain + ")"
	}
	return &Check{Status: CheckOK, Message: msg, ResponseTimeMS: took}
}

func (h *HealthHandler) probeCache(ctx context.Context) *Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		h.log.Warn("Lead cache probe failed", "error", err)
		return &Check{Status: CheckError, Message: "cache unavailable: " + err.Error()}
	}
	return &Check{Status: CheckOK, Message: "cache available"}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/api/health-check", h.Check)
}
