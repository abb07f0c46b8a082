package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"amokanban/pkg/logger"
	"amokanban/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockAccountChecker struct {
	hasToken    bool
	accountFunc func(ctx context.Context) (*model.AmoAccount, error)
}

func (m *mockAccountChecker) HasToken() bool {
	return m.hasToken
}

func (m *mockAccountChecker) Account(ctx context.Context) (*model.AmoAccount, error) {
	if m.accountFunc != nil {
		return m.accountFunc(ctx)
	}
	return &model.AmoAccount{ID: 1, Subdomain: "dungeonbron"}, nil
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

func serve(h *HealthHandler, path string) *httptest.ResponseRecorder {
	router := httprouter.New()
	h.RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	h := NewHealthHandler(&mockAccountChecker{}, nil, nil, nil, logger.Discard())
	rec := serve(h, "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		hasToken bool
		wantCode int
		want     string
	}{
		{"token present", true, http.StatusOK, "ready"},
		{"token missing", false, http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(&mockAccountChecker{hasToken: tt.hasToken}, nil, nil, nil, logger.Discard())
			rec := serve(h, "/ready")

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.want {
				t.Errorf("status = %q, want %q", resp.Status, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	branches := []string{"МСК", "Полевая"}
	env := map[string]any{"timezone": "Europe/Moscow"}
	apiDown := func(ctx context.Context) (*model.AmoAccount, error) {
		return nil, errors.New("status 401")
	}

	tests := []struct {
		name       string
		amo        *mockAccountChecker
		cache      Pinger
		branches   []string
		wantCode   int
		wantStatus string
		check      func(t *testing.T, resp HealthCheckResponse)
	}{
		{
			name:       "healthy",
			amo:        &mockAccountChecker{hasToken: true},
			branches:   branches,
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
			check: func(t *testing.T, resp HealthCheckResponse) {
				if resp.Checks.AmoAPI == nil || resp.Checks.AmoAPI.Message != "API available (dungeonbron)" {
					t.Errorf("amoApi = %+v", resp.Checks.AmoAPI)
				}
				if len(resp.Checks.Config.Branches) != 2 || resp.Checks.Config.Message != "2 branches configured" {
					t.Errorf("config = %+v", resp.Checks.Config)
				}
				if resp.Checks.Environment.Variables["timezone"] != "Europe/Moscow" {
					t.Errorf("environment = %+v", resp.Checks.Environment)
				}
				if resp.Checks.Cache != nil {
					t.Error("cache check must be absent when the cache is disabled")
				}
			},
		},
		{
			name:       "no token skips the API probe",
			amo:        &mockAccountChecker{hasToken: false},
			branches:   branches,
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			check: func(t *testing.T, resp HealthCheckResponse) {
				if resp.Checks.AmoAPI != nil {
					t.Errorf("amoApi = %+v", resp.Checks.AmoAPI)
				}
				if resp.Checks.AccessToken.Status != CheckError {
					t.Errorf("accessToken = %+v", resp.Checks.AccessToken)
				}
				if resp.Message != "1 of 3 checks failed" {
					t.Errorf("message = %q", resp.Message)
				}
			},
		},
		{
			name:       "api down",
			amo:        &mockAccountChecker{hasToken: true, accountFunc: apiDown},
			branches:   branches,
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			check: func(t *testing.T, resp HealthCheckResponse) {
				if resp.Checks.AmoAPI.Status != CheckError {
					t.Errorf("amoApi = %+v", resp.Checks.AmoAPI)
				}
			},
		},
		{
			name:       "cache down",
			amo:        &mockAccountChecker{hasToken: true},
			cache:      &mockPinger{err: errors.New("connection refused")},
			branches:   branches,
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			check: func(t *testing.T, resp HealthCheckResponse) {
				if resp.Checks.Cache == nil || resp.Checks.Cache.Status != CheckError {
					t.Errorf("cache = %+v", resp.Checks.Cache)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.amo, tt.cache, tt.branches, env, logger.Discard())
			rec := serve(h, "/api/health-check")

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthCheckResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
			tt.check(t, resp)
		})
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		failed, total int
		want          string
	}{
		{0, 4, StatusHealthy},
		{1, 4, StatusDegraded},
		{3, 4, StatusDegraded},
		{4, 4, StatusUnhealthy},
	}

	for _, tt := range tests {
		if got, _ := overall(tt.failed, tt.total); got != tt.want {
			t.Errorf("overall(%d, %d) = %q, want %q", tt.failed, tt.total, got, tt.want)
		}
	}
}
