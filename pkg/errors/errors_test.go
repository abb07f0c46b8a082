package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   InvalidInput("branch is required"),
			expected: "INVALID_INPUT: branch is required",
		},
		{
			name:     "with underlying error",
			appErr:   BadGateway("AmoCRM", errors.New("status 401")),
			expected: "BAD_GATEWAY: AmoCRM request failed (caused by: status 401)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestConstructors_StatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NotFound("Lead"), CodeNotFound, http.StatusNotFound},
		{"validation", Validation("bad booking", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"invalid input", InvalidInput("bad"), CodeInvalidInput, http.StatusBadRequest},
		{"unauthorized", Unauthorized("bad signature"), CodeUnauthorized, http.StatusUnauthorized},
		{"conflict", Conflict("in flight"), CodeConflict, http.StatusConflict},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("Kanban"), CodeUnavailable, http.StatusServiceUnavailable},
		{"bad gateway", BadGateway("AmoCRM", nil), CodeBadGateway, http.StatusBadGateway},
		{"not configured", NotConfigured("AMO_ACCESS_TOKEN"), CodeNotConfigured, http.StatusInternalServerError},
		{"zero status", &AppError{Code: "X"}, "X", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	original := Unavailable("AmoCRM")
	wrapped := fmt.Errorf("fetch leads: %w", original)

	if got := AsAppError(wrapped); got != original {
		t.Errorf("expected to unwrap the original AppError, got %v", got)
	}
	if !IsAppError(wrapped) {
		t.Error("expected IsAppError to see through wrapping")
	}
	if !HasCode(wrapped, CodeUnavailable) {
		t.Error("expected HasCode to match")
	}

	plain := errors.New("socket closed")
	got := AsAppError(plain)
	if got.Code != CodeInternal || !errors.Is(got, plain) {
		t.Errorf("expected internal wrapper around plain error, got %v", got)
	}
	if IsAppError(plain) {
		t.Error("plain error is not an AppError")
	}
}

func TestWithDetails(t *testing.T) {
	err := InvalidInput("unknown branch").WithDetails(map[string]any{"branch": "Казань"})
	if err.Details["branch"] != "Казань" {
		t.Errorf("unexpected details %v", err.Details)
	}
}
