package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"amokanban/internal/webhook/service"
	apperrors "amokanban/pkg/errors"
	"amokanban/pkg/logger"
	"amokanban/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type mockWebhookService struct {
	forwardFunc func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.ForwardResult, error)
	inspectFunc func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.InspectResult, error)
}

func (m *mockWebhookService) Forward(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.ForwardResult, error) {
	if m.forwardFunc != nil {
		return m.forwardFunc(ctx, payload, requestID)
	}
	return &service.ForwardResult{Success: true, Message: service.ProcessedMessage}, nil
}

func (m *mockWebhookService) Inspect(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.InspectResult, error) {
	if m.inspectFunc != nil {
		return m.inspectFunc(ctx, payload, requestID)
	}
	return &service.InspectResult{Status: service.StatusProcessed}, nil
}

func newRouter(svc service.WebhookService) *httprouter.Router {
	router := httprouter.New()
	NewWebhookHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func TestForward_FormBody(t *testing.T) {
	var received model.WebhookPayload
	svc := &mockWebhookService{
		forwardFunc: func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.ForwardResult, error) {
			received = payload
			return &service.ForwardResult{Success: true, Message: service.ProcessedMessage, Processed: 1, Forwarded: 1}, nil
		},
	}

	form := url.Values{
		"leads[add][0][id]":                                 {"901"},
		"leads[add][0][custom_fields][0][name]":             {"Зона"},
		"leads[add][0][custom_fields][0][values][0][value]": {"Зона 3"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	newRouter(svc).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(received.Leads.Add) != 1 || received.Leads.Add[0].ID != 901 {
		t.Errorf("service received %+v", received.Leads)
	}

	var resp service.ForwardResult
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Message != "Webhook processed!" || resp.Forwarded != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestForward_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		serviceErr  error
		wantStatus  int
		wantCode    string
	}{
		{"empty body", "application/json", "", nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"broken json", "application/json", "{", nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{"unsupported type", "text/plain", "hello", nil, http.StatusBadRequest, apperrors.CodeInvalidInput},
		{
			"service not configured", "application/json", `{"leads":{"add":[{"id":1}]}}`,
			apperrors.NotConfigured("KANBAN_API_URL"), http.StatusInternalServerError, apperrors.CodeNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockWebhookService{
				forwardFunc: func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.ForwardResult, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					t.Error("service should not be called")
					return nil, nil
				},
			}

			req := httptest.NewRequest(http.MethodPost, "/api/webhook", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			newRouter(svc).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp map[string]any
			_ = json.Unmarshal(rec.Body.Bytes(), &resp)
			if resp["code"] != tt.wantCode {
				t.Errorf("code = %v, want %s", resp["code"], tt.wantCode)
			}
		})
	}
}

func TestForward_MethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&mockWebhookService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/webhook", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestInspect(t *testing.T) {
	t.Run("ignored", func(t *testing.T) {
		svc := &mockWebhookService{
			inspectFunc: func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.InspectResult, error) {
				return &service.InspectResult{Status: service.StatusIgnored, Message: "webhook carries no lead id"}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/webhook-handler", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(rec.Body.Bytes(), &resp)
		if resp["status"] != "ignored" {
			t.Errorf("response = %v", resp)
		}
		if _, ok := resp["lead"]; ok {
			t.Error("ignored response must not carry a lead")
		}
	})

	t.Run("processed", func(t *testing.T) {
		svc := &mockWebhookService{
			inspectFunc: func(ctx context.Context, payload model.WebhookPayload, requestID string) (*service.InspectResult, error) {
				return &service.InspectResult{
					Status: service.StatusProcessed,
					Event:  service.EventInfo{Type: "unknown", Action: service.ActionDelete, LeadID: int64(payload.Leads.Delete[0].ID)},
				}, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/api/webhook-handler", strings.NewReader(`{"leads":{"delete":[{"id":"77"}]}}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		newRouter(svc).ServeHTTP(rec, req)

		var resp struct {
			Status string            `json:"status"`
			Event  service.EventInfo `json:"event"`
			Lead   *json.RawMessage  `json:"lead"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != "processed" || resp.Event.LeadID != 77 || resp.Event.Action != "delete" {
			t.Errorf("response = %+v", resp)
		}
		if resp.Lead != nil {
			t.Errorf("lead should be null, got %s", *resp.Lead)
		}
	})
}
