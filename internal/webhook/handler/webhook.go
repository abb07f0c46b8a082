package handler

import (
	"io"
	"net/http"

	"amokanban/internal/webhook/parser"
	"amokanban/internal/webhook/service"
	apperrors "amokanban/pkg/errors"
	httputil "amokanban/pkg/http"
	"amokanban/pkg/logger"
	"amokanban/pkg/middleware"
	"amokanban/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type WebhookHandler struct {
	service service.WebhookService
	log     *logger.Logger
}

func NewWebhookHandler(service service.WebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		log:     log,
	}
}

type IgnoredResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Forward handles POST /api/webhook.
func (h *WebhookHandler) Forward(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := h.decode(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Forward(r.Context(), payload, middleware.GetRequestID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

// Inspect handles POST /api/webhook-handler.
func (h *WebhookHandler) Inspect(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := h.decode(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Inspect(r.Context(), payload, middleware.GetRequestID(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if result.Status == service.StatusIgnored {
		httputil.WriteSuccess(w, IgnoredResponse{Status: result.Status, Message: result.Message})
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *WebhookHandler) decode(r *http.Request) (model.WebhookPayload, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("Failed to read webhook body",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		return model.WebhookPayload{}, apperrors.InvalidInput("failed to read request body")
	}

	payload, err := parser.Parse(r.Header.Get("Content-Type"), body)
	if err != nil {
		h.log.Warn("Invalid webhook payload",
			"request_id", middleware.GetRequestID(r.Context()),
			"content_type", r.Header.Get("Content-Type"),
			"error", err,
		)
		return model.WebhookPayload{}, apperrors.InvalidInput(err.Error())
	}
	return payload, nil
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/webhook", h.Forward)
	router.POST("/api/webhook-handler", h.Inspect)
}
