package handler

import (
	"net/http"

	"amokanban/internal/pipelines/service"
	httputil "amokanban/pkg/http"
	"amokanban/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type PipelinesHandler struct {
	service service.PipelinesService
	log     *logger.Logger
}

func NewPipelinesHandler(service service.PipelinesService, log *logger.Logger) *PipelinesHandler {
	return &PipelinesHandler{
		service: service,
		log:     log,
	}
}

func (h *PipelinesHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	result, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, result)
}

func (h *PipelinesHandler) CheckStatuses(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.service.CheckStatuses(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

func (h *PipelinesHandler) Debug(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.service.Debug(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

func (h *PipelinesHandler) TodayStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	report, err := h.service.TodayStatus(r.Context(), r.URL.Query().Get("branch"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, report)
}

func (h *PipelinesHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/pipelines", h.List)
	router.GET("/api/check-statuses", h.CheckStatuses)
	router.GET("/api/debug-pipeline", h.Debug)
	router.GET("/api/debug-status-today", h.TodayStatus)
}
