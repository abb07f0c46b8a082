package handler

import (
	"net/http"
	"strings"
	"time"

	"amokanban/internal/deals/service"
	apperrors "amokanban/pkg/errors"
	httputil "amokanban/pkg/http"
	"amokanban/pkg/logger"
	"amokanban/pkg/middleware"
	"amokanban/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type DealsHandler struct {
	service service.DealsService
	log     *logger.Logger
}

func NewDealsHandler(service service.DealsService, log *logger.Logger) *DealsHandler {
	return &DealsHandler{
		service: service,
		log:     log,
	}
}

// List handles GET /api/amo-deals?branch=&status=&date=&today=.
func (h *DealsHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q, err := parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.List(r.Context(), q)
	if err != nil {
		// The frontend still expects the deals envelope when the CRM token is missing.
		if result != nil && apperrors.HasCode(err, apperrors.CodeNotConfigured) {
			appErr := apperrors.AsAppError(err)
			result.Error = appErr.Message
			httputil.WriteJSON(w, appErr.StatusCode(), result)
			return
		}
		h.log.Error("Failed to list deals",
			"request_id", middleware.GetRequestID(r.Context()),
			"branch", q.Branch,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteSuccess(w, result)
}

func parseQuery(r *http.Request) (service.Query, error) {
	values := r.URL.Query()
	q := service.Query{
		Branch: strings.TrimSpace(values.Get("branch")),
		Today:  httputil.QueryBool(r, "today"),
	}

	status, ok, err := httputil.QueryInt64(r, "status")
	if err != nil {
		return service.Query{}, err
	}
	q.StatusID, q.HasStatus = status, ok

	if date := strings.TrimSpace(values.Get("date")); date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return service.Query{}, apperrors.InvalidInput("invalid date parameter, expected YYYY-MM-DD: " + date)
		}
		q.Date = model.Date(date)
	}
	return q, nil
}

func (h *DealsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/amo-deals", h.List)
}
