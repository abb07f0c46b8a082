package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"amokanban/pkg/model"
)

const KanbanService = "Kanban"

type KanbanClient struct {
	http *HttpClient
}

func NewKanbanClient(baseURL string, timeout time.Duration) *KanbanClient {
	return &KanbanClient{
		http: NewHttpClient(baseURL, timeout),
	}
}

func (c *KanbanClient) Configured() bool {
	return c.http.BaseURL != ""
}

// CreateBooking posts one booking and returns the backend's response body.
// requestID is forwarded as X-Request-ID when set.
func (c *KanbanClient) CreateBooking(ctx context.Context, booking model.KanbanBooking, requestID string) (json.RawMessage, error) {
	if !c.Configured() {
		return nil, ErrNoBaseURL
	}

	var headers map[string]string
	if requestID != "" {
		headers = map[string]string{"X-Request-ID": requestID}
	}

	resp, err := c.http.POSTWithHeaders(ctx, "/api/bookings", booking, headers)
	if err != nil {
		return nil, fmt.Errorf("%s create booking: %w", KanbanService, err)
	}
	if !resp.IsSuccess() {
		return nil, newStatusError(KanbanService, resp)
	}
	if !json.Valid(resp.Body) {
		return nil, nil
	}
	return json.RawMessage(resp.Body), nil
}
