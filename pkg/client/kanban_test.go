package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"amokanban/pkg/model"
)

func TestKanbanClient_CreateBooking(t *testing.T) {
	var received model.KanbanBooking
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/bookings" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") != "req-7" {
			t.Errorf("expected request id to be forwarded")
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"b-1"}`))
	}))
	defer srv.Close()

	c := NewKanbanClient(srv.URL+"/", time.Second)
	booking := model.KanbanBooking{
		Name:      "Иван",
		Time:      "18:24",
		Guests:    4,
		Source:    "AmoCRM",
		TableID:   7,
		Branch:    "МСК",
		AmoLeadID: 31337,
	}

	body, err := c.CreateBooking(context.Background(), booking, "req-7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"id":"b-1"}` {
		t.Errorf("unexpected body %s", body)
	}
	if received.AmoLeadID != 31337 || received.TableID != 7 || received.Source != "AmoCRM" {
		t.Errorf("unexpected booking received %+v", received)
	}
}

func TestKanbanClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"table is taken"}`))
	}))
	defer srv.Close()

	_, err := NewKanbanClient(srv.URL, time.Second).CreateBooking(context.Background(), model.KanbanBooking{}, "")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Message != "table is taken" {
		t.Errorf("expected status error with message, got %v", err)
	}

	_, err = NewKanbanClient("", time.Second).CreateBooking(context.Background(), model.KanbanBooking{}, "")
	if !errors.Is(err, ErrNoBaseURL) {
		t.Errorf("expected ErrNoBaseURL, got %v", err)
	}
}
