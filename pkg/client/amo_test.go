package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
)

func newAmoServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *AmoClient) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewAmoClient(srv.URL, "test-token", 5*time.Second, nil)
}

func TestAmoClient_ListLeads(t *testing.T) {
	_, c := newAmoServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/leads" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		q := r.URL.Query()
		if q.Get("filter[statuses][0][pipeline_id]") != "5096620" || q.Get("filter[statuses][0][status_id]") != "45762658" {
			t.Errorf("unexpected status filter %v", q)
		}
		if q.Get("with") != "contacts" {
			t.Errorf("expected contacts to be requested")
		}

		w.Header().Set("Content-Type", "application/hal+json")
		fmt.Fprint(w, `{"_embedded":{"leads":[
			{"id":1,"name":"Бронь","status_id":45762658,"pipeline_id":5096620,
			 "custom_fields_values":[{"field_id":11,"field_name":"Дата брони","values":[{"value":1724425440}]},
			                         {"field_id":12,"field_name":"Зона","values":[{"value":"Зона 3"}]}]},
			{"id":2,"name":"Без полей","status_id":45762658,"pipeline_id":5096620,"custom_fields_values":null}
		]}}`)
	})

	leads, err := c.ListLeads(context.Background(), LeadQuery{
		PipelineID:   5096620,
		StatusIDs:    []int64{45762658},
		WithContacts: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 2 {
		t.Fatalf("expected 2 leads, got %d", len(leads))
	}

	raw := leads[0].ToRawLead()
	if raw.CustomFields[0].Value != "1724425440" {
		t.Errorf("expected numeric value as string, got %q", raw.CustomFields[0].Value)
	}
	if raw.CustomFields[1].Name != "Зона" {
		t.Errorf("unexpected field name %q", raw.CustomFields[1].Name)
	}
}

func TestAmoClient_ListLeadsPaginates(t *testing.T) {
	pages := 0
	_, c := newAmoServer(t, func(w http.ResponseWriter, r *http.Request) {
		pages++
		q := r.URL.Query()
		if q.Get("filter[pipeline_id]") != "5998579" {
			t.Errorf("expected pipeline filter, got %v", q)
		}
		if q.Get("limit") != "250" {
			t.Errorf("expected full page size, got %s", q.Get("limit"))
		}

		page, _ := strconv.Atoi(q.Get("page"))
		if page > 2 {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		leads := make([]string, AmoMaxPageSize)
		for i := range leads {
			leads[i] = fmt.Sprintf(`{"id":%d}`, page*1000+i)
		}
		fmt.Fprintf(w, `{"_embedded":{"leads":[%s]}}`, strings.Join(leads, ","))
	})

	leads, err := c.ListLeads(context.Background(), LeadQuery{PipelineID: 5998579, Limit: 600})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 500 || pages != 3 {
		t.Errorf("expected 500 leads over 3 requests, got %d over %d", len(leads), pages)
	}
	if leads[250].ID != 2000 {
		t.Errorf("expected second page to follow the first, got id %d", leads[250].ID)
	}
}

func TestAmoClient_EmptyListing(t *testing.T) {
	_, c := newAmoServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	leads, err := c.ListLeads(context.Background(), LeadQuery{PipelineID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 0 {
		t.Errorf("expected no leads, got %d", len(leads))
	}
}

func TestAmoClient_Errors(t *testing.T) {
	_, c := newAmoServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/leads/404":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"title":"Unauthorized","status":401,"detail":"Token has expired"}`)
		}
	})

	_, err := c.GetLead(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	_, err = c.ListPipelines(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Message != "Token has expired" {
		t.Errorf("unexpected status error %+v", statusErr)
	}

	noToken := NewAmoClient("http://127.0.0.1:1", "", time.Second, nil)
	if _, err := noToken.Account(context.Background()); !errors.Is(err, ErrNoAccessToken) {
		t.Errorf("expected ErrNoAccessToken, got %v", err)
	}
}

func TestAmoClient_Pipelines(t *testing.T) {
	_, c := newAmoServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/leads/pipelines":
			fmt.Fprint(w, `{"_embedded":{"pipelines":[{"id":5096620,"name":"МСК","is_main":true,
				"_embedded":{"statuses":[{"id":45762658,"name":"Сегодня","sort":10}]}}]}}`)
		case "/api/v4/leads/pipelines/5096620":
			fmt.Fprint(w, `{"id":5096620,"name":"МСК","_embedded":{"statuses":[{"id":45762658,"name":"Сегодня"},{"id":142,"name":"Успешно"}]}}`)
		case "/api/v4/account":
			fmt.Fprint(w, `{"id":30000001,"name":"Dungeon","subdomain":"dungeonbron"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	pipelines, err := c.ListPipelines(context.Background())
	if err != nil || len(pipelines) != 1 {
		t.Fatalf("unexpected result %v %v", pipelines, err)
	}
	if !pipelines[0].IsMain || len(pipelines[0].Embedded.Statuses) != 1 {
		t.Errorf("unexpected pipeline %+v", pipelines[0])
	}

	p, err := c.GetPipeline(context.Background(), 5096620)
	if err != nil || len(p.Embedded.Statuses) != 2 {
		t.Fatalf("unexpected pipeline %+v %v", p, err)
	}

	account, err := c.Account(context.Background())
	if err != nil || account.Subdomain != "dungeonbron" {
		t.Errorf("unexpected account %+v %v", account, err)
	}
}
