package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"amokanban/pkg/metrics"
	"amokanban/pkg/model"
)

const (
	AmoService = "AmoCRM"

	// AmoCRM caps a page at 250 leads.
	AmoMaxPageSize = 250
	amoMaxPages    = 20
)

// LeadQuery selects leads of one pipeline, optionally narrowed to statuses.
type LeadQuery struct {
	PipelineID   int64
	StatusIDs    []int64
	Limit        int
	WithContacts bool
}

type AmoClient struct {
	http    *HttpClient
	token   string
	metrics *metrics.Metrics
}

func NewAmoClient(baseURL, accessToken string, timeout time.Duration, m *metrics.Metrics) *AmoClient {
	c := &AmoClient{
		http:    NewHttpClient(baseURL, timeout),
		token:   accessToken,
		metrics: m,
	}
	if accessToken != "" {
		c.http.WithHeader("Authorization", "Bearer "+accessToken)
	}
	return c
}

func (c *AmoClient) HasToken() bool {
	return c.token != ""
}

func (c *AmoClient) BaseURL() string {
	return c.http.BaseURL
}

// ListLeads pages through the lead listing until a short page or Limit leads.
func (c *AmoClient) ListLeads(ctx context.Context, q LeadQuery) ([]model.AmoLead, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = AmoMaxPageSize
	}
	pageSize := min(limit, AmoMaxPageSize)

	var leads []model.AmoLead
	for page := 1; page <= amoMaxPages && len(leads) < limit; page++ {
		var body struct {
			Embedded struct {
				Leads []model.AmoLead `json:"leads"`
			} `json:"_embedded"`
		}

		found, err := c.get(ctx, "leads", "/api/v4/leads?"+q.values(page, pageSize).Encode(), &body)
		if err != nil {
			return nil, err
		}
		if !found {
			break
		}

		leads = append(leads, body.Embedded.Leads...)
		if len(body.Embedded.Leads) < pageSize {
			break
		}
	}

	if len(leads) > limit {
		leads = leads[:limit]
	}
	return leads, nil
}

func (q LeadQuery) values(page, pageSize int) url.Values {
	v := url.Values{}
	v.Set("limit", strconv.Itoa(pageSize))
	v.Set("page", strconv.Itoa(page))
	if q.WithContacts {
		v.Set("with", "contacts")
	}
	if len(q.StatusIDs) == 0 {
		if q.PipelineID != 0 {
			v.Set("filter[pipeline_id]", strconv.FormatInt(q.PipelineID, 10))
		}
		return v
	}
	for i, status := range q.StatusIDs {
		prefix := fmt.Sprintf("filter[statuses][%d]", i)
		v.Set(prefix+"[pipeline_id]", strconv.FormatInt(q.PipelineID, 10))
		v.Set(prefix+"[status_id]", strconv.FormatInt(status, 10))
	}
	return v
}

func (c *AmoClient) GetLead(ctx context.Context, id int64) (*model.AmoLead, error) {
	var lead model.AmoLead
	found, err := c.get(ctx, "lead", "/api/v4/leads/"+strconv.FormatInt(id, 10)+"?with=contacts", &lead)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("lead %d: %w", id, ErrNotFound)
	}
	return &lead, nil
}

func (c *AmoClient) ListPipelines(ctx context.Context) ([]model.AmoPipeline, error) {
	var body struct {
		Embedded struct {
			Pipelines []model.AmoPipeline `json:"pipelines"`
		} `json:"_embedded"`
	}
	if _, err := c.get(ctx, "pipelines", "/api/v4/leads/pipelines", &body); err != nil {
		return nil, err
	}
	return body.Embedded.Pipelines, nil
}

func (c *AmoClient) GetPipeline(ctx context.Context, id int64) (*model.AmoPipeline, error) {
	var pipeline model.AmoPipeline
	found, err := c.get(ctx, "pipeline", "/api/v4/leads/pipelines/"+strconv.FormatInt(id, 10), &pipeline)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("pipeline %d: %w", id, ErrNotFound)
	}
	return &pipeline, nil
}

func (c *AmoClient) Account(ctx context.Context) (*model.AmoAccount, error) {
	var account model.AmoAccount
	if _, err := c.get(ctx, "account", "/api/v4/account", &account); err != nil {
		return nil, err
	}
	return &account, nil
}

// get decodes a 2xx body into target. found is false on 204 and 404, which
// AmoCRM uses for empty listings and missing entities.
func (c *AmoClient) get(ctx context.Context, endpoint, path string, target any) (found bool, err error) {
	if c.token == "" {
		return false, ErrNoAccessToken
	}

	start := time.Now()
	defer func() {
		c.metrics.ObserveCRMRequest(endpoint, err, time.Since(start))
	}()

	resp, err := c.http.GET(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", AmoService, endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent, resp.StatusCode == http.StatusNotFound:
		return false, nil
	case !resp.IsSuccess():
		return false, newStatusError(AmoService, resp)
	case len(strings.TrimSpace(string(resp.Body))) == 0:
		return false, nil
	}

	if err := resp.DecodeJSON(target); err != nil {
		return false, fmt.Errorf("%s %s: failed to decode response: %w", AmoService, endpoint, err)
	}
	return true, nil
}
