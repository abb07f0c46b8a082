package service

import (
	"context"
	"runtime"
	"time"

	"amokanban/internal/branches"
	"amokanban/internal/normalizer"
	"amokanban/pkg/cache"
	"amokanban/pkg/client"
	"amokanban/pkg/config"
	apperrors "amokanban/pkg/errors"
	"amokanban/pkg/logger"
	"amokanban/pkg/metrics"
	"amokanban/pkg/model"
)

// Listings above this size are normalized in parallel.
const parallelThreshold = 64

type DealsService interface {
	List(ctx context.Context, q Query) (*Result, error)
}

type LeadLister interface {
	HasToken() bool
	ListLeads(ctx context.Context, q client.LeadQuery) ([]model.AmoLead, error)
}

type Query struct {
	Branch string
	// StatusID overrides the branch's "today" status when HasStatus is set.
	StatusID  int64
	HasStatus bool
	Date      model.Date
	Today     bool
}

type Result struct {
	Success       bool            `json:"success"`
	Deals         []model.Booking `json:"deals"`
	Timestamp     time.Time       `json:"timestamp"`
	Today         model.Date      `json:"today"`
	TotalLeads    int             `json:"totalLeads"`
	FilteredDeals int             `json:"filteredDeals"`
	Branch        string          `json:"branch"`
	PipelineID    int64           `json:"pipelineId"`
	Demo          bool            `json:"demo,omitempty"`
	Error         string          `json:"error,omitempty"`
}

type dealsService struct {
	amo          LeadLister
	cache        cache.LeadCache
	registry     *branches.Registry
	normalizer   *normalizer.Normalizer
	metrics      *metrics.Metrics
	log          *logger.Logger
	demoFallback bool
	now          func() time.Time
}

type Option func(*dealsService)

// WithCache serves lead listings through c. A nil cache is ignored.
func WithCache(c cache.LeadCache) Option {
	return func(s *dealsService) {
		s.cache = c
	}
}

// WithDemoFallback answers CRM failures with demo deals instead of an error.
func WithDemoFallback(enabled bool) Option {
	return func(s *dealsService) {
		s.demoFallback = enabled
	}
}

func NewDealsService(
	amo LeadLister,
	registry *branches.Registry,
	norm *normalizer.Normalizer,
	m *metrics.Metrics,
	log *logger.Logger,
	opts ...Option,
) DealsService {
	s := &dealsService{
		amo:        amo,
		registry:   registry,
		normalizer: norm,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *dealsService) List(ctx context.Context, q Query) (*Result, error) {
	branch, known := s.registry.Lookup(q.Branch)
	if !known && q.Branch != "" {
		s.log.Warn("Unknown branch requested, using default", "branch", q.Branch, "default", branch.Name)
	}

	now := s.now()
	today := normalizer.Today(s.normalizer.Location(), now)
	result := &Result{
		Deals:      []model.Booking{},
		Timestamp:  now.UTC(),
		Today:      today,
		Branch:     branch.Name,
		PipelineID: branch.PipelineID,
	}

	if !s.amo.HasToken() {
		s.log.Error("AmoCRM access token is not configured")
		return result, apperrors.NotConfigured("AMO_ACCESS_TOKEN")
	}

	statusID := s.registry.StatusID(branch.Name, config.StatusToday)
	if q.HasStatus {
		statusID = q.StatusID
	}
	var statuses []int64
	if statusID != 0 {
		statuses = []int64{statusID}
	}

	leads, err := s.fetchLeads(ctx, branch.PipelineID, statuses)
	if err != nil {
		if s.demoFallback {
			s.log.Warn("AmoCRM unavailable, serving demo deals", "branch", branch.Name, "error", err)
			result.Deals = DemoDeals(branch.Name, today, s.normalizer)
			result.FilteredDeals = len(result.Deals)
			result.Demo = true
			result.Error = err.Error()
			return result, nil
		}
		s.log.Error("Failed to fetch leads", "branch", branch.Name, "pipeline_id", branch.PipelineID, "error", err)
		return nil, apperrors.BadGateway(client.AmoService, err)
	}

	raws := make([]model.RawLead, len(leads))
	for i, lead := range leads {
		raws[i] = lead.ToRawLead()
	}

	var bookings []model.Booking
	if len(raws) > parallelThreshold {
		bookings = s.normalizer.NormalizeParallel(raws, branch.Name, runtime.NumCPU())
	} else {
		bookings = s.normalizer.NormalizeAll(raws, branch.Name)
	}
	s.metrics.AddLeadsNormalized(branch.Name, len(bookings))

	var preds []normalizer.Predicate
	if statusID != 0 {
		preds = append(preds, normalizer.ByStatus(statusID))
	}
	if !q.Date.IsZero() {
		preds = append(preds, normalizer.ByDate(q.Date))
	}
	if q.Today {
		preds = append(preds, normalizer.ByDate(today))
	}

	result.Success = true
	result.Deals = normalizer.Apply(bookings, preds...)
	result.TotalLeads = len(leads)
	result.FilteredDeals = len(result.Deals)

	s.log.Info("Deals listed",
		"branch", branch.Name,
		"pipeline_id", branch.PipelineID,
		"status_id", statusID,
		"total_leads", result.TotalLeads,
		"filtered_deals", result.FilteredDeals,
	)
	return result, nil
}

func (s *dealsService) fetchLeads(ctx context.Context, pipelineID int64, statuses []int64) ([]model.AmoLead, error) {
	key := cache.LeadsKey(pipelineID, statuses)

	if s.cache != nil {
		leads, ok, err := s.cache.GetLeads(ctx, key)
		switch {
		case err != nil:
			s.metrics.IncCacheLookup(metrics.CacheError)
			s.log.Warn("Lead cache read failed", "key", key, "error", err)
		case ok:
			s.metrics.IncCacheLookup(metrics.CacheHit)
			return leads, nil
		default:
			s.metrics.IncCacheLookup(metrics.CacheMiss)
		}
	}

	leads, err := s.amo.ListLeads(ctx, client.LeadQuery{
		PipelineID:   pipelineID,
		StatusIDs:    statuses,
		Limit:        config.DefaultLeadsLimit,
		WithContacts: true,
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetLeads(ctx, key, leads); err != nil {
			s.log.Warn("Lead cache write failed", "key", key, "error", err)
		}
	}
	return leads, nil
}
