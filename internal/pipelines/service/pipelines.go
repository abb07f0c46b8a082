package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"amokanban/internal/branches"
	"amokanban/pkg/client"
	"amokanban/pkg/config"
	apperrors "amokanban/pkg/errors"
	"amokanban/pkg/logger"
	"amokanban/pkg/model"
)

const (
	UnknownStatusName = "Неизвестный статус"

	checkSampleSize = 3
	debugSampleSize = 5
)

var (
	// Status names containing one of these are the "today" column.
	todayKeywords = []string{"сегодня", "today"}
	// Broader match used to list candidate columns when the today status is
	// being hunted down.
	todayCandidateKeywords = []string{"сегодня", "today", "сейчас", "now"}
)

type PipelinesService interface {
	List(ctx context.Context) (*ListResult, error)
	CheckStatuses(ctx context.Context, branch string) (*StatusReport, error)
	Debug(ctx context.Context, branch string) (*DebugReport, error)
	TodayStatus(ctx context.Context, branch string) (*TodayReport, error)
}

type PipelineReader interface {
	HasToken() bool
	ListPipelines(ctx context.Context) ([]model.AmoPipeline, error)
	GetPipeline(ctx context.Context, id int64) (*model.AmoPipeline, error)
	ListLeads(ctx context.Context, q client.LeadQuery) ([]model.AmoLead, error)
}

type ListResult struct {
	Success   bool                `json:"success"`
	Pipelines []model.AmoPipeline `json:"pipelines"`
	Timestamp time.Time           `json:"timestamp"`
}

type PipelineRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type StatusInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Sort  int    `json:"sort"`
}

type StatusCount struct {
	StatusID    int64    `json:"statusId"`
	StatusName  string   `json:"statusName"`
	Count       int      `json:"count"`
	SampleNames []string `json:"sampleNames"`
}

type LeadsAnalysis struct {
	TotalLeads   int           `json:"totalLeads"`
	StatusCounts []StatusCount `json:"statusCounts"`
}

type StatusReport struct {
	Success       bool          `json:"success"`
	Branch        string        `json:"branch"`
	Pipeline      PipelineRef   `json:"pipeline"`
	Statuses      []StatusInfo  `json:"statuses"`
	LeadsAnalysis LeadsAnalysis `json:"leadsAnalysis"`
	Timestamp     time.Time     `json:"timestamp"`
}

type DebugStatus struct {
	StatusInfo
	IsToday bool `json:"isToday"`
}

type DebugStatusCount struct {
	StatusCount
	IsToday bool `json:"isToday"`
}

type LeadSample struct {
	ID                 int64                  `json:"id"`
	Name               string                 `json:"name"`
	StatusID           int64                  `json:"status_id"`
	PipelineID         int64                  `json:"pipeline_id"`
	CreatedAt          int64                  `json:"created_at"`
	UpdatedAt          int64                  `json:"updated_at"`
	CustomFieldsValues []model.AmoCustomField `json:"custom_fields_values"`
}

type StatusSample struct {
	StatusID   int64      `json:"statusId"`
	StatusName string     `json:"statusName"`
	SampleLead LeadSample `json:"sampleLead"`
}

type DebugAnalysis struct {
	TotalLeads   int                `json:"totalLeads"`
	StatusCounts []DebugStatusCount `json:"statusCounts"`
}

type DebugReport struct {
	Success  bool          `json:"success"`
	Branch   string        `json:"branch"`
	Pipeline PipelineRef   `json:"pipeline"`
	Statuses []DebugStatus `json:"statuses"`
	// TodayStatus is the first status whose name looks like "today".
	TodayStatus *PipelineRef `json:"todayStatus"`
	// ConfiguredTodayStatus is the id the branch table uses for /api/amo-deals.
	ConfiguredTodayStatus int64          `json:"configuredTodayStatus"`
	LeadsAnalysis         DebugAnalysis  `json:"leadsAnalysis"`
	SampleLeads           []StatusSample `json:"sampleLeads"`
	Timestamp             time.Time      `json:"timestamp"`
}

type StatusRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type TodayStatusCount struct {
	StatusID   int64  `json:"statusId"`
	StatusName string `json:"statusName"`
	Count      int    `json:"count"`
	IsToday    bool   `json:"isToday"`
}

type TodayLead struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	StatusID   int64  `json:"status_id"`
	StatusName string `json:"status_name"`
}

type TodayAnalysis struct {
	TotalLeads   int                `json:"totalLeads"`
	StatusCounts []TodayStatusCount `json:"statusCounts"`
	TodayLeads   []TodayLead        `json:"todayLeads"`
}

// TodayReport explains which leads /api/amo-deals would treat as today's.
type TodayReport struct {
	Success       bool          `json:"success"`
	Branch        string        `json:"branch"`
	Pipeline      PipelineRef   `json:"pipeline"`
	Statuses      []DebugStatus `json:"statuses"`
	TodayStatuses []StatusRef   `json:"todayStatuses"`
	// ConfiguredTodayStatus is the id the branch table uses for /api/amo-deals.
	ConfiguredTodayStatus int64 `json:"configuredTodayStatus"`
	// ConfiguredStatus is that status as found in the pipeline, nil when the
	// pipeline has no such status.
	ConfiguredStatus *StatusRef    `json:"configuredStatus"`
	LeadsAnalysis    TodayAnalysis `json:"leadsAnalysis"`
	Recommendations       []string      `json:"recommendations"`
	Timestamp             time.Time     `json:"timestamp"`
}

type pipelinesService struct {
	amo      PipelineReader
	registry *branches.Registry
	log      *logger.Logger
	now      func() time.Time
}

func NewPipelinesService(amo PipelineReader, registry *branches.Registry, log *logger.Logger) PipelinesService {
	return &pipelinesService{
		amo:      amo,
		registry: registry,
		log:      log,
		now:      time.Now,
	}
}

func (s *pipelinesService) List(ctx context.Context) (*ListResult, error) {
	if !s.amo.HasToken() {
		return nil, apperrors.NotConfigured("AMO_ACCESS_TOKEN")
	}

	pipelines, err := s.amo.ListPipelines(ctx)
	if err != nil {
		s.log.Error("Failed to list pipelines", "error", err)
		return nil, apperrors.BadGateway(client.AmoService, err)
	}
	if pipelines == nil {
		pipelines = []model.AmoPipeline{}
	}

	s.log.Info("Pipelines listed", "count", len(pipelines))
	return &ListResult{
		Success:   true,
		Pipelines: pipelines,
		Timestamp: s.now().UTC(),
	}, nil
}

// CheckStatuses counts the pipeline's leads per status. Unknown branches fall
// back to the default one.
func (s *pipelinesService) CheckStatuses(ctx context.Context, branch string) (*StatusReport, error) {
	cfg, _ := s.registry.Lookup(branch)

	pipeline, leads, err := s.load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	names := statusNames(pipeline)
	groups := groupByStatus(leads)

	report := &StatusReport{
		Success:  true,
		Branch:   cfg.Name,
		Pipeline: PipelineRef{ID: int64(pipeline.ID), Name: pipeline.Name},
		Statuses: make([]StatusInfo, 0, len(pipeline.Embedded.Statuses)),
		LeadsAnalysis: LeadsAnalysis{
			TotalLeads:   len(leads),
			StatusCounts: make([]StatusCount, 0, len(groups)),
		},
		Timestamp: s.now().UTC(),
	}
	for _, st := range pipeline.Embedded.Statuses {
		report.Statuses = append(report.Statuses, toStatusInfo(st))
	}
	for _, g := range groups {
		report.LeadsAnalysis.StatusCounts = append(report.LeadsAnalysis.StatusCounts,
			g.count(names, checkSampleSize, true))
	}
	return report, nil
}

// Debug is CheckStatuses with more samples and "today" detection. The branch
// must be configured.
func (s *pipelinesService) Debug(ctx context.Context, branch string) (*DebugReport, error) {
	cfg, ok := s.registry.ByName(branch)
	if !ok {
		return nil, apperrors.InvalidInput("unknown branch: " + strings.TrimSpace(branch))
	}

	pipeline, leads, err := s.load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	names := statusNames(pipeline)
	groups := groupByStatus(leads)

	report := &DebugReport{
		Success:               true,
		Branch:                cfg.Name,
		Pipeline:              PipelineRef{ID: int64(pipeline.ID), Name: pipeline.Name},
		Statuses:              make([]DebugStatus, 0, len(pipeline.Embedded.Statuses)),
		ConfiguredTodayStatus: s.registry.StatusID(cfg.Name, config.StatusToday),
		LeadsAnalysis: DebugAnalysis{
			TotalLeads:   len(leads),
			StatusCounts: make([]DebugStatusCount, 0, len(groups)),
		},
		SampleLeads: make([]StatusSample, 0, len(groups)),
		Timestamp:   s.now().UTC(),
	}

	for _, st := range pipeline.Embedded.Statuses {
		today := isTodayStatus(st.Name)
		report.Statuses = append(report.Statuses, DebugStatus{StatusInfo: toStatusInfo(st), IsToday: today})
		if today && report.TodayStatus == nil {
			report.TodayStatus = &PipelineRef{ID: int64(st.ID), Name: st.Name}
		}
	}

	for _, g := range groups {
		count := g.count(names, debugSampleSize, false)
		report.LeadsAnalysis.StatusCounts = append(report.LeadsAnalysis.StatusCounts, DebugStatusCount{
			StatusCount: count,
			IsToday:     isTodayStatus(names[g.statusID]),
		})

		first := g.leads[0]
		report.SampleLeads = append(report.SampleLeads, StatusSample{
			StatusID:   g.statusID,
			StatusName: count.StatusName,
			SampleLead: LeadSample{
				ID:                 int64(first.ID),
				Name:               first.Name,
				StatusID:           int64(first.StatusID),
				PipelineID:         int64(first.PipelineID),
				CreatedAt:          int64(first.CreatedAt),
				UpdatedAt:          int64(first.UpdatedAt),
				CustomFieldsValues: nonNilFields(first.CustomFieldsValues),
			},
		})
	}

	s.log.Info("Pipeline debug report built",
		"branch", cfg.Name,
		"pipeline_id", cfg.PipelineID,
		"total_leads", len(leads),
		"today_status_found", report.TodayStatus != nil,
	)
	return report, nil
}

// TodayStatus lists the leads in the branch's today column, matched either
// by status name or by the configured status id. The branch must be
// configured.
func (s *pipelinesService) TodayStatus(ctx context.Context, branch string) (*TodayReport, error) {
	cfg, ok := s.registry.ByName(branch)
	if !ok {
		return nil, apperrors.InvalidInput("unknown branch: " + strings.TrimSpace(branch))
	}

	pipeline, leads, err := s.load(ctx, cfg)
	if err != nil {
		return nil, err
	}

	names := statusNames(pipeline)
	groups := groupByStatus(leads)
	configured := s.registry.StatusID(cfg.Name, config.StatusToday)

	report := &TodayReport{
		Success:               true,
		Branch:                cfg.Name,
		Pipeline:              PipelineRef{ID: int64(pipeline.ID), Name: pipeline.Name},
		Statuses:              make([]DebugStatus, 0, len(pipeline.Embedded.Statuses)),
		TodayStatuses:         []StatusRef{},
		ConfiguredTodayStatus: configured,
		LeadsAnalysis: TodayAnalysis{
			TotalLeads:   len(leads),
			StatusCounts: make([]TodayStatusCount, 0, len(groups)),
			TodayLeads:   []TodayLead{},
		},
		Timestamp: s.now().UTC(),
	}

	for _, st := range pipeline.Embedded.Statuses {
		ref := StatusRef{ID: int64(st.ID), Name: st.Name, Color: st.Color}
		report.Statuses = append(report.Statuses, DebugStatus{StatusInfo: toStatusInfo(st), IsToday: isTodayStatus(st.Name)})
		if containsAny(st.Name, todayCandidateKeywords) {
			report.TodayStatuses = append(report.TodayStatuses, ref)
		}
		if ref.ID == configured && report.ConfiguredStatus == nil {
			report.ConfiguredStatus = &ref
		}
	}

	for _, g := range groups {
		name, ok := names[g.statusID]
		if !ok {
			name = UnknownStatusName
		}
		report.LeadsAnalysis.StatusCounts = append(report.LeadsAnalysis.StatusCounts, TodayStatusCount{
			StatusID:   g.statusID,
			StatusName: name,
			Count:      len(g.leads),
			IsToday:    isTodayStatus(name),
		})
	}

	// CRM order is kept for the lead list.
	for _, lead := range leads {
		id := int64(lead.StatusID)
		name, ok := names[id]
		if !ok {
			name = UnknownStatusName
		}
		if !isTodayStatus(name) && id != configured {
			continue
		}
		report.LeadsAnalysis.TodayLeads = append(report.LeadsAnalysis.TodayLeads, TodayLead{
			ID:         int64(lead.ID),
			Name:       lead.Name,
			StatusID:   id,
			StatusName: name,
		})
	}

	report.Recommendations = todayRecommendations(len(report.LeadsAnalysis.TodayLeads), configured, report.ConfiguredStatus)

	s.log.Info("Today status report built",
		"branch", cfg.Name,
		"pipeline_id", cfg.PipelineID,
		"today_statuses", len(report.TodayStatuses),
		"today_leads", len(report.LeadsAnalysis.TodayLeads),
	)
	return report, nil
}

func todayRecommendations(found int, configured int64, status *StatusRef) []string {
	if found > 0 {
		return []string{fmt.Sprintf("Найдено %d сделок в статусе \"сегодня\"", found)}
	}

	tips := []string{
		"Сделки в статусе \"сегодня\" не найдены",
		"Возможные причины: сделки не активны, нет прав доступа или сделки в другом статусе",
	}
	if status != nil {
		return append(tips,
			fmt.Sprintf("Статус %d существует: %q, но в нем нет сделок", configured, status.Name))
	}
	return append(tips,
		fmt.Sprintf("Статус %d не найден в воронке, проверьте таблицу филиалов", configured))
}

func (s *pipelinesService) load(ctx context.Context, cfg config.BranchConfig) (*model.AmoPipeline, []model.AmoLead, error) {
	if !s.amo.HasToken() {
		return nil, nil, apperrors.NotConfigured("AMO_ACCESS_TOKEN")
	}

	pipeline, err := s.amo.GetPipeline(ctx, cfg.PipelineID)
	if err != nil {
		s.log.Error("Failed to fetch pipeline", "branch", cfg.Name, "pipeline_id", cfg.PipelineID, "error", err)
		if errors.Is(err, client.ErrNotFound) {
			return nil, nil, apperrors.NotFound("Pipeline")
		}
		return nil, nil, apperrors.BadGateway(client.AmoService, err)
	}

	leads, err := s.amo.ListLeads(ctx, client.LeadQuery{
		PipelineID: cfg.PipelineID,
		Limit:      config.DefaultLeadsLimit,
	})
	if err != nil {
		s.log.Error("Failed to fetch pipeline leads", "branch", cfg.Name, "pipeline_id", cfg.PipelineID, "error", err)
		return nil, nil, apperrors.BadGateway(client.AmoService, err)
	}
	return pipeline, leads, nil
}

// isTodayStatus reports whether a status name marks bookings for today.
func isTodayStatus(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range todayKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// containsAny reports whether name contains one of keywords, case-insensitively.
func containsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type statusGroup struct {
	statusID int64
	leads    []model.AmoLead
}

// count summarizes the group. With unique set, repeated lead names are
// sampled once.
func (g statusGroup) count(names map[int64]string, samples int, unique bool) StatusCount {
	name, ok := names[g.statusID]
	if !ok {
		name = UnknownStatusName
	}

	sample := make([]string, 0, samples)
	seen := make(map[string]bool, samples)
	for _, lead := range g.leads {
		if len(sample) == samples {
			break
		}
		if unique {
			if seen[lead.Name] {
				continue
			}
			seen[lead.Name] = true
		}
		sample = append(sample, lead.Name)
	}

	return StatusCount{
		StatusID:    g.statusID,
		StatusName:  name,
		Count:       len(g.leads),
		SampleNames: sample,
	}
}

// groupByStatus groups leads in ascending status id order, keeping the CRM
// order inside each group.
func groupByStatus(leads []model.AmoLead) []statusGroup {
	index := make(map[int64]int)
	var groups []statusGroup
	for _, lead := range leads {
		id := int64(lead.StatusID)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, statusGroup{statusID: id})
		}
		groups[i].leads = append(groups[i].leads, lead)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].statusID < groups[j].statusID
	})
	return groups
}

func statusNames(p *model.AmoPipeline) map[int64]string {
	names := make(map[int64]string, len(p.Embedded.Statuses))
	for _, st := range p.Embedded.Statuses {
		names[int64(st.ID)] = st.Name
	}
	return names
}

func toStatusInfo(st model.AmoStatus) StatusInfo {
	return StatusInfo{
		ID:    int64(st.ID),
		Name:  st.Name,
		Color: st.Color,
		Sort:  st.Sort,
	}
}

func nonNilFields(fields []model.AmoCustomField) []model.AmoCustomField {
	if fields == nil {
		return []model.AmoCustomField{}
	}
	return fields
}
