package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"amokanban/internal/branches"
	"amokanban/internal/normalizer"
	webhookerrors "amokanban/internal/webhook/errors"
	"amokanban/internal/webhook/validator"
	"amokanban/pkg/client"
	apperrors "amokanban/pkg/errors"
	"amokanban/pkg/kafka"
	"amokanban/pkg/logger"
	"amokanban/pkg/metrics"
	"amokanban/pkg/model"
	"amokanban/pkg/sanitizer"
)

const (
	BookingSource    = "AmoCRM"
	ProcessedMessage = "Webhook processed!"

	ActionAdd     = "add"
	ActionUpdate  = "update"
	ActionDelete  = "delete"
	ActionStatus  = "status"
	ActionUnknown = "unknown"

	StatusProcessed = "processed"
	StatusIgnored   = "ignored"

	maxNameLength    = 200
	maxCommentLength = 2000
)

type WebhookService interface {
	// Forward turns every added lead into a kanban booking. Updates and status
	// changes are not forwarded since the kanban side only accepts creations.
	// A failing lead is counted and skipped.
	Forward(ctx context.Context, payload model.WebhookPayload, requestID string) (*ForwardResult, error)

	// Inspect reports what a lead event refers to, fetching the lead from the
	// CRM unless it was deleted.
	Inspect(ctx context.Context, payload model.WebhookPayload, requestID string) (*InspectResult, error)
}

type LeadFetcher interface {
	GetLead(ctx context.Context, id int64) (*model.AmoLead, error)
}

type BookingSink interface {
	Configured() bool
	CreateBooking(ctx context.Context, booking model.KanbanBooking, requestID string) (json.RawMessage, error)
}

type ForwardResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Processed int       `json:"processed"`
	Forwarded int       `json:"forwarded"`
	Failed    int       `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

type EventInfo struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	LeadID int64  `json:"leadId"`
}

type LeadSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	PipelineID int64  `json:"pipeline_id"`
	StatusID   int64  `json:"status_id"`
	Branch     string `json:"branch"`
}

type InspectResult struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Event     EventInfo    `json:"event"`
	Lead      *LeadSummary `json:"lead"`
	Message   string       `json:"message"`
}

type webhookService struct {
	leads      LeadFetcher
	kanban     BookingSink
	registry   *branches.Registry
	normalizer *normalizer.Normalizer
	validator  *validator.BookingValidator
	publisher  kafka.Publisher
	metrics    *metrics.Metrics
	log        *logger.Logger
	now        func() time.Time
}

func NewWebhookService(
	leads LeadFetcher,
	kanban BookingSink,
	registry *branches.Registry,
	norm *normalizer.Normalizer,
	bookingValidator *validator.BookingValidator,
	publisher kafka.Publisher,
	m *metrics.Metrics,
	log *logger.Logger,
) WebhookService {
	if publisher == nil {
		publisher = kafka.NopPublisher{}
	}
	return &webhookService{
		leads:      leads,
		kanban:     kanban,
		registry:   registry,
		normalizer: norm,
		validator:  bookingValidator,
		publisher:  publisher,
		metrics:    m,
		log:        log,
		now:        time.Now,
	}
}

func (s *webhookService) Forward(ctx context.Context, payload model.WebhookPayload, requestID string) (*ForwardResult, error) {
	leads := payload.Leads.Add
	if ignored := len(payload.Leads.Update) + len(payload.Leads.Status); ignored > 0 {
		s.log.Debug("Skipping lead changes, only additions are forwarded",
			"request_id", requestID,
			"updated", len(payload.Leads.Update),
			"status_changed", len(payload.Leads.Status),
		)
	}

	result := &ForwardResult{
		Success:   true,
		Message:   ProcessedMessage,
		Timestamp: s.now().UTC(),
	}
	if len(leads) == 0 {
		s.log.Info("Webhook carried no leads to forward", "request_id", requestID)
		return result, nil
	}

	if !s.kanban.Configured() {
		s.log.Error("Cannot forward bookings", "request_id", requestID, "error", webhookerrors.ErrKanbanNotConfigured)
		return nil, apperrors.NotConfigured("KANBAN_API_URL")
	}

	contacts := indexContacts(payload.Contacts)
	for _, lead := range leads {
		result.Processed++
		if err := s.forwardLead(ctx, lead, contacts, requestID); err != nil {
			result.Failed++
			s.log.Warn("Lead was not forwarded",
				"request_id", requestID,
				"lead_id", int64(lead.ID),
				"error", err,
			)
			continue
		}
		result.Forwarded++
	}

	s.log.Info("Webhook processed",
		"request_id", requestID,
		"processed", result.Processed,
		"forwarded", result.Forwarded,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *webhookService) forwardLead(ctx context.Context, lead model.AmoLead, contacts map[int64]model.AmoContact, requestID string) error {
	raw := lead.ToRawLead()
	if raw.Contact == nil && lead.ContactID != 0 {
		if c, ok := contacts[int64(lead.ContactID)]; ok {
			raw.Contact = c.ToContact()
		}
	}

	vocab := s.normalizer.Vocabulary()
	if normalizer.LookupFirst(raw.CustomFields, vocab.DateTimeFields...) == "" {
		if field, ok := normalizer.FindDateField(raw.CustomFields); ok {
			s.log.Debug("Lead has a date-like field outside the known names",
				"lead_id", raw.ID,
				"field", field.Name,
				"value", field.Value,
			)
		}
	}

	branch := s.registry.Resolve(normalizer.Lookup(raw.CustomFields, vocab.Branch))
	booking := s.normalizer.Normalize(raw, branch)
	s.metrics.AddLeadsNormalized(branch, 1)

	kb := s.toKanbanBooking(raw, booking, branch)
	if err := s.validator.Validate(&kb); err != nil {
		s.metrics.IncBookingForwarded(branch, metrics.OutcomeInvalid)
		s.publish(ctx, kafka.EventBookingFailed, raw.ID, failedEvent{Booking: kb, Error: err.Error()}, requestID)
		return fmt.Errorf("%w: %v", webhookerrors.ErrInvalidBooking, err)
	}

	response, err := s.kanban.CreateBooking(ctx, kb, requestID)
	if err != nil {
		s.metrics.IncBookingForwarded(branch, metrics.OutcomeError)
		s.publish(ctx, kafka.EventBookingFailed, raw.ID, failedEvent{Booking: kb, Error: err.Error()}, requestID)
		return fmt.Errorf("%w: %w", webhookerrors.ErrForwardFailed, err)
	}

	s.metrics.IncBookingForwarded(branch, metrics.OutcomeSuccess)
	s.publish(ctx, kafka.EventBookingForwarded, raw.ID, forwardedEvent{Booking: kb, Response: response}, requestID)
	s.log.Info("Booking forwarded",
		"request_id", requestID,
		"lead_id", raw.ID,
		"branch", branch,
		"table_id", kb.TableID,
		"time", kb.Time,
	)
	return nil
}

func (s *webhookService) toKanbanBooking(raw model.RawLead, b model.Booking, branch string) model.KanbanBooking {
	name := b.Name
	if normalizer.Lookup(raw.CustomFields, s.normalizer.Vocabulary().BookingName) == "" && raw.ContactName() != "" {
		name = raw.ContactName()
	}

	return model.KanbanBooking{
		Name:        sanitizer.Truncate(sanitizer.TrimAndNormalize(name), maxNameLength),
		Time:        b.Time,
		BookingDate: b.BookingDate,
		Guests:      b.Guests,
		Phone:       sanitizer.NormalizePhone(b.Phone, sanitizer.DefaultRegion),
		Source:      BookingSource,
		TableID:     b.TableID,
		Branch:      branch,
		IsActive:    false,
		Comment:     sanitizer.Truncate(b.Comment, maxCommentLength),
		HasVR:       b.HasVR,
		HasShisha:   b.HasShisha,
		AmoLeadID:   b.LeadID,
	}
}

type forwardedEvent struct {
	Booking  model.KanbanBooking `json:"booking"`
	Response json.RawMessage     `json:"response,omitempty"`
}

type failedEvent struct {
	Booking model.KanbanBooking `json:"booking"`
	Error   string              `json:"error"`
}

func (s *webhookService) publish(ctx context.Context, eventType string, leadID int64, payload any, requestID string) {
	msg := kafka.NewLeadEvent(eventType, leadID, payload, requestID)
	err := s.publisher.Publish(ctx, msg)
	s.metrics.IncEventPublished(eventType, err)
	if err != nil {
		s.log.Warn("Failed to publish event",
			"request_id", requestID,
			"event_type", eventType,
			"lead_id", leadID,
			"error", err,
		)
	}
}

func indexContacts(c model.WebhookContacts) map[int64]model.AmoContact {
	index := make(map[int64]model.AmoContact, len(c.Add)+len(c.Update))
	for _, group := range [][]model.AmoContact{c.Add, c.Update} {
		for _, contact := range group {
			if _, seen := index[int64(contact.ID)]; !seen {
				index[int64(contact.ID)] = contact
			}
		}
	}
	return index
}

// leadAction picks the first non-empty lead section.
func leadAction(leads model.WebhookLeads) (string, int64) {
	sections := []struct {
		action string
		leads  []model.AmoLead
	}{
		{ActionAdd, leads.Add},
		{ActionUpdate, leads.Update},
		{ActionDelete, leads.Delete},
		{ActionStatus, leads.Status},
	}
	for _, section := range sections {
		if len(section.leads) > 0 {
			return section.action, int64(section.leads[0].ID)
		}
	}
	return ActionUnknown, 0
}

func (s *webhookService) Inspect(ctx context.Context, payload model.WebhookPayload, requestID string) (*InspectResult, error) {
	action, leadID := leadAction(payload.Leads)
	if leadID == 0 {
		s.log.Warn("Webhook without lead id", "request_id", requestID)
		return &InspectResult{
			Status:    StatusIgnored,
			Timestamp: s.now().UTC(),
			Message:   "webhook carries no lead id",
		}, nil
	}

	eventType := payload.EventType
	if eventType == "" {
		eventType = ActionUnknown
	}

	result := &InspectResult{
		Status:    StatusProcessed,
		Timestamp: s.now().UTC(),
		Event: EventInfo{
			Type:   eventType,
			Action: action,
			LeadID: leadID,
		},
		Message: fmt.Sprintf("event %s for lead %d processed", action, leadID),
	}

	if action != ActionDelete {
		lead, err := s.leads.GetLead(ctx, leadID)
		switch {
		case err == nil:
			pipelineID := int64(lead.PipelineID)
			result.Lead = &LeadSummary{
				ID:         int64(lead.ID),
				Name:       lead.Name,
				PipelineID: pipelineID,
				StatusID:   int64(lead.StatusID),
				Branch:     s.registry.NameForPipeline(pipelineID),
			}
		case errors.Is(err, client.ErrNotFound):
			s.log.Warn("Lead from webhook not found in CRM", "request_id", requestID, "lead_id", leadID)
		default:
			s.log.Error("Failed to fetch lead from CRM", "request_id", requestID, "lead_id", leadID, "error", err)
		}
	}

	s.publish(ctx, kafka.EventLeadReceived, leadID, result, requestID)
	s.log.Info("Lead event inspected",
		"request_id", requestID,
		"action", action,
		"lead_id", leadID,
		"lead_found", result.Lead != nil,
	)
	return result, nil
}
