package intake

import (
	"context"
	"time"

	"trialops/internal/broker"
	"trialops/internal/items"
	"trialops/internal/logger"
	"trialops/pkg/models"
)

// Handler turns admitted findings into action items. It is wired as the
// broker consumer callback for the findings topic.
type Handler struct {
	service *Service
	items   items.Service
	logger  logger.Logger

	producer        broker.Producer
	itemEventsTopic string
}

type HandlerOption func(*Handler)

// WithItemEvents publishes an ItemCreatedEvent for every action item opened
// from a finding.
func WithItemEvents(producer broker.Producer, topic string) HandlerOption {
	return func(h *Handler) {
		h.producer = producer
		h.itemEventsTopic = topic
	}
}

func NewHandler(service *Service, itemService items.Service, log logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		items:   itemService,
		logger:  log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleFinding validates, evaluates suppression and creates the action item.
// Schema-invalid findings are returned as errors so the broker routes them to
// the DLQ after retries are exhausted.
func (h *Handler) HandleFinding(ctx context.Context, finding models.FindingEnvelope) error {
	if err := models.ValidateFindingEnvelope(&finding); err != nil {
		h.logger.WarnwCtx(ctx, "Rejecting malformed finding",
			"finding_id", finding.ID,
			"source", finding.Source,
			"error", err,
		)
		return err
	}

	decision, checkedRules, err := h.service.Evaluate(ctx, &finding)
	if err != nil {
		return err
	}

	finding.Metadata.Suppression = &models.SuppressionInfo{
		CheckedAt: time.Now(),
		RuleIDs:   checkedRules,
	}

	if decision == DecisionSuppress {
		h.logger.InfowCtx(ctx, "Finding suppressed",
			"finding_id", finding.ID,
			"study_id", finding.StudyID,
			"site_id", finding.SiteID,
			"checked_rules", len(checkedRules),
		)
		return nil
	}

	item, err := h.items.Create(ctx, buildCreateRequest(&finding))
	if err != nil {
		return err
	}

	h.logger.InfowCtx(ctx, "Action item created from finding",
		"finding_id", finding.ID,
		"action_item_id", item.ID,
		"category", item.Category,
		"severity", item.Severity,
		"resolution_deadline", item.ResolutionDeadline,
	)

	h.publishItemCreated(ctx, &finding, item)
	return nil
}

// publishItemCreated is best effort. The item is already persisted, so a
// publish failure is logged and the finding is still acked.
func (h *Handler) publishItemCreated(ctx context.Context, finding *models.FindingEnvelope, item *items.ActionItem) {
	if h.producer == nil || h.itemEventsTopic == "" {
		return
	}

	event := models.ItemCreatedEvent{
		ItemID:             item.ID,
		FindingID:          finding.ID,
		StudyID:            item.StudyID,
		SiteID:             item.SiteID,
		Category:           item.Category,
		Severity:           item.Severity,
		Title:              item.Title,
		ResolutionDeadline: item.ResolutionDeadline,
		EscalationDeadline: item.EscalationDeadline,
		CreatedAt:          item.CreatedAt,
	}
	if err := h.producer.Publish(ctx, h.itemEventsTopic, item.ID, event); err != nil {
		h.logger.WarnwCtx(ctx, "Failed to publish item created event",
			"action_item_id", item.ID,
			"topic", h.itemEventsTopic,
			"error", err,
		)
	}
}

// HandleConfigEvent refreshes the suppression rule cache when the ops service
// announces a rule change, so edits take effect before the periodic reload.
func (h *Handler) HandleConfigEvent(ctx context.Context, event models.ConfigUpdateEvent) error {
	if event.EventType != models.EventTypeSuppressionRuleUpdated {
		return nil
	}

	h.logger.InfowCtx(ctx, "Received suppression rule update",
		"rule_id", event.RuleID,
		"action", event.Action,
	)

	if err := h.service.ReloadRules(ctx, true); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload rules after config update",
			"error", err,
		)
		return err
	}
	return nil
}

func buildCreateRequest(finding *models.FindingEnvelope) items.CreateActionItemRequest {
	req := items.CreateActionItemRequest{
		StudyID:   finding.StudyID,
		SiteID:    finding.SiteID,
		FindingID: &finding.ID,
		Title:     finding.Title,
		Category:  finding.Category,
		Severity:  finding.Severity,
	}

	if req.Title == "" {
		req.Title = finding.Source + " finding " + finding.ID
	}
	if description, ok := finding.GetPayloadField("description"); ok {
		if text, ok := description.(string); ok && text != "" {
			req.Description = &text
		}
	}
	if assignee, ok := finding.GetPayloadField("assigned_to"); ok {
		if id, ok := assignee.(string); ok && id != "" {
			req.AssignedTo = &id
		}
	}

	return req
}
