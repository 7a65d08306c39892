package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trialops/internal/auth"
	"trialops/internal/sla"
	pkgerrors "trialops/pkg/errors"
	"trialops/pkg/metrics"
)

// RuleSnapshotter is the slice of the rule service the item workflow needs.
type RuleSnapshotter interface {
	Snapshot(ctx context.Context) (*sla.RuleSet, error)
}

type Service interface {
	Create(ctx context.Context, req CreateActionItemRequest) (*ActionItem, error)
	Get(ctx context.Context, id string) (*ActionItem, error)
	List(ctx context.Context, filter Filter) (*ItemList, error)
	Update(ctx context.Context, id string, req UpdateActionItemRequest) (*ActionItem, error)
	Transition(ctx context.Context, id string, req TransitionRequest) (*ActionItem, error)
	Delete(ctx context.Context, id string) error
	ListUpdates(ctx context.Context, id string) ([]ItemUpdate, error)
}

type service struct {
	repo     Repository
	rules    RuleSnapshotter
	calendar *sla.Calendar
	now      func() time.Time
}

func NewService(repo Repository, ruleService RuleSnapshotter, calendar *sla.Calendar) Service {
	return &service{
		repo:     repo,
		rules:    ruleService,
		calendar: calendar,
		now:      time.Now,
	}
}

// Create resolves the applicable SLA rule and stamps both deadlines from the
// calendar before the item is persisted. A finding with no applicable rule is
// a configuration defect, not a client error.
func (s *service) Create(ctx context.Context, req CreateActionItemRequest) (*ActionItem, error) {
	category, err := sla.ParseCategory(req.Category)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}
	severity, err := sla.ParseSeverity(req.Severity)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}
	if req.Title == "" {
		return nil, pkgerrors.ErrValidation.WithDetail("message", "title is required")
	}

	ruleSet, err := s.rules.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	rule, err := ruleSet.Resolve(category, severity)
	if err != nil {
		metrics.IncRuleResolution(resolutionOutcome(err))
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrUnprocessable)
	}
	metrics.IncRuleResolution("resolved")

	createdAt := s.now()
	deadlines, err := sla.ComputeDeadlines(s.calendar, rule, createdAt)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrUnprocessable)
	}

	item := &ActionItem{
		StudyID:            req.StudyID,
		SiteID:             req.SiteID,
		FindingID:          req.FindingID,
		Title:              req.Title,
		Description:        req.Description,
		Category:           string(category),
		Severity:           string(severity),
		Status:             StatusNew,
		AssignedTo:         req.AssignedTo,
		RuleID:             rule.ID,
		ResolutionDeadline: deadlines.Resolution,
		EscalationDeadline: deadlines.Escalation,
		EscalationRole:     string(rule.EscalationRole),
		EscalationLevel:    0,
		CreatedAt:          createdAt,
	}

	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.recordUpdate(ctx, item.ID, auth.UserID(ctx), nil, nil, nil, strPointer("action item created"))
	metrics.IncItemCreated(item.Category, item.Severity)

	item.SLAStatus = item.Snapshot().Status(s.now())
	return item, nil
}

func (s *service) Get(ctx context.Context, id string) (*ActionItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	item.SLAStatus = item.Snapshot().Status(s.now())
	return item, nil
}

func (s *service) List(ctx context.Context, filter Filter) (*ItemList, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	now := s.now()
	for i := range items {
		items[i].SLAStatus = items[i].Snapshot().Status(now)
	}

	pageSize := filter.Limit
	if pageSize <= 0 {
		pageSize = 1
	}
	pages := (total + pageSize - 1) / pageSize
	if pages == 0 {
		pages = 1
	}

	return &ItemList{
		Items:    items,
		Total:    total,
		Page:     filter.Offset/pageSize + 1,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateActionItemRequest) (*ActionItem, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}

	updatedBy := auth.UserID(ctx)

	if req.Title != nil && *req.Title != item.Title {
		if *req.Title == "" {
			return nil, pkgerrors.ErrValidation.WithDetail("message", "title cannot be empty")
		}
		s.recordUpdate(ctx, id, updatedBy, strPointer("title"), strPointer(item.Title), req.Title, req.Comment)
		item.Title = *req.Title
	}
	if req.Description != nil {
		s.recordUpdate(ctx, id, updatedBy, strPointer("description"), item.Description, req.Description, req.Comment)
		item.Description = req.Description
	}
	if req.AssignedTo != nil {
		s.recordUpdate(ctx, id, updatedBy, strPointer("assigned_to"), item.AssignedTo, req.AssignedTo, req.Comment)
		if *req.AssignedTo == "" {
			item.AssignedTo = nil
		} else {
			item.AssignedTo = req.AssignedTo
		}
	}
	if req.Title == nil && req.Description == nil && req.AssignedTo == nil && req.Comment != nil {
		s.recordUpdate(ctx, id, updatedBy, nil, nil, nil, req.Comment)
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	item.SLAStatus = item.Snapshot().Status(s.now())
	return item, nil
}

// Transition applies a workflow move. done stamps resolved_at exactly once;
// reopening a done item keeps the original resolution timestamp out of the
// compliance numbers by clearing it.
func (s *service) Transition(ctx context.Context, id string, req TransitionRequest) (*ActionItem, error) {
	next, err := ParseWorkflowStatus(req.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}

	if !item.Status.CanTransitionTo(next) {
		return nil, pkgerrors.ErrValidation.WithDetail(
			"message", fmt.Sprintf("invalid status transition from %s to %s", item.Status, next),
		)
	}

	now := s.now()
	previous := item.Status
	item.Status = next

	switch next {
	case StatusDone:
		if item.ResolvedAt == nil {
			resolvedAt := now
			item.ResolvedAt = &resolvedAt
			metrics.IncItemResolved(resolutionOutcomeAt(resolvedAt, item.ResolutionDeadline))
		}
	case StatusVerified:
		verifiedAt := now
		item.VerifiedAt = &verifiedAt
	case StatusInProgress:
		if previous == StatusDone {
			item.ResolvedAt = nil
		}
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.recordUpdate(ctx, id, auth.UserID(ctx),
		strPointer("status"), strPointer(string(previous)), strPointer(string(next)), req.Comment)

	item.SLAStatus = item.Snapshot().Status(now)
	return item, nil
}

// Delete removes an item that never entered the workflow. Anything past new
// stays for the audit trail.
func (s *service) Delete(ctx context.Context, id string) error {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}

	if item.Status != StatusNew {
		return pkgerrors.ErrValidation.WithDetail("message", "only new items can be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return nil
}

func (s *service) ListUpdates(ctx context.Context, id string) ([]ItemUpdate, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, s.handleNotFoundError(err, id)
	}

	updates, err := s.repo.ListUpdates(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return updates, nil
}

// recordUpdate is best effort: a lost audit row never fails the operation.
func (s *service) recordUpdate(ctx context.Context, itemID, updatedBy string, field, oldValue, newValue, comment *string) {
	_ = s.repo.AddUpdate(ctx, &ItemUpdate{
		ActionItemID: itemID,
		UpdatedBy:    updatedBy,
		FieldChanged: field,
		OldValue:     oldValue,
		NewValue:     newValue,
		Comment:      comment,
	})
}

func (s *service) handleNotFoundError(err error, id string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not found") {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
}

func resolutionOutcome(err error) string {
	if errors.Is(err, sla.ErrAmbiguousRule) {
		return "ambiguous"
	}
	return "no_rule"
}

func resolutionOutcomeAt(resolvedAt, deadline time.Time) string {
	if resolvedAt.After(deadline) {
		return "late"
	}
	return "on_time"
}

func strPointer(s string) *string {
	return &s
}
