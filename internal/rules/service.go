package rules

import (
	"context"
	"encoding/json"
	"strings"

	"trialops/internal/auth"
	"trialops/internal/constants"
	"trialops/internal/sla"
	pkgerrors "trialops/pkg/errors"
	"trialops/pkg/metrics"
	"trialops/pkg/models"
)

type service struct {
	repo                Repository
	suppressionRepo     SuppressionRepository
	versioningRepo      VersioningRepository
	configEventProducer *ConfigEventProducer
	auditEnabled        bool
}

type ServiceOption func(*service)

func WithVersioning(versioningRepo VersioningRepository) ServiceOption {
	return func(s *service) {
		s.versioningRepo = versioningRepo
		s.auditEnabled = true
	}
}

func WithSuppression(suppressionRepo SuppressionRepository) ServiceOption {
	return func(s *service) {
		s.suppressionRepo = suppressionRepo
	}
}

func WithConfigEvents(configEventProducer *ConfigEventProducer) ServiceOption {
	return func(s *service) {
		s.configEventProducer = configEventProducer
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	s := &service{
		repo:         repo,
		auditEnabled: false,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.versioningRepo != nil {
		s.auditEnabled = true
	}

	return s
}

func (s *service) CreateSLARule(ctx context.Context, req CreateSLARuleRequest) (*SLARule, error) {
	if err := ValidateSLARule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule := &SLARule{
		Category:        req.Category,
		Severity:        req.Severity,
		ResolutionHours: req.ResolutionHours,
		EscalationHours: req.EscalationHours,
		EscalationRole:  req.EscalationRole,
		Active:          getActiveValue(req.Active),
	}

	if err := s.repo.CreateSLARule(ctx, rule); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "create", nil)
	s.publishSLAEvent(ctx, models.ActionCreate, rule.ID)

	return s.copySLARule(rule), nil
}

func (s *service) ListSLARules(ctx context.Context) ([]SLARule, error) {
	rules, err := s.repo.ListSLARules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetSLARule(ctx context.Context, id string) (*SLARule, error) {
	rule, err := s.repo.GetSLARule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return s.copySLARule(rule), nil
}

func (s *service) UpdateSLARule(ctx context.Context, id string, req UpdateSLARuleRequest) (*SLARule, error) {
	if err := ValidateUpdateSLARule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	rule, err := s.repo.GetSLARule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)
	s.updateSLARuleFields(rule, req)

	if err := validateUpdatedRule(rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	if err := s.repo.UpdateSLARule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.createVersionAndAudit(ctx, rule, "update", oldValue)
	s.publishSLAEvent(ctx, models.ActionUpdate, rule.ID)

	return s.copySLARule(rule), nil
}

func (s *service) DeleteSLARule(ctx context.Context, id string) error {
	rule, err := s.repo.GetSLARule(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	oldValue, _ := s.ruleToMap(rule)

	if err := s.repo.DeleteSLARule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	if s.auditEnabled && s.versioningRepo != nil {
		auditLog := s.buildAuditLog(id, "sla", "delete", oldValue, nil, auth.UserID(ctx))
		_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
	}

	s.publishSLAEvent(ctx, models.ActionDelete, id)
	return nil
}

func (s *service) GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "versioning not enabled")
	}
	versions, err := s.versioningRepo.GetVersions(ctx, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return versions, nil
}

func (s *service) GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error) {
	if s.versioningRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "audit logging not enabled")
	}
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	logs, err := s.versioningRepo.GetAuditLogs(ctx, ruleID, ruleType, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return logs, nil
}

func (s *service) Snapshot(ctx context.Context) (*sla.RuleSet, error) {
	stored, err := s.repo.ListActiveSLARules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	engineRules := make([]sla.Rule, 0, len(stored))
	for _, r := range stored {
		engineRules = append(engineRules, toEngineRule(r))
	}

	set, err := sla.NewRuleSet(engineRules)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrUnprocessable)
	}

	metrics.SetActiveSLARules(len(engineRules))
	return set, nil
}

func toEngineRule(r SLARule) sla.Rule {
	rule := sla.Rule{
		ID:              r.ID,
		Severity:        sla.Severity(r.Severity),
		ResolutionHours: r.ResolutionHours,
		EscalationHours: r.EscalationHours,
		EscalationRole:  sla.Role(r.EscalationRole),
		Active:          r.Active,
	}
	if r.Category != nil {
		category := sla.Category(*r.Category)
		rule.Category = &category
	}
	return rule
}

func (s *service) CreateSuppressionRule(ctx context.Context, req CreateSuppressionRuleRequest) (*SuppressionRule, error) {
	if err := ValidateSuppressionRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	if s.suppressionRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "suppression repository not configured")
	}

	rule := &SuppressionRule{
		Name:       req.Name,
		Expression: req.Expression,
		Priority:   req.Priority,
		Enabled:    getActiveValue(req.Enabled),
	}

	if err := s.suppressionRepo.CreateSuppressionRule(ctx, rule); err != nil {
		if pkgerrors.IsConflict(err) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishSuppressionEvent(ctx, models.ActionCreate, rule.ID)
	return rule, nil
}

func (s *service) ListSuppressionRules(ctx context.Context) ([]SuppressionRule, error) {
	if s.suppressionRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "suppression repository not configured")
	}

	rules, err := s.suppressionRepo.ListSuppressionRules(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	return rules, nil
}

func (s *service) GetSuppressionRule(ctx context.Context, id string) (*SuppressionRule, error) {
	if s.suppressionRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "suppression repository not configured")
	}

	rule, err := s.suppressionRepo.GetSuppressionRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}
	return rule, nil
}

func (s *service) UpdateSuppressionRule(ctx context.Context, id string, req UpdateSuppressionRuleRequest) (*SuppressionRule, error) {
	if err := ValidateUpdateSuppressionRule(req); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrValidation)
	}

	if s.suppressionRepo == nil {
		return nil, pkgerrors.ErrInternal.WithDetail("message", "suppression repository not configured")
	}

	rule, err := s.suppressionRepo.GetSuppressionRule(ctx, id)
	if err != nil {
		return nil, s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return nil, pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	if req.Name != nil {
		rule.Name = *req.Name
	}
	if req.Expression != nil {
		rule.Expression = *req.Expression
	}
	if req.Priority != nil {
		rule.Priority = *req.Priority
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := s.suppressionRepo.UpdateSuppressionRule(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishSuppressionEvent(ctx, models.ActionUpdate, rule.ID)
	return rule, nil
}

func (s *service) DeleteSuppressionRule(ctx context.Context, id string) error {
	if s.suppressionRepo == nil {
		return pkgerrors.ErrInternal.WithDetail("message", "suppression repository not configured")
	}

	rule, err := s.suppressionRepo.GetSuppressionRule(ctx, id)
	if err != nil {
		return s.handleNotFoundError(err, id)
	}
	if rule == nil {
		return pkgerrors.ErrNotFound.WithDetail("id", id)
	}

	if err := s.suppressionRepo.DeleteSuppressionRule(ctx, id); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}

	s.publishSuppressionEvent(ctx, models.ActionDelete, id)
	return nil
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

func (s *service) createVersionAndAudit(ctx context.Context, rule *SLARule, action string, oldValue map[string]interface{}) {
	if !s.auditEnabled || s.versioningRepo == nil {
		return
	}

	ruleJSON, err := json.Marshal(rule)
	if err != nil {
		return
	}

	version := s.buildVersion(ctx, rule, string(ruleJSON))
	if err := s.versioningRepo.CreateVersion(ctx, version); err != nil {
		return
	}

	newValue, err := s.ruleToMap(rule)
	if err != nil {
		return
	}

	auditLog := s.buildAuditLog(rule.ID, "sla", action, oldValue, newValue, auth.UserID(ctx))
	_ = s.versioningRepo.CreateAuditLog(ctx, auditLog)
}

func (s *service) buildVersion(ctx context.Context, rule *SLARule, ruleJSON string) *RuleVersion {
	version := 1
	if s.versioningRepo != nil {
		if nextVersion, err := s.versioningRepo.GetNextVersion(ctx, rule.ID); err == nil {
			version = nextVersion
		}
	}

	return &RuleVersion{
		RuleID:    rule.ID,
		RuleType:  "sla",
		RuleData:  ruleJSON,
		Version:   version,
		ChangedBy: auth.UserID(ctx),
	}
}

func (s *service) buildAuditLog(ruleID, ruleType, action string, oldValue, newValue map[string]interface{}, changedBy string) *AuditLog {
	return &AuditLog{
		RuleID:    &ruleID,
		RuleType:  ruleType,
		Action:    action,
		OldValue:  oldValue,
		NewValue:  newValue,
		ChangedBy: changedBy,
	}
}

func (s *service) ruleToMap(rule *SLARule) (map[string]interface{}, error) {
	ruleData, err := json.Marshal(rule)
	if err != nil {
		return nil, err
	}
	var result map[string]interface{}
	if err := json.Unmarshal(ruleData, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) publishSLAEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishSLARuleEvent(ctx, action, ruleID, auth.UserID(ctx))
	}
}

func (s *service) publishSuppressionEvent(ctx context.Context, action, ruleID string) {
	if s.configEventProducer != nil {
		_ = s.configEventProducer.PublishSuppressionRuleEvent(ctx, action, ruleID, auth.UserID(ctx))
	}
}

func (s *service) updateSLARuleFields(rule *SLARule, req UpdateSLARuleRequest) {
	if req.Category != nil {
		if *req.Category == "" {
			rule.Category = nil
		} else {
			rule.Category = req.Category
		}
	}
	if req.Severity != nil {
		rule.Severity = *req.Severity
	}
	if req.ResolutionHours != nil {
		rule.ResolutionHours = *req.ResolutionHours
	}
	if req.EscalationHours != nil {
		rule.EscalationHours = *req.EscalationHours
	}
	if req.EscalationRole != nil {
		rule.EscalationRole = *req.EscalationRole
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}
}

func (s *service) copySLARule(rule *SLARule) *SLARule {
	out := *rule
	if rule.Category != nil {
		category := *rule.Category
		out.Category = &category
	}
	return &out
}

func getActiveValue(v *bool) bool {
	if v == nil {
		return true
	}
	return *v
}

