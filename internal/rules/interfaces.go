package rules

import (
	"context"

	"trialops/internal/sla"
)

type Service interface {
	CreateSLARule(ctx context.Context, req CreateSLARuleRequest) (*SLARule, error)
	ListSLARules(ctx context.Context) ([]SLARule, error)
	GetSLARule(ctx context.Context, id string) (*SLARule, error)
	UpdateSLARule(ctx context.Context, id string, req UpdateSLARuleRequest) (*SLARule, error)
	DeleteSLARule(ctx context.Context, id string) error
	GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error)
	GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error)

	// Snapshot builds an immutable rule set from the currently active SLA
	// rules, ready for deadline computation.
	Snapshot(ctx context.Context) (*sla.RuleSet, error)

	CreateSuppressionRule(ctx context.Context, req CreateSuppressionRuleRequest) (*SuppressionRule, error)
	ListSuppressionRules(ctx context.Context) ([]SuppressionRule, error)
	GetSuppressionRule(ctx context.Context, id string) (*SuppressionRule, error)
	UpdateSuppressionRule(ctx context.Context, id string, req UpdateSuppressionRuleRequest) (*SuppressionRule, error)
	DeleteSuppressionRule(ctx context.Context, id string) error
}
