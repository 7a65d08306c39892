package rules

import (
	"fmt"

	"trialops/internal/sla"
	"trialops/pkg/cel"
)

func ValidateSLARule(req CreateSLARuleRequest) error {
	if _, err := sla.ParseSeverity(req.Severity); err != nil {
		return err
	}

	if req.Category != nil {
		if _, err := sla.ParseCategory(*req.Category); err != nil {
			return err
		}
	}

	if _, err := sla.ParseRole(req.EscalationRole); err != nil {
		return err
	}

	if req.ResolutionHours <= 0 {
		return fmt.Errorf("resolution_hours must be positive")
	}
	if req.EscalationHours <= 0 {
		return fmt.Errorf("escalation_hours must be positive")
	}
	if req.EscalationHours >= req.ResolutionHours {
		return fmt.Errorf("escalation_hours must be strictly below resolution_hours")
	}

	return nil
}

func ValidateUpdateSLARule(req UpdateSLARuleRequest) error {
	if req.Severity != nil {
		if _, err := sla.ParseSeverity(*req.Severity); err != nil {
			return err
		}
	}

	if req.Category != nil && *req.Category != "" {
		if _, err := sla.ParseCategory(*req.Category); err != nil {
			return err
		}
	}

	if req.EscalationRole != nil {
		if _, err := sla.ParseRole(*req.EscalationRole); err != nil {
			return err
		}
	}

	if req.ResolutionHours != nil && *req.ResolutionHours <= 0 {
		return fmt.Errorf("resolution_hours must be positive")
	}
	if req.EscalationHours != nil && *req.EscalationHours <= 0 {
		return fmt.Errorf("escalation_hours must be positive")
	}
	if req.ResolutionHours != nil && req.EscalationHours != nil && *req.EscalationHours >= *req.ResolutionHours {
		return fmt.Errorf("escalation_hours must be strictly below resolution_hours")
	}

	return nil
}

// validateUpdatedRule re-checks the hour invariant after partial updates
// are merged into the stored rule.
func validateUpdatedRule(rule *SLARule) error {
	if rule.EscalationHours >= rule.ResolutionHours {
		return fmt.Errorf("escalation_hours must be strictly below resolution_hours")
	}
	return nil
}

func ValidateSuppressionRule(req CreateSuppressionRuleRequest) error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.Expression == "" {
		return fmt.Errorf("expression is required")
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if err := evaluator.ValidateExpression(req.Expression); err != nil {
		return fmt.Errorf("invalid CEL expression: %w", err)
	}

	return nil
}

func ValidateUpdateSuppressionRule(req UpdateSuppressionRuleRequest) error {
	if req.Expression != nil && *req.Expression != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return fmt.Errorf("failed to create CEL evaluator: %w", err)
		}

		if err := evaluator.ValidateExpression(*req.Expression); err != nil {
			return fmt.Errorf("invalid CEL expression: %w", err)
		}
	}
	return nil
}
