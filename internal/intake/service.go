package intake

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"trialops/internal/config"
	"trialops/internal/constants"
	"trialops/internal/logger"
	"trialops/internal/rules"
	"trialops/pkg/cel"
	"trialops/pkg/metrics"
	"trialops/pkg/models"
	"trialops/pkg/tracing"
)

type errorHandlingStatus int

const (
	errorHandlingSuppress errorHandlingStatus = iota
	errorHandlingSkip
	errorHandlingFail
)

// RuleSource supplies the enabled suppression rules. Satisfied by
// rules.SuppressionRepository.
type RuleSource interface {
	ListEnabledSuppressionRules(ctx context.Context) ([]rules.SuppressionRule, error)
}

type Service struct {
	source       RuleSource
	rules        []compiledRule
	rulesMu      sync.RWMutex
	intakeConfig config.IntakeConfig
	evaluator    *cel.Evaluator
	logger       logger.Logger
}

func NewService(source RuleSource, cfg config.IntakeConfig, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	return &Service{
		source:       source,
		intakeConfig: cfg,
		rules:        make([]compiledRule, 0),
		evaluator:    evaluator,
		logger:       log,
	}, nil
}

// Evaluate runs the cached suppression rules against the finding in priority
// order. The first matching rule suppresses; findings matching nothing are
// admitted.
func (s *Service) Evaluate(ctx context.Context, finding *models.FindingEnvelope) (Decision, []string, error) {
	ctx, span := tracing.GetTracer("intake-service").Start(ctx, "intake.evaluate")
	defer span.End()

	rules := s.getActiveRules()
	start := time.Now()

	decision, matched, err := s.evaluateRules(ctx, rules, finding)

	s.recordMetrics(time.Since(start), decision)
	return decision, matched, err
}

func (s *Service) getActiveRules() []compiledRule {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	rules := make([]compiledRule, len(s.rules))
	copy(rules, s.rules)
	return rules
}

func (s *Service) evaluateRules(ctx context.Context, cached []compiledRule, finding *models.FindingEnvelope) (Decision, []string, error) {
	checked := make([]string, 0, len(cached))

	for _, cr := range cached {
		if err := ctx.Err(); err != nil {
			return DecisionCreate, nil, err
		}

		matched, err := s.evaluator.Run(ctx, cr.program, finding)
		if err != nil {
			switch s.handleEvaluationError(ctx, cr.rule, err) {
			case errorHandlingSuppress:
				return DecisionSuppress, checked, nil
			case errorHandlingFail:
				return DecisionCreate, checked, err
			}
			continue
		}

		metrics.IncIntakeRuleEvaluation(cr.rule.ID, cr.rule.Name, evaluationResult(matched))
		checked = append(checked, cr.rule.ID)

		if matched {
			s.logger.DebugwCtx(ctx, "Suppression rule matched finding",
				"rule_id", cr.rule.ID,
				"rule_name", cr.rule.Name,
				"finding_id", finding.ID,
			)
			return DecisionSuppress, checked, nil
		}
	}

	return DecisionCreate, checked, nil
}

func (s *Service) handleEvaluationError(ctx context.Context, rule rules.SuppressionRule, err error) errorHandlingStatus {
	s.logger.ErrorwCtx(ctx, "Suppression rule evaluation error",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"error", err,
	)

	switch s.intakeConfig.Fallback.OnError {
	case constants.FallbackSuppress:
		s.logger.WarnwCtx(ctx, "Evaluation error, suppressing finding (fallback: suppress)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingSuppress
	case constants.FallbackError:
		return errorHandlingFail
	default:
		s.logger.WarnwCtx(ctx, "Evaluation error, skipping rule (fallback: create)",
			"rule_id", rule.ID,
			"rule_name", rule.Name,
		)
		return errorHandlingSkip
	}
}

func (s *Service) recordMetrics(duration time.Duration, decision Decision) {
	metrics.IntakeFindingsTotal.WithLabelValues(string(decision)).Inc()
	metrics.ObserveIntakeDuration(duration, string(decision))
}

func (s *Service) ReloadRules(ctx context.Context, skipJitter ...bool) error {
	shouldSkipJitter := len(skipJitter) > 0 && skipJitter[0]

	if err := s.applyJitter(ctx, shouldSkipJitter); err != nil {
		return err
	}

	compiled, err := s.loadRules(ctx)
	if err != nil {
		return err
	}

	s.updateRules(ctx, compiled)
	return nil
}

// applyJitter staggers the reload across instances so they do not hit the
// database in lockstep.
func (s *Service) applyJitter(ctx context.Context, skipJitter bool) error {
	if skipJitter || s.intakeConfig.Reload.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.intakeConfig.Reload.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "Reload scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// loadRules fetches and compiles the enabled rules. A rule that no longer
// compiles is skipped with an error log instead of poisoning the whole set.
func (s *Service) loadRules(ctx context.Context) ([]compiledRule, error) {
	s.logger.DebugwCtx(ctx, "Loading suppression rules from database")

	stored, err := s.source.ListEnabledSuppressionRules(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(stored, func(i, j int) bool {
		return stored[i].Priority < stored[j].Priority
	})

	compiled := make([]compiledRule, 0, len(stored))
	for _, rule := range stored {
		program, err := s.evaluator.CompileExpression(rule.Expression)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "Skipping suppression rule with invalid expression",
				"rule_id", rule.ID,
				"rule_name", rule.Name,
				"error", err,
			)
			continue
		}
		compiled = append(compiled, compiledRule{rule: rule, program: program})
	}

	return compiled, nil
}

func (s *Service) updateRules(ctx context.Context, compiled []compiledRule) {
	s.rulesMu.Lock()
	s.rules = compiled
	s.rulesMu.Unlock()

	metrics.SetIntakeActiveRules(len(compiled))
	s.logger.InfowCtx(ctx, "Successfully reloaded suppression rules",
		"rules_count", len(compiled),
	)
}

func (s *Service) StartReloader(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.intakeConfig.Reload.IntervalSeconds) * time.Second)
	defer ticker.Stop()

	if err := s.ReloadRules(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Failed to reload suppression rules",
			"error", err,
		)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.ReloadRules(ctx); err != nil {
				s.logger.ErrorwCtx(ctx, "Failed to reload suppression rules",
					"error", err,
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func evaluationResult(matched bool) string {
	if matched {
		return "matched"
	}
	return "not_matched"
}
