package intake

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/internal/config"
	"trialops/internal/logger"
	"trialops/internal/rules"
	"trialops/pkg/models"
)

type fakeRuleSource struct {
	rules []rules.SuppressionRule
	err   error
}

func (f *fakeRuleSource) ListEnabledSuppressionRules(ctx context.Context) ([]rules.SuppressionRule, error) {
	return f.rules, f.err
}

func suppressionRule(id, expression string, priority int) rules.SuppressionRule {
	return rules.SuppressionRule{
		ID:         id,
		Name:       id,
		Expression: expression,
		Priority:   priority,
		Enabled:    true,
	}
}

func testFinding() *models.FindingEnvelope {
	return models.NewFindingEnvelopeBuilder().
		WithID("finding-001").
		WithSource("monitor_letter").
		WithStudy("STUDY-001").
		WithSite("SITE-014").
		WithCategory("data_entry").
		WithSeverity("minor").
		WithTitle("CRF page 12 not entered").
		WithOccurredAt(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)).
		WithPayload(map[string]interface{}{"form": "legacy_crf"}).
		Build()
}

func newTestIntakeService(t *testing.T, source RuleSource, fallback string) *Service {
	t.Helper()

	cfg := config.IntakeConfig{
		Reload:   config.ReloadConfig{IntervalSeconds: 60},
		Fallback: config.FallbackConfig{OnError: fallback},
	}

	svc, err := NewService(source, cfg, logger.NopLogger())
	require.NoError(t, err)
	return svc
}

func TestEvaluate_NoRulesAdmitsFinding(t *testing.T) {
	svc := newTestIntakeService(t, &fakeRuleSource{}, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, checked, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionCreate, decision)
	assert.Empty(t, checked)
}

func TestEvaluate_FirstMatchSuppresses(t *testing.T) {
	source := &fakeRuleSource{rules: []rules.SuppressionRule{
		suppressionRule("rule-site", `site_id == "SITE-014"`, 10),
		suppressionRule("rule-severity", `severity == "critical"`, 20),
	}}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, checked, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppress, decision)
	assert.Equal(t, []string{"rule-site"}, checked, "second rule never runs after a match")
}

func TestEvaluate_NonMatchingRulesAdmit(t *testing.T) {
	source := &fakeRuleSource{rules: []rules.SuppressionRule{
		suppressionRule("rule-severity", `severity == "info"`, 10),
		suppressionRule("rule-study", `study_id == "STUDY-999"`, 20),
	}}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, checked, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionCreate, decision)
	assert.Equal(t, []string{"rule-severity", "rule-study"}, checked)
}

func TestEvaluate_PriorityOrder(t *testing.T) {
	// Both rules match; the lower priority value must win.
	source := &fakeRuleSource{rules: []rules.SuppressionRule{
		suppressionRule("rule-late", `study_id == "STUDY-001"`, 50),
		suppressionRule("rule-early", `site_id == "SITE-014"`, 5),
	}}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	_, checked, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-early"}, checked)
}

func TestReloadRules_SkipsUncompilableExpressions(t *testing.T) {
	source := &fakeRuleSource{rules: []rules.SuppressionRule{
		suppressionRule("rule-broken", `severity ==`, 10),
		suppressionRule("rule-valid", `severity == "minor"`, 20),
	}}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, checked, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppress, decision)
	assert.Equal(t, []string{"rule-valid"}, checked)
}

func TestEvaluate_RuntimeErrorFallbacks(t *testing.T) {
	// Direct access to an absent payload field fails at evaluation time.
	erroring := suppressionRule("rule-error", `payload.missing_field == "x"`, 10)

	tests := []struct {
		name     string
		fallback string
		decision Decision
		wantErr  bool
	}{
		{"create fallback skips the rule", "create", DecisionCreate, false},
		{"suppress fallback drops the finding", "suppress", DecisionSuppress, false},
		{"error fallback surfaces the failure", "error", DecisionCreate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeRuleSource{rules: []rules.SuppressionRule{erroring}}
			svc := newTestIntakeService(t, source, tt.fallback)
			require.NoError(t, svc.ReloadRules(context.Background(), true))

			decision, _, err := svc.Evaluate(context.Background(), testFinding())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.decision, decision)
		})
	}
}

func TestReloadRules_PicksUpChanges(t *testing.T) {
	source := &fakeRuleSource{}
	svc := newTestIntakeService(t, source, "create")
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, _, err := svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	require.Equal(t, DecisionCreate, decision)

	source.rules = []rules.SuppressionRule{
		suppressionRule("rule-new", `site_id == "SITE-014"`, 10),
	}
	require.NoError(t, svc.ReloadRules(context.Background(), true))

	decision, _, err = svc.Evaluate(context.Background(), testFinding())
	require.NoError(t, err)
	assert.Equal(t, DecisionSuppress, decision)
}

func TestReloadRules_SourceErrorPropagates(t *testing.T) {
	source := &fakeRuleSource{err: fmt.Errorf("connection refused")}
	svc := newTestIntakeService(t, source, "create")

	err := svc.ReloadRules(context.Background(), true)
	require.Error(t, err)
}
