package cel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `severity == "info"`,
			wantError: false,
		},
		{
			name:      "valid payload expression",
			expr:      `payload.form == "legacy_crf"`,
			wantError: false,
		},
		{
			name:      "non-bool expression",
			expr:      `site_id`,
			wantError: true,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `undefinedVar == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEvaluateSuppression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	finding := models.NewFindingEnvelopeBuilder().
		WithID("f-1").
		WithSource("edc-monitor").
		WithStudy("STUDY-001").
		WithSite("SITE-014").
		WithCategory("data_entry").
		WithSeverity("minor").
		WithTitle("Overdue CRF pages").
		WithOccurredAt(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)).
		WithPayload(map[string]interface{}{
			"form":       "legacy_crf",
			"page_count": 12,
		}).
		Build()

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{
			name: "matches site",
			expr: `site_id == "SITE-014"`,
			want: true,
		},
		{
			name: "does not match severity",
			expr: `severity == "critical"`,
			want: false,
		},
		{
			name: "payload field match",
			expr: `payload.form == "legacy_crf"`,
			want: true,
		},
		{
			name: "numeric payload comparison",
			expr: `payload.page_count > 10`,
			want: true,
		},
		{
			name: "combined conditions",
			expr: `category == "data_entry" && severity in ["minor", "info"]`,
			want: true,
		},
		{
			name: "title contains",
			expr: `title.contains("CRF")`,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval.EvaluateSuppression(context.Background(), tt.expr, finding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateSuppression_MissingPayloadField(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	finding := models.NewFindingEnvelopeBuilder().
		WithID("f-2").
		WithSource("lab-mirror").
		WithStudy("STUDY-001").
		WithSite("SITE-014").
		WithCategory("samples").
		WithSeverity("major").
		Build()

	// has() guards against absent fields without erroring.
	got, err := eval.EvaluateSuppression(context.Background(), `has(payload.resolved_externally) && payload.resolved_externally == true`, finding)
	require.NoError(t, err)
	assert.False(t, got)

	// Direct access to a missing field fails at eval time.
	_, err = eval.EvaluateSuppression(context.Background(), `payload.resolved_externally == true`, finding)
	assert.Error(t, err)
}

func TestCompileExpression_Reuse(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	program, err := eval.CompileExpression(`severity == "info"`)
	require.NoError(t, err)

	info := models.NewFindingEnvelopeBuilder().
		WithID("f-3").WithSource("s").WithStudy("st").WithSite("si").
		WithCategory("other").WithSeverity("info").Build()
	major := models.NewFindingEnvelopeBuilder().
		WithID("f-4").WithSource("s").WithStudy("st").WithSite("si").
		WithCategory("other").WithSeverity("major").Build()

	got, err := eval.Run(context.Background(), program, info)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = eval.Run(context.Background(), program, major)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSuppressionExpressionExamples_AllValid(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range SuppressionExpressionExamples {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, eval.ValidateExpression(expr))
		})
	}
}
