package rules

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "trialops/pkg/errors"
)

type fakeRepository struct {
	rules map[string]*SLARule
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rules: make(map[string]*SLARule)}
}

func (r *fakeRepository) CreateSLARule(ctx context.Context, rule *SLARule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *fakeRepository) GetSLARule(ctx context.Context, id string) (*SLARule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, fmt.Errorf("rule not found")
	}
	out := *rule
	return &out, nil
}

func (r *fakeRepository) ListSLARules(ctx context.Context) ([]SLARule, error) {
	out := make([]SLARule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, *rule)
	}
	return out, nil
}

func (r *fakeRepository) ListActiveSLARules(ctx context.Context) ([]SLARule, error) {
	var out []SLARule
	for _, rule := range r.rules {
		if rule.Active {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (r *fakeRepository) UpdateSLARule(ctx context.Context, rule *SLARule) error {
	if _, ok := r.rules[rule.ID]; !ok {
		return fmt.Errorf("rule not found")
	}
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

func (r *fakeRepository) DeleteSLARule(ctx context.Context, id string) error {
	if _, ok := r.rules[id]; !ok {
		return fmt.Errorf("rule not found")
	}
	delete(r.rules, id)
	return nil
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validCreateRequest() CreateSLARuleRequest {
	return CreateSLARuleRequest{
		Category:        strPtr("safety_reporting"),
		Severity:        "critical",
		ResolutionHours: 48,
		EscalationHours: 24,
		EscalationRole:  "ops_manager",
	}
}

func TestCreateSLARule(t *testing.T) {
	svc := NewService(newFakeRepository())

	rule, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "safety_reporting", *rule.Category)
	assert.Equal(t, "critical", rule.Severity)
	assert.Equal(t, 48, rule.ResolutionHours)
	assert.Equal(t, 24, rule.EscalationHours)
	assert.True(t, rule.Active, "active should default to true")
}

func TestCreateSLARule_ValidationErrors(t *testing.T) {
	svc := NewService(newFakeRepository())

	tests := []struct {
		name   string
		mutate func(*CreateSLARuleRequest)
	}{
		{
			name:   "unknown severity",
			mutate: func(req *CreateSLARuleRequest) { req.Severity = "catastrophic" },
		},
		{
			name:   "unknown category",
			mutate: func(req *CreateSLARuleRequest) { req.Category = strPtr("paperwork") },
		},
		{
			name:   "unknown escalation role",
			mutate: func(req *CreateSLARuleRequest) { req.EscalationRole = "intern" },
		},
		{
			name:   "non-positive resolution hours",
			mutate: func(req *CreateSLARuleRequest) { req.ResolutionHours = 0 },
		},
		{
			name: "escalation not below resolution",
			mutate: func(req *CreateSLARuleRequest) {
				req.EscalationHours = 48
				req.ResolutionHours = 48
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)

			_, err := svc.CreateSLARule(context.Background(), req)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestUpdateSLARule(t *testing.T) {
	svc := NewService(newFakeRepository())

	created, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)

	updated, err := svc.UpdateSLARule(context.Background(), created.ID, UpdateSLARuleRequest{
		ResolutionHours: intPtr(72),
	})
	require.NoError(t, err)

	assert.Equal(t, 72, updated.ResolutionHours)
	assert.Equal(t, 24, updated.EscalationHours)
	assert.Equal(t, created.ID, updated.ID)
}

func TestUpdateSLARule_ClearsCategoryOnEmptyString(t *testing.T) {
	svc := NewService(newFakeRepository())

	created, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)
	require.NotNil(t, created.Category)

	updated, err := svc.UpdateSLARule(context.Background(), created.ID, UpdateSLARuleRequest{
		Category: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Category, "empty category should clear to a severity-wide rule")
}

func TestUpdateSLARule_RejectsMergedHourInvariantViolation(t *testing.T) {
	svc := NewService(newFakeRepository())

	created, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)

	// Each field alone is valid; the merged rule is not.
	_, err = svc.UpdateSLARule(context.Background(), created.ID, UpdateSLARuleRequest{
		EscalationHours: intPtr(60),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestUpdateSLARule_NotFound(t *testing.T) {
	svc := NewService(newFakeRepository())

	_, err := svc.UpdateSLARule(context.Background(), uuid.New().String(), UpdateSLARuleRequest{
		ResolutionHours: intPtr(72),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDeleteSLARule(t *testing.T) {
	svc := NewService(newFakeRepository())

	created, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSLARule(context.Background(), created.ID))

	_, err = svc.GetSLARule(context.Background(), created.ID)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestSnapshot(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	_, err := svc.CreateSLARule(context.Background(), validCreateRequest())
	require.NoError(t, err)

	_, err = svc.CreateSLARule(context.Background(), CreateSLARuleRequest{
		Severity:        "critical",
		ResolutionHours: 96,
		EscalationHours: 48,
		EscalationRole:  "sc_lead",
	})
	require.NoError(t, err)

	inactive := false
	_, err = svc.CreateSLARule(context.Background(), CreateSLARuleRequest{
		Severity:        "minor",
		ResolutionHours: 240,
		EscalationHours: 120,
		EscalationRole:  "sc_lead",
		Active:          &inactive,
	})
	require.NoError(t, err)

	set, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.NotNil(t, set)
	assert.Len(t, set.Rules(), 2, "inactive rules stay out of the snapshot")
}

func TestSnapshot_BrokenStoredRuleIsUnprocessable(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)

	// Seed the repository directly to simulate a rule row corrupted outside
	// the service's validation path.
	repo.rules["broken"] = &SLARule{
		ID:              "broken",
		Severity:        "critical",
		ResolutionHours: 24,
		EscalationHours: 48,
		EscalationRole:  "sc_lead",
		Active:          true,
	}

	_, err := svc.Snapshot(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsUnprocessable(err))
}
