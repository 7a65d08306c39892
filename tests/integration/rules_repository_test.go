package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trialops/internal/rules"
)

func TestSLARuleRepository_CRUD(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := rules.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	rule := createTestSLARule(strRef("safety_reporting"), "critical", 48, 24)
	require.NoError(t, repo.CreateSLARule(ctx, rule))
	require.NotEmpty(t, rule.ID)

	fetched, err := repo.GetSLARule(ctx, rule.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Category)
	assert.Equal(t, "safety_reporting", *fetched.Category)
	assert.Equal(t, "critical", fetched.Severity)
	assert.Equal(t, 48, fetched.ResolutionHours)
	assert.True(t, fetched.Active)

	fetched.ResolutionHours = 72
	time.Sleep(timestampDelay)
	require.NoError(t, repo.UpdateSLARule(ctx, fetched))

	updated, err := repo.GetSLARule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 72, updated.ResolutionHours)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	require.NoError(t, repo.DeleteSLARule(ctx, rule.ID))

	_, err = repo.GetSLARule(ctx, rule.ID)
	assert.Error(t, err)
}

func TestSLARuleRepository_ListActiveExcludesInactive(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := rules.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	active := createTestSLARule(nil, "major", 120, 72)
	require.NoError(t, repo.CreateSLARule(ctx, active))

	inactive := createTestSLARule(nil, "minor", 240, 120)
	inactive.Active = false
	require.NoError(t, repo.CreateSLARule(ctx, inactive))

	all, err := repo.ListSLARules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	activeOnly, err := repo.ListActiveSLARules(ctx)
	require.NoError(t, err)
	require.Len(t, activeOnly, 1)
	assert.Equal(t, active.ID, activeOnly[0].ID)
}

func TestSuppressionRuleRepository_CRUD(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := rules.NewSuppressionRepository(infra.PostgresDB)
	ctx := context.Background()

	rule := createTestSuppressionRule("legacy sites", `site_id == "SITE-099"`, 10, true)
	require.NoError(t, repo.CreateSuppressionRule(ctx, rule))
	require.NotEmpty(t, rule.ID)

	fetched, err := repo.GetSuppressionRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "legacy sites", fetched.Name)
	assert.Equal(t, 10, fetched.Priority)

	fetched.Enabled = false
	require.NoError(t, repo.UpdateSuppressionRule(ctx, fetched))

	enabled, err := repo.ListEnabledSuppressionRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, repo.DeleteSuppressionRule(ctx, rule.ID))
}

func TestSuppressionRuleRepository_EnabledOrderedByPriority(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	repo := rules.NewSuppressionRepository(infra.PostgresDB)
	ctx := context.Background()

	low := createTestSuppressionRule("low priority", `severity == "info"`, 100, true)
	require.NoError(t, repo.CreateSuppressionRule(ctx, low))

	high := createTestSuppressionRule("high priority", `severity == "minor"`, 5, true)
	require.NoError(t, repo.CreateSuppressionRule(ctx, high))

	disabled := createTestSuppressionRule("disabled", `true`, 1, false)
	require.NoError(t, repo.CreateSuppressionRule(ctx, disabled))

	enabled, err := repo.ListEnabledSuppressionRules(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, high.ID, enabled[0].ID)
	assert.Equal(t, low.ID, enabled[1].ID)
}

func TestVersioningRepository_RecordsVersionsAndAudit(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false)
	ctx := context.Background()

	svc := rules.NewService(
		rules.NewRepository(infra.PostgresDB),
		rules.WithVersioning(rules.NewVersioningRepository(infra.PostgresDB)),
	)

	created, err := svc.CreateSLARule(ctx, rules.CreateSLARuleRequest{
		Severity:        "critical",
		ResolutionHours: 48,
		EscalationHours: 24,
		EscalationRole:  "ops_manager",
	})
	require.NoError(t, err)

	newHours := 72
	_, err = svc.UpdateSLARule(ctx, created.ID, rules.UpdateSLARuleRequest{
		ResolutionHours: &newHours,
	})
	require.NoError(t, err)

	versions, err := svc.GetRuleVersions(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	logs, err := svc.GetAuditLogs(ctx, &created.ID, "", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
