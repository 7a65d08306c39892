package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDeadlines_CriticalFallbackSpansWeekend(t *testing.T) {
	cal := mustCalendar(t)
	rule := Rule{
		ID:              "generic-critical",
		Severity:        SeverityCritical,
		ResolutionHours: 48,
		EscalationHours: 24,
		EscalationRole:  RoleOpsManager,
		Active:          true,
	}

	friday := time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)
	deadlines, err := ComputeDeadlines(cal, rule, friday)
	require.NoError(t, err)

	// 24 hours is three business days, 48 is six; both jump the weekends.
	assert.Equal(t, time.Date(2025, time.March, 19, 10, 0, 0, 0, time.UTC), deadlines.Escalation)
	assert.Equal(t, time.Date(2025, time.March, 24, 10, 0, 0, 0, time.UTC), deadlines.Resolution)
	assert.True(t, deadlines.Escalation.Before(deadlines.Resolution))
}

func TestComputeDeadlines_SafetyOverrideIsTighter(t *testing.T) {
	cal := mustCalendar(t)
	override := Rule{
		ID:              "safety-critical",
		Category:        categoryPtr(CategorySafetyReporting),
		Severity:        SeverityCritical,
		ResolutionHours: 24,
		EscalationHours: 8,
		EscalationRole:  RoleSCLead,
		Active:          true,
	}

	tuesday := time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC)
	deadlines, err := ComputeDeadlines(cal, override, tuesday)
	require.NoError(t, err)

	// 8 hours is one business day, 24 is three.
	assert.Equal(t, time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC), deadlines.Escalation)
	assert.Equal(t, time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC), deadlines.Resolution)
}

func TestComputeDeadlines_Idempotent(t *testing.T) {
	cal := mustCalendar(t)
	rule := Rule{
		ID:              "minor",
		Severity:        SeverityMinor,
		ResolutionHours: 80,
		EscalationHours: 40,
		EscalationRole:  RoleStudyCoordinator,
		Active:          true,
	}
	createdAt := time.Date(2025, time.July, 2, 14, 45, 0, 0, time.UTC)

	first, err := ComputeDeadlines(cal, rule, createdAt)
	require.NoError(t, err)
	second, err := ComputeDeadlines(cal, rule, createdAt)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComputeDeadlines_RejectsInvalidRule(t *testing.T) {
	cal := mustCalendar(t)
	rule := Rule{
		ID:              "broken",
		Severity:        SeverityMajor,
		ResolutionHours: 20,
		EscalationHours: 40,
		EscalationRole:  RoleOpsManager,
		Active:          true,
	}

	_, err := ComputeDeadlines(cal, rule, time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestComputeDeadlines_OutsideCalendarRange(t *testing.T) {
	cal := mustCalendar(t)
	rule := Rule{
		ID:              "generic-critical",
		Severity:        SeverityCritical,
		ResolutionHours: 48,
		EscalationHours: 24,
		EscalationRole:  RoleOpsManager,
		Active:          true,
	}

	_, err := ComputeDeadlines(cal, rule, time.Date(2031, time.January, 6, 9, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, ErrCalendarOutOfRange)
}
