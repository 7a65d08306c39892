package integration

import (
	"time"

	"trialops/internal/config"
	"trialops/internal/constants"
	"trialops/internal/items"
	"trialops/internal/logger"
	"trialops/internal/rules"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestIntakeConfig() config.IntakeConfig {
	return config.IntakeConfig{
		Fallback: config.FallbackConfig{
			OnError: constants.FallbackCreate,
		},
		Reload: config.ReloadConfig{
			IntervalSeconds: 60,
		},
	}
}

func createTestSLARule(category *string, severity string, resolutionHours, escalationHours int) *rules.SLARule {
	return &rules.SLARule{
		Category:        category,
		Severity:        severity,
		ResolutionHours: resolutionHours,
		EscalationHours: escalationHours,
		EscalationRole:  "ops_manager",
		Active:          true,
	}
}

func createTestSuppressionRule(name, expression string, priority int, enabled bool) *rules.SuppressionRule {
	return &rules.SuppressionRule{
		Name:       name,
		Expression: expression,
		Priority:   priority,
		Enabled:    enabled,
	}
}

func createTestActionItem(studyID, siteID, category, severity string, now time.Time) *items.ActionItem {
	return &items.ActionItem{
		StudyID:            studyID,
		SiteID:             siteID,
		Title:              "Integration test item",
		Category:           category,
		Severity:           severity,
		Status:             items.StatusNew,
		RuleID:             "rule-test",
		ResolutionDeadline: now.Add(48 * time.Hour),
		EscalationDeadline: now.Add(24 * time.Hour),
		EscalationRole:     "ops_manager",
	}
}

func strRef(s string) *string { return &s }
