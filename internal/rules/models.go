package rules

import "time"

// SLARule is the stored form of an SLA rule. Category is nil for
// severity-wide fallback rules.
type SLARule struct {
	ID              string    `json:"id" db:"id"`
	Category        *string   `json:"category,omitempty" db:"category"`
	Severity        string    `json:"severity" db:"severity"`
	ResolutionHours int       `json:"resolution_hours" db:"resolution_hours"`
	EscalationHours int       `json:"escalation_hours" db:"escalation_hours"`
	EscalationRole  string    `json:"escalation_role" db:"escalation_role"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type CreateSLARuleRequest struct {
	Category        *string `json:"category"`
	Severity        string  `json:"severity" binding:"required"`
	ResolutionHours int     `json:"resolution_hours" binding:"required"`
	EscalationHours int     `json:"escalation_hours" binding:"required"`
	EscalationRole  string  `json:"escalation_role" binding:"required"`
	Active          *bool   `json:"active"`
}

type UpdateSLARuleRequest struct {
	Category        *string `json:"category"`
	Severity        *string `json:"severity"`
	ResolutionHours *int    `json:"resolution_hours"`
	EscalationHours *int    `json:"escalation_hours"`
	EscalationRole  *string `json:"escalation_role"`
	Active          *bool   `json:"active"`
}

// SuppressionRule drops matching findings at intake before an action item
// is created.
type SuppressionRule struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Expression string    `json:"expression" db:"expression"`
	Priority   int       `json:"priority" db:"priority"`
	Enabled    bool      `json:"enabled" db:"enabled"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

type CreateSuppressionRuleRequest struct {
	Name       string `json:"name" binding:"required"`
	Expression string `json:"expression" binding:"required"`
	Priority   int    `json:"priority"`
	Enabled    *bool  `json:"enabled"`
}

type UpdateSuppressionRuleRequest struct {
	Name       *string `json:"name"`
	Expression *string `json:"expression"`
	Priority   *int    `json:"priority"`
	Enabled    *bool   `json:"enabled"`
}
