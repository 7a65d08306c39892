package models

import "time"

// ConfigUpdateEvent notifies worker services that a rule changed and cached
// snapshots must be reloaded.
type ConfigUpdateEvent struct {
	EventType string                 `json:"event_type"`
	RuleID    string                 `json:"rule_id,omitempty"`
	Action    string                 `json:"action"`
	Timestamp time.Time              `json:"timestamp"`
	ChangedBy string                 `json:"changed_by,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeSLARuleUpdated         = "sla_rule_updated"
	EventTypeSuppressionRuleUpdated = "suppression_rule_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionReload = "reload"
)

// ItemCreatedEvent is published after intake opens an action item, for
// downstream consumers (reporting, notifications). The item itself is the
// source of truth; this event is informational.
type ItemCreatedEvent struct {
	ItemID             string    `json:"item_id"`
	FindingID          string    `json:"finding_id,omitempty"`
	StudyID            string    `json:"study_id"`
	SiteID             string    `json:"site_id"`
	Category           string    `json:"category"`
	Severity           string    `json:"severity"`
	Title              string    `json:"title"`
	ResolutionDeadline time.Time `json:"resolution_deadline"`
	EscalationDeadline time.Time `json:"escalation_deadline"`
	CreatedAt          time.Time `json:"created_at"`
}

// EscalationEvent is published when an open action item crosses its
// escalation deadline without being resolved.
type EscalationEvent struct {
	ItemID             string    `json:"item_id"`
	StudyID            string    `json:"study_id"`
	SiteID             string    `json:"site_id"`
	Category           string    `json:"category"`
	Severity           string    `json:"severity"`
	Title              string    `json:"title"`
	EscalationRole     string    `json:"escalation_role"`
	EscalationLevel    int       `json:"escalation_level"`
	ResolutionDeadline time.Time `json:"resolution_deadline"`
	SignaledAt         time.Time `json:"signaled_at"`
}
