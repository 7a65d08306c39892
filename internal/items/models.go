package items

import (
	"fmt"
	"time"

	"trialops/internal/sla"
)

// WorkflowStatus is the manual workflow state of an action item. It is
// orthogonal to the derived SLA status: an item can be in_progress and
// overdue at the same time.
type WorkflowStatus string

const (
	StatusNew             WorkflowStatus = "new"
	StatusInProgress      WorkflowStatus = "in_progress"
	StatusWaitingExternal WorkflowStatus = "waiting_external"
	StatusDone            WorkflowStatus = "done"
	StatusVerified        WorkflowStatus = "verified"
)

var validTransitions = map[WorkflowStatus][]WorkflowStatus{
	StatusNew:             {StatusInProgress, StatusWaitingExternal},
	StatusInProgress:      {StatusWaitingExternal, StatusDone, StatusNew},
	StatusWaitingExternal: {StatusInProgress, StatusDone},
	StatusDone:            {StatusVerified, StatusInProgress},
	StatusVerified:        {},
}

func WorkflowStatuses() []WorkflowStatus {
	return []WorkflowStatus{StatusNew, StatusInProgress, StatusWaitingExternal, StatusDone, StatusVerified}
}

func (s WorkflowStatus) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Open reports whether the status still counts toward the open backlog.
func (s WorkflowStatus) Open() bool {
	return s != StatusDone && s != StatusVerified
}

// CanTransitionTo reports whether the workflow allows moving to next.
// Verified is terminal.
func (s WorkflowStatus) CanTransitionTo(next WorkflowStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func ParseWorkflowStatus(raw string) (WorkflowStatus, error) {
	s := WorkflowStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown workflow status %q", raw)
	}
	return s, nil
}

// ActionItem is a tracked obligation from a monitoring finding or manual
// entry. Both deadlines are stamped at creation from the rule active at that
// moment and never recomputed.
type ActionItem struct {
	ID                 string         `json:"id" db:"id"`
	StudyID            string         `json:"study_id" db:"study_id"`
	SiteID             string         `json:"site_id" db:"site_id"`
	FindingID          *string        `json:"finding_id,omitempty" db:"finding_id"`
	Title              string         `json:"title" db:"title"`
	Description        *string        `json:"description,omitempty" db:"description"`
	Category           string         `json:"category" db:"category"`
	Severity           string         `json:"severity" db:"severity"`
	Status             WorkflowStatus `json:"status" db:"status"`
	AssignedTo         *string        `json:"assigned_to,omitempty" db:"assigned_to"`
	RuleID             string         `json:"rule_id" db:"rule_id"`
	ResolutionDeadline time.Time      `json:"resolution_deadline" db:"resolution_deadline"`
	EscalationDeadline time.Time      `json:"escalation_deadline" db:"escalation_deadline"`
	EscalationRole     string         `json:"escalation_role" db:"escalation_role"`
	EscalationLevel    int            `json:"escalation_level" db:"escalation_level"`
	ResolvedAt         *time.Time     `json:"resolved_at,omitempty" db:"resolved_at"`
	VerifiedAt         *time.Time     `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`

	// SLAStatus is derived at read time, never stored.
	SLAStatus sla.Status `json:"sla_status,omitempty" db:"-"`
}

// Snapshot projects the item onto the engine's view for classification and
// aggregation.
func (a *ActionItem) Snapshot() sla.ItemSnapshot {
	return sla.ItemSnapshot{
		Category:        sla.Category(a.Category),
		Severity:        sla.Severity(a.Severity),
		CreatedAt:       a.CreatedAt,
		ResolvedAt:      a.ResolvedAt,
		EscalationLevel: a.EscalationLevel,
		Deadlines: sla.Deadlines{
			Resolution: a.ResolutionDeadline,
			Escalation: a.EscalationDeadline,
		},
	}
}

// ItemUpdate is one audit-trail entry. Field-level entries carry the old and
// new values; comment-only entries carry just the comment.
type ItemUpdate struct {
	ID           string    `json:"id" db:"id"`
	ActionItemID string    `json:"action_item_id" db:"action_item_id"`
	UpdatedBy    string    `json:"updated_by" db:"updated_by"`
	FieldChanged *string   `json:"field_changed,omitempty" db:"field_changed"`
	OldValue     *string   `json:"old_value,omitempty" db:"old_value"`
	NewValue     *string   `json:"new_value,omitempty" db:"new_value"`
	Comment      *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CreateActionItemRequest struct {
	StudyID     string  `json:"study_id" binding:"required"`
	SiteID      string  `json:"site_id" binding:"required"`
	FindingID   *string `json:"finding_id"`
	Title       string  `json:"title" binding:"required"`
	Description *string `json:"description"`
	Category    string  `json:"category" binding:"required"`
	Severity    string  `json:"severity" binding:"required"`
	AssignedTo  *string `json:"assigned_to"`
}

type UpdateActionItemRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	AssignedTo  *string `json:"assigned_to"`
	Comment     *string `json:"comment"`
}

type TransitionRequest struct {
	Status  string  `json:"status" binding:"required"`
	Comment *string `json:"comment"`
}

// Filter narrows action item listings. Zero values mean "no filter".
type Filter struct {
	StudyID     string
	SiteID      string
	Status      string
	Category    string
	Severity    string
	AssignedTo  string
	OverdueOnly bool
	OpenOnly    bool
	Offset      int
	Limit       int
}

// ItemList is the paginated listing payload.
type ItemList struct {
	Items    []ActionItem `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Pages    int          `json:"pages"`
}
