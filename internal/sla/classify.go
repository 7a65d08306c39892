package sla

import "time"

// Status is the point-in-time SLA classification of an action item. It is
// derived on demand from the persisted deadlines and a caller-supplied now,
// never stored.
type Status string

const (
	StatusOnTrack        Status = "on_track"
	StatusEscalationDue  Status = "escalation_due"
	StatusAtRisk         Status = "at_risk"
	StatusOverdue        Status = "overdue"
	StatusResolvedOnTime Status = "resolved_on_time"
	StatusResolvedLate   Status = "resolved_late"
)

var statusLabels = map[Status]string{
	StatusOnTrack:        "On track",
	StatusEscalationDue:  "Escalation due",
	StatusAtRisk:         "At risk",
	StatusOverdue:        "Overdue",
	StatusResolvedOnTime: "Resolved on time",
	StatusResolvedLate:   "Resolved late",
}

func AllStatuses() []Status {
	return []Status{
		StatusOnTrack,
		StatusEscalationDue,
		StatusAtRisk,
		StatusOverdue,
		StatusResolvedOnTime,
		StatusResolvedLate,
	}
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the human-readable form used by dashboard payloads.
func (s Status) Label() string {
	return statusLabels[s]
}

// Resolved reports whether the status is terminal.
func (s Status) Resolved() bool {
	return s == StatusResolvedOnTime || s == StatusResolvedLate
}

// ClassifyInput carries everything classification depends on. Now must come
// from the caller; the engine never reads a clock.
type ClassifyInput struct {
	Deadlines       Deadlines
	Now             time.Time
	ResolvedAt      *time.Time
	EscalationLevel int
}

// Classify evaluates the status state machine in precedence order, first match
// wins:
//
//  1. resolved items are terminal, late when resolved past the resolution
//     deadline;
//  2. past the resolution deadline is overdue;
//  3. past the escalation deadline at level 0 signals escalation_due — the
//     caller increments the level and notifies the escalation role;
//  4. past the escalation deadline with the level already raised is at_risk;
//  5. everything else is on_track.
func Classify(in ClassifyInput) Status {
	if in.ResolvedAt != nil {
		if in.ResolvedAt.After(in.Deadlines.Resolution) {
			return StatusResolvedLate
		}
		return StatusResolvedOnTime
	}
	if in.Now.After(in.Deadlines.Resolution) {
		return StatusOverdue
	}
	if in.Now.After(in.Deadlines.Escalation) {
		if in.EscalationLevel == 0 {
			return StatusEscalationDue
		}
		return StatusAtRisk
	}
	return StatusOnTrack
}
