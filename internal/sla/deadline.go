package sla

import "time"

// Deadlines are computed exactly once from the rule active at creation time
// and persisted by the caller alongside the item. Editing a rule later never
// moves an existing item's deadlines.
type Deadlines struct {
	Resolution time.Time
	Escalation time.Time
}

// ComputeDeadlines turns (rule, createdAt) into the resolution and escalation
// deadlines using business-hour math on the given calendar. It is a pure
// function: identical inputs always yield identical outputs.
func ComputeDeadlines(cal *Calendar, rule Rule, createdAt time.Time) (Deadlines, error) {
	if err := rule.validate(); err != nil {
		return Deadlines{}, err
	}

	resolution, err := cal.AddBusinessHours(createdAt, rule.ResolutionHours)
	if err != nil {
		return Deadlines{}, err
	}
	escalation, err := cal.AddBusinessHours(createdAt, rule.EscalationHours)
	if err != nil {
		return Deadlines{}, err
	}
	return Deadlines{Resolution: resolution, Escalation: escalation}, nil
}
