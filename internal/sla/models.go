package sla

import "time"

// ItemSnapshot is the engine-relevant slice of an action item, handed in by
// the persistence layer. Deadlines carry the values stamped at creation.
type ItemSnapshot struct {
	Category        Category
	Severity        Severity
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	EscalationLevel int
	Deadlines       Deadlines
}

// Open reports whether the item is still awaiting resolution.
func (s ItemSnapshot) Open() bool {
	return s.ResolvedAt == nil
}

// AgeDays is the item's age at now, in fractional days.
func (s ItemSnapshot) AgeDays(now time.Time) float64 {
	return now.Sub(s.CreatedAt).Hours() / 24
}

// Status classifies the snapshot at now.
func (s ItemSnapshot) Status(now time.Time) Status {
	return Classify(ClassifyInput{
		Deadlines:       s.Deadlines,
		Now:             now,
		ResolvedAt:      s.ResolvedAt,
		EscalationLevel: s.EscalationLevel,
	})
}
