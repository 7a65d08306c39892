package sla

import "fmt"

// Rule is the engine's view of one SLA rule row. A nil Category means the rule
// applies to every category at its severity; a category-specific rule always
// wins over the nil-category fallback.
type Rule struct {
	ID              string
	Category        *Category
	Severity        Severity
	ResolutionHours int
	EscalationHours int
	EscalationRole  Role
	Active          bool
}

func (r Rule) validate() error {
	if !r.Severity.Valid() {
		return fmt.Errorf("%w %s: invalid severity %q", ErrInvalidRule, r.ID, r.Severity)
	}
	if r.Category != nil && !r.Category.Valid() {
		return fmt.Errorf("%w %s: invalid category %q", ErrInvalidRule, r.ID, *r.Category)
	}
	if !r.EscalationRole.Valid() {
		return fmt.Errorf("%w %s: invalid escalation role %q", ErrInvalidRule, r.ID, r.EscalationRole)
	}
	if r.ResolutionHours <= 0 {
		return fmt.Errorf("%w %s: resolution hours must be positive, got %d", ErrInvalidRule, r.ID, r.ResolutionHours)
	}
	if r.EscalationHours <= 0 || r.EscalationHours >= r.ResolutionHours {
		return fmt.Errorf("%w %s: escalation hours %d must be positive and below resolution hours %d",
			ErrInvalidRule, r.ID, r.EscalationHours, r.ResolutionHours)
	}
	return nil
}

// RuleSet resolves (category, severity) pairs to the single applicable active
// rule. It is an immutable snapshot of the rule table: build a new one after
// rule edits.
type RuleSet struct {
	rules []Rule
}

// NewRuleSet validates every active rule up front. Inactive rules are carried
// but never matched.
func NewRuleSet(rules []Rule) (*RuleSet, error) {
	for _, r := range rules {
		if !r.Active {
			continue
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
	}

	snapshot := make([]Rule, len(rules))
	copy(snapshot, rules)
	return &RuleSet{rules: snapshot}, nil
}

// Resolve picks the active rule for (category, severity): an exact category
// match wins, otherwise the nil-category fallback for the severity. More than
// one active match at the winning tier is a data integrity violation and
// resolves to ErrAmbiguousRule rather than an arbitrary pick; no match at
// either tier resolves to ErrNoApplicableRule.
func (s *RuleSet) Resolve(category Category, severity Severity) (Rule, error) {
	var exact, fallback []Rule
	for _, r := range s.rules {
		if !r.Active || r.Severity != severity {
			continue
		}
		switch {
		case r.Category != nil && *r.Category == category:
			exact = append(exact, r)
		case r.Category == nil:
			fallback = append(fallback, r)
		}
	}

	if len(exact) > 1 {
		return Rule{}, ambiguousRuleError(string(category), severity, len(exact))
	}
	if len(exact) == 1 {
		return exact[0], nil
	}
	if len(fallback) > 1 {
		return Rule{}, ambiguousRuleError("any-category", severity, len(fallback))
	}
	if len(fallback) == 1 {
		return fallback[0], nil
	}
	return Rule{}, noApplicableRuleError(&category, severity)
}

// Rules returns a copy of the snapshot, active and inactive alike.
func (s *RuleSet) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}
