package sla

import (
	"errors"
	"fmt"
	"time"
)

// The engine surfaces three defect classes. All of them are configuration or
// data problems on the caller's side: none is transient and none is retried.
var (
	ErrNoApplicableRule   = errors.New("no applicable sla rule")
	ErrAmbiguousRule      = errors.New("ambiguous sla rules")
	ErrCalendarOutOfRange = errors.New("date outside calendar range")
	ErrInvalidRule        = errors.New("invalid sla rule")
)

func noApplicableRuleError(category *Category, severity Severity) error {
	if category == nil {
		return fmt.Errorf("%w for severity %q with no category fallback", ErrNoApplicableRule, severity)
	}
	return fmt.Errorf("%w for category %q severity %q", ErrNoApplicableRule, *category, severity)
}

func ambiguousRuleError(scope string, severity Severity, matches int) error {
	return fmt.Errorf("%w: %d active rules match %s/%s", ErrAmbiguousRule, matches, scope, severity)
}

func calendarRangeError(t time.Time, first, last int) error {
	return fmt.Errorf("%w: %s not covered by holiday table %d-%d",
		ErrCalendarOutOfRange, t.Format("2006-01-02"), first, last)
}
