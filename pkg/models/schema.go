package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateFindingEnvelope(f *FindingEnvelope) error {
	if f == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "finding envelope cannot be nil",
		}
	}

	if f.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "finding ID is required",
		}
	}

	if f.Source == "" {
		return &ValidationError{
			Field:   "source",
			Message: "finding source is required",
		}
	}

	if f.StudyID == "" {
		return &ValidationError{
			Field:   "study_id",
			Message: "study ID is required",
		}
	}

	if f.SiteID == "" {
		return &ValidationError{
			Field:   "site_id",
			Message: "site ID is required",
		}
	}

	if f.Category == "" {
		return &ValidationError{
			Field:   "category",
			Message: "finding category is required",
		}
	}

	if f.Severity == "" {
		return &ValidationError{
			Field:   "severity",
			Message: "finding severity is required",
		}
	}

	if f.OccurredAt.IsZero() {
		return &ValidationError{
			Field:   "occurred_at",
			Message: "finding timestamp is required",
		}
	}

	return nil
}
