package models

import "time"

// FindingEnvelope is the wire format for monitoring findings consumed by the
// intake service. Payload carries source-specific detail; Metadata carries
// pipeline bookkeeping and never reaches business logic.
type FindingEnvelope struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"`
	StudyID    string                 `json:"study_id"`
	SiteID     string                 `json:"site_id"`
	Category   string                 `json:"category"`
	Severity   string                 `json:"severity"`
	Title      string                 `json:"title"`
	OccurredAt time.Time              `json:"occurred_at"`
	Payload    map[string]interface{} `json:"payload"`
	Metadata   Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID     string           `json:"trace_id,omitempty"`
	Suppression *SuppressionInfo `json:"suppression,omitempty"`
	DLQ         *DLQInfo         `json:"dlq,omitempty"`
}

type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

type SuppressionInfo struct {
	CheckedAt time.Time `json:"checked_at"`
	RuleIDs   []string  `json:"rule_ids"`
}

func (f *FindingEnvelope) GetPayloadField(name string) (interface{}, bool) {
	if f.Payload == nil {
		return nil, false
	}

	value, ok := f.Payload[name]
	return value, ok
}

func (f *FindingEnvelope) SetPayloadField(name string, value interface{}) {
	if f.Payload == nil {
		f.Payload = make(map[string]interface{})
	}

	f.Payload[name] = value
}
