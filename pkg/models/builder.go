package models

import "time"

type FindingEnvelopeBuilder struct {
	envelope *FindingEnvelope
}

func NewFindingEnvelopeBuilder() *FindingEnvelopeBuilder {
	return &FindingEnvelopeBuilder{
		envelope: &FindingEnvelope{
			Payload:  make(map[string]interface{}),
			Metadata: Metadata{},
		},
	}
}

func (b *FindingEnvelopeBuilder) WithID(id string) *FindingEnvelopeBuilder {
	b.envelope.ID = id
	return b
}

func (b *FindingEnvelopeBuilder) WithSource(source string) *FindingEnvelopeBuilder {
	b.envelope.Source = source
	return b
}

func (b *FindingEnvelopeBuilder) WithStudy(studyID string) *FindingEnvelopeBuilder {
	b.envelope.StudyID = studyID
	return b
}

func (b *FindingEnvelopeBuilder) WithSite(siteID string) *FindingEnvelopeBuilder {
	b.envelope.SiteID = siteID
	return b
}

func (b *FindingEnvelopeBuilder) WithCategory(category string) *FindingEnvelopeBuilder {
	b.envelope.Category = category
	return b
}

func (b *FindingEnvelopeBuilder) WithSeverity(severity string) *FindingEnvelopeBuilder {
	b.envelope.Severity = severity
	return b
}

func (b *FindingEnvelopeBuilder) WithTitle(title string) *FindingEnvelopeBuilder {
	b.envelope.Title = title
	return b
}

func (b *FindingEnvelopeBuilder) WithOccurredAt(ts time.Time) *FindingEnvelopeBuilder {
	b.envelope.OccurredAt = ts
	return b
}

func (b *FindingEnvelopeBuilder) WithPayload(payload map[string]interface{}) *FindingEnvelopeBuilder {
	b.envelope.Payload = payload
	return b
}

func (b *FindingEnvelopeBuilder) WithTraceID(traceID string) *FindingEnvelopeBuilder {
	b.envelope.Metadata.TraceID = traceID
	return b
}

func (b *FindingEnvelopeBuilder) Build() *FindingEnvelope {
	if b.envelope.OccurredAt.IsZero() {
		b.envelope.OccurredAt = time.Now()
	}
	return b.envelope
}
