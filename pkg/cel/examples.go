package cel

// SuppressionExpressionExamples documents common suppression patterns for
// operators writing intake rules.
var SuppressionExpressionExamples = map[string]string{
	"closed_study":        `study_id == "STUDY-009"`,
	"pilot_site":          `site_id in ["SITE-901", "SITE-902"]`,
	"informational_noise": `severity == "info" && source == "edc-monitor"`,
	"known_backlog":       `category == "data_entry" && payload.form == "legacy_crf"`,
	"duplicate_feed":      `source == "lab-mirror"`,
	"title_match":         `title.contains("scheduled maintenance")`,
	"combined":            `severity == "minor" && (category == "queries" || category == "data_entry")`,
	"has_field":           `has(payload.resolved_externally) && payload.resolved_externally == true`,
}
