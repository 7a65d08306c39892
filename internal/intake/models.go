package intake

import (
	celgo "github.com/google/cel-go/cel"

	"trialops/internal/rules"
)

// Decision is the intake outcome for one finding.
type Decision string

const (
	DecisionCreate   Decision = "create"
	DecisionSuppress Decision = "suppress"
)

// compiledRule pairs a stored suppression rule with its compiled CEL program
// so the hot path never re-parses expressions.
type compiledRule struct {
	rule    rules.SuppressionRule
	program celgo.Program
}
