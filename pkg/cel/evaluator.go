package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"trialops/pkg/models"
)

// Evaluator compiles and runs suppression expressions against finding
// envelopes. Expressions see the finding's routing fields plus its payload.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("source", cel.StringType),
		cel.Variable("study_id", cel.StringType),
		cel.Variable("site_id", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("severity", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("occurred_at", cel.TimestampType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("suppression expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("suppression expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) EvaluateSuppression(ctx context.Context, expression string, finding *models.FindingEnvelope) (bool, error) {
	program, err := e.CompileExpression(expression)
	if err != nil {
		return false, err
	}

	return e.Run(ctx, program, finding)
}

func (e *Evaluator) Run(ctx context.Context, program cel.Program, finding *models.FindingEnvelope) (bool, error) {
	vars := map[string]interface{}{
		"id":          finding.ID,
		"source":      finding.Source,
		"study_id":    finding.StudyID,
		"site_id":     finding.SiteID,
		"category":    finding.Category,
		"severity":    finding.Severity,
		"title":       finding.Title,
		"occurred_at": finding.OccurredAt,
		"payload":     payloadOrEmpty(finding.Payload),
	}

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func payloadOrEmpty(payload map[string]interface{}) map[string]interface{} {
	if payload == nil {
		return map[string]interface{}{}
	}
	return payload
}
