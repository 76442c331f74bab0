// Package condition implements the condition step interpreter: a boolean
// gate over the execution context. A false result is a step failure, which
// is what routes the execution down the step's onError edge.
package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

var ErrConditionNotMet = errors.New("condition not met")

// NamedChecks maps the check names used by workflow definitions to the
// expressions that implement them. Unknown check names pass.
func NamedChecks() map[string]string {
	return map[string]string{
		"has_title":               `title != nil && title != ""`,
		"has_date":                `date != nil && date != ""`,
		"has_location":            `location != nil && location != ""`,
		"has_valid_organizer":     `organizer_id != nil && organizer_id != ""`,
		"organizer_verified":      `organizer_verified == true`,
		"venue_known":             `venue_known == true`,
		"content_appropriate":     `content_appropriate != false`,
		"check_duplicate_events":  `duplicate_score == nil || duplicate_score < 0.8`,
	}
}

type Interpreter struct {
	evaluator protocol.ConditionEvaluator
	checks    map[string]string
}

func NewInterpreter(evaluator protocol.ConditionEvaluator, checks map[string]string) *Interpreter {
	if checks == nil {
		checks = NamedChecks()
	}

	return &Interpreter{
		evaluator: evaluator,
		checks:    checks,
	}
}

// Execute evaluates either a single `condition` expression or an AND-list of
// named `conditions`. An empty config passes.
func (i *Interpreter) Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	logger = logger.With("step_type", "condition")

	if expression, ok := step.Config["condition"].(string); ok && expression != "" {
		passed, err := i.evaluator.Evaluate(ctx, expression, execution.Context)
		if err != nil {
			return nil, err
		}

		if !passed {
			return nil, fmt.Errorf("%w: %s", ErrConditionNotMet, expression)
		}

		return &protocol.StepResult{
			Output: map[string]any{"condition_passed": true},
		}, nil
	}

	names := checkNames(step.Config["conditions"])
	for _, name := range names {
		expression, known := i.checks[name]
		if !known {
			logger.Debug("Unknown named check, passing by default", "check", name)

			continue
		}

		passed, err := i.evaluator.Evaluate(ctx, expression, execution.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to evaluate check %q: %w", name, err)
		}

		if !passed {
			return nil, fmt.Errorf("%w: check %q", ErrConditionNotMet, name)
		}
	}

	return &protocol.StepResult{
		Output: map[string]any{"condition_passed": true, "checks_evaluated": len(names)},
	}, nil
}

func checkNames(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		if names, ok := raw.([]string); ok {
			return names
		}

		return nil
	}

	names := make([]string, 0, len(items))

	for _, item := range items {
		if name, ok := item.(string); ok {
			names = append(names, name)
		}
	}

	return names
}
