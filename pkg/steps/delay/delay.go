// Package delay implements the delay step interpreter. Declared durations
// use the compact `<n><unit>` grammar (10s, 30m, 2h, 7d) and are capped by a
// configurable ceiling so a long delay cannot pin an execution for days.
package delay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"github.com/mundotango/compas/pkg/models"
	"github.com/mundotango/compas/pkg/protocol"
)

// DefaultMaxDelay bounds how long a delay step actually sleeps.
const DefaultMaxDelay = 5 * time.Second

var ErrInvalidDelay = errors.New("invalid delay specification")

var delayPattern = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDelay parses the `<n><unit>` delay grammar.
func ParseDelay(spec string) (time.Duration, error) {
	match := delayPattern.FindStringSubmatch(spec)
	if match == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, spec)
	}

	value, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelay, spec)
	}

	switch match[2] {
	case "s":
		return time.Duration(value) * time.Second, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	default:
		return time.Duration(value) * 24 * time.Hour, nil
	}
}

type Interpreter struct {
	maxDelay time.Duration
}

func NewInterpreter(maxDelay time.Duration) *Interpreter {
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	return &Interpreter{maxDelay: maxDelay}
}

func (i *Interpreter) Execute(ctx context.Context, execution *models.WorkflowExecution, step *models.WorkflowStep, logger *slog.Logger) (*protocol.StepResult, error) {
	spec, _ := step.Config["delay"].(string)
	if spec == "" {
		return nil, fmt.Errorf("%w: missing 'delay'", ErrInvalidDelay)
	}

	requested, err := ParseDelay(spec)
	if err != nil {
		return nil, err
	}

	actual := requested
	if actual > i.maxDelay {
		actual = i.maxDelay
	}

	logger.Info("Delaying execution", "requested", requested, "actual", actual)

	if actual > 0 {
		timer := time.NewTimer(actual)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return &protocol.StepResult{
		Output: map[string]any{
			"delayed":   true,
			"requested": spec,
			"actual":    actual.String(),
		},
	}, nil
}
