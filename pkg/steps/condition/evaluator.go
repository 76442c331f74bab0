package condition

import (
	"context"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExprEvaluator evaluates boolean expressions with expr-lang against the
// execution context. Compiled programs are cached per expression. Undefined
// variables evaluate to nil so checks like `title != nil` work on sparse
// contexts.
type ExprEvaluator struct {
	mu    sync.Mutex
	cache map[string]*vm.Program
}

func NewExprEvaluator() *ExprEvaluator {
	return &ExprEvaluator{
		cache: make(map[string]*vm.Program),
	}
}

func (e *ExprEvaluator) Evaluate(ctx context.Context, expression string, env map[string]any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	program, err := e.compile(expression)
	if err != nil {
		return false, fmt.Errorf("invalid condition expression %q: %w", expression, err)
	}

	if env == nil {
		env = map[string]any{}
	}

	out, err := vm.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate condition %q: %w", expression, err)
	}

	result, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q did not evaluate to a boolean (got %T)", expression, out)
	}

	return result, nil
}

func (e *ExprEvaluator) compile(expression string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if program, ok := e.cache[expression]; ok {
		return program, nil
	}

	program, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.cache[expression] = program

	return program, nil
}
