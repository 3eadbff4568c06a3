package expect

import (
	"fmt"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/sophialabs/perfaudit/internal/domain/smoke"
	"github.com/sophialabs/perfaudit/internal/infrastructure/ports"
)

var _ ports.ExpectationEvaluator = (*Evaluator)(nil)

// Evaluator selects a value with JSONPath and checks it with an Expr
// assertion in which the selected value is bound to `value`.
type Evaluator struct {
	mu       sync.Mutex
	programs map[string]*vm.Program
}

// NewEvaluator creates an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

// assertEnv defines the environment available to assertions.
type assertEnv struct {
	Value   any                      `expr:"value"`
	Approx  func(any, any, any) bool `expr:"approx"`
	Between func(any, any, any) bool `expr:"between"`
	ToJSON  func(any) string         `expr:"toJSON"`
	IsNull  func(any) bool           `expr:"isNull"`
}

// Evaluate never fails: selection, compile and runtime errors are reported
// on the returned check, which then does not pass.
func (e *Evaluator) Evaluate(report any, exp smoke.Expectation) smoke.Check {
	check := smoke.Check{Path: exp.Path, Assert: exp.Assert}

	value, err := jsonpath.Get(exp.Path, report)
	if err != nil {
		check.Error = fmt.Sprintf("failed to select %s: %v", exp.Path, err)
		return check
	}
	check.Value = value

	program, err := e.compile(exp.Assert)
	if err != nil {
		check.Error = err.Error()
		return check
	}

	out, err := expr.Run(program, newEnv(value))
	if err != nil {
		check.Error = fmt.Sprintf("assertion evaluation failed: %v", err)
		return check
	}
	passed, ok := out.(bool)
	if !ok {
		check.Error = fmt.Sprintf("assertion %q returned %T, want bool", exp.Assert, out)
		return check
	}
	check.Passed = passed
	return check
}

func (e *Evaluator) compile(source string) (*vm.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.programs[source]; ok {
		return p, nil
	}
	p, err := expr.Compile(source, expr.Env(assertEnv{}))
	if err != nil {
		return nil, fmt.Errorf("failed to compile assertion %q: %w", source, err)
	}
	e.programs[source] = p
	return p, nil
}

func newEnv(value any) assertEnv {
	return assertEnv{
		Value:   value,
		Approx:  approx,
		Between: between,
		ToJSON:  toJSONString,
		IsNull:  func(v any) bool { return v == nil },
	}
}
