package applications

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// RuleEvaluator runs the platform instant-apply rule, a CEL expression over the `ctx` map.
// Compiled programs are cached by expression text.
type RuleEvaluator struct {
	env   *cel.Env
	cache sync.Map
}

func NewRuleEvaluator() (*RuleEvaluator, error) {
	env, err := cel.NewEnv(cel.Variable("ctx", cel.MapType(cel.StringType, cel.DynType)))
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	return &RuleEvaluator{env: env}, nil
}

// Compile validates expr and caches it; used at startup so a bad rule fails fast.
func (r *RuleEvaluator) Compile(expr string) error {
	_, err := r.program(expr)
	return err
}

// Eval returns true for an empty rule.
func (r *RuleEvaluator) Eval(expr string, vars map[string]any) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	program, err := r.program(expr)
	if err != nil {
		return false, err
	}
	out, _, err := program.Eval(map[string]any{"ctx": vars})
	if err != nil {
		return false, fmt.Errorf("evaluate rule: %w", err)
	}
	v, ok := out.Value().(bool)
	if !ok {
		return false, errors.New("rule did not evaluate to a bool")
	}
	return v, nil
}

func (r *RuleEvaluator) program(expr string) (cel.Program, error) {
	expr = strings.TrimSpace(expr)
	if cached, ok := r.cache.Load(expr); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := r.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, errors.New("rule output type must be bool")
	}
	program, err := r.env.Program(ast)
	if err != nil {
		return nil, err
	}
	r.cache.Store(expr, program)
	return program, nil
}
