package condition

import (
	"context"
	"sort"

	"github.com/google/cel-go/cel"

	"github.com/flowgent/flowgent/pkg/logger"
)

// Evaluate runs a boolean pass-condition expression against an isolated scope
// whose only bindings are the context's own keys. Every failure mode, from a
// syntax error to an unbound identifier to a non-boolean result, evaluates to
// false: a malformed condition fails the pass check instead of crashing the
// flow.
//
// CEL gives us equality, comparison, and/or, literals, and identifier lookup
// without any dynamic code execution surface.
func Evaluate(ctx context.Context, expression string, bindings map[string]any) bool {
	log := logger.FromContext(ctx)
	if expression == "" {
		return false
	}

	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	opts := make([]cel.EnvOption, 0, len(keys))
	for _, key := range keys {
		opts = append(opts, cel.Variable(key, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		log.Debug("Condition environment setup failed", "error", err)
		return false
	}

	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		log.Debug("Condition failed to compile", "expression", expression, "error", issues.Err())
		return false
	}
	prg, err := env.Program(ast)
	if err != nil {
		log.Debug("Condition program construction failed", "expression", expression, "error", err)
		return false
	}
	out, _, err := prg.Eval(bindings)
	if err != nil {
		log.Debug("Condition evaluation failed", "expression", expression, "error", err)
		return false
	}
	result, ok := out.Value().(bool)
	if !ok {
		log.Debug("Condition did not evaluate to a boolean", "expression", expression)
		return false
	}
	return result
}
