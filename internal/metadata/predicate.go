package metadata

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
)

// PredicateEnv carries the surrounding validation scopes into a predicate.
type PredicateEnv struct {
	Input  map[string]any
	Record map[string]any
	Actor  map[string]any
}

// Predicate replaces a check's built-in semantics. It receives the value
// under validation and the surrounding scopes, and reports whether the
// check passes. Errors propagate to the caller of the validation run as-is.
type Predicate func(ctx context.Context, value any, env PredicateEnv) (bool, error)

// CompileExprPredicate compiles an expr source into a Predicate. The
// expression sees value, input, record and actor and must evaluate to bool.
func CompileExprPredicate(src string) (Predicate, error) {
	prog, err := expr.Compile(src, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile predicate %q: %w", src, err)
	}

	return func(ctx context.Context, value any, env PredicateEnv) (bool, error) {
		out, err := expr.Run(prog, map[string]any{
			"value":  value,
			"input":  orEmpty(env.Input),
			"record": orEmpty(env.Record),
			"actor":  orEmpty(env.Actor),
		})
		if err != nil {
			return false, fmt.Errorf("run predicate: %w", err)
		}
		pass, ok := out.(bool)
		return ok && pass, nil
	}, nil
}

// CompilePredicates walks every check in the spec and compiles expr sources
// into validators. Called once when a spec is loaded; a compile failure
// means the spec itself is broken.
func (ev *EntityValidations) CompilePredicates() error {
	for _, rules := range []map[string][]Rule{ev.Actor, ev.Input, ev.Record} {
		for prop, list := range rules {
			for i := range list {
				if err := compileChecks(list[i].Checks); err != nil {
					return fmt.Errorf("property %s: %w", prop, err)
				}
			}
		}
	}

	for name, cond := range ev.Conditions {
		if cond == nil {
			continue
		}
		for _, cm := range []CheckMap{cond.Actor, cond.Input, cond.Record} {
			for prop, checks := range cm {
				if err := compileChecks(checks); err != nil {
					return fmt.Errorf("condition %s, property %s: %w", name, prop, err)
				}
			}
		}
	}
	return nil
}

func compileChecks(checks Checks) error {
	for name, cv := range checks {
		if cv.Expr == "" || cv.Validator != nil {
			continue
		}
		p, err := CompileExprPredicate(cv.Expr)
		if err != nil {
			return fmt.Errorf("check %s: %w", name, err)
		}
		cv.Validator = p
		checks[name] = cv
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
