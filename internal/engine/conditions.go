package engine

import (
	"context"
	"fmt"

	"sentinel-backend/internal/metadata"
)

// TestCondition reports whether a condition holds for the given scopes. Each
// declared scope runs as a flat validation with error collection suppressed;
// scopes are checked actor, input, record in order, stopping at the first
// failing one.
func (v *Validator) TestCondition(ctx context.Context, cond *metadata.Condition, env metadata.PredicateEnv) (bool, error) {
	scopes := []struct {
		rules metadata.CheckMap
		data  map[string]any
	}{
		{cond.Actor, env.Actor},
		{cond.Input, env.Input},
		{cond.Record, env.Record},
	}

	for _, s := range scopes {
		if len(s.rules) == 0 {
			continue
		}
		pass, _, err := v.runFlat(ctx, flatRun{
			rules: s.rules,
			data:  s.data,
			env:   env,
		})
		if err != nil {
			return false, err
		}
		if !pass {
			return false, nil
		}
	}
	return true, nil
}

// EvaluateConditions combines named conditions under a quantifier:
//
//	all:  every condition holds (default; short-circuits on first failure)
//	any:  at least one condition holds (short-circuits on first success)
//	none: no condition holds (fails on the first that does)
//
// An empty name list is trivially satisfied. A name missing from the
// condition set is a configuration error.
func (v *Validator) EvaluateConditions(ctx context.Context, names []string, quantifier metadata.Quantifier, conditions map[string]*metadata.Condition, env metadata.PredicateEnv) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	if quantifier == "" {
		quantifier = metadata.QuantifierAll
	}

	for _, name := range names {
		cond := conditions[name]
		if cond == nil {
			return false, fmt.Errorf("%w: %q", ErrUnknownCondition, name)
		}

		holds, err := v.TestCondition(ctx, cond, env)
		if err != nil {
			return false, err
		}

		switch quantifier {
		case metadata.QuantifierAll:
			if !holds {
				return false, nil
			}
		case metadata.QuantifierAny:
			if holds {
				return true, nil
			}
		case metadata.QuantifierNone:
			if holds {
				return false, nil
			}
		default:
			return false, fmt.Errorf("unknown quantifier %q", quantifier)
		}
	}

	// all: every condition held; any: none did; none: none did.
	return quantifier != metadata.QuantifierAny, nil
}
