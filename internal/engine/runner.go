package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sentinel-backend/internal/metadata"
)

// RuleResult is the outcome of running one or more conditional rules against
// a single property value.
type RuleResult struct {
	Pass   bool
	Errors []*ValidationError
}

// ruleContext carries the reporting context for one property evaluation:
// where the property lives (entity scope or HTTP section) and how failures
// should be collected.
type ruleContext struct {
	entity   string
	scope    string // actor / input / record; empty for flat validation
	section  string // http section; empty outside HTTP validation
	property string

	collect   bool
	verbose   bool
	overrides map[string]string

	conditions map[string]*metadata.Condition
}

func (rc ruleContext) path() []string {
	if rc.section != "" {
		return []string{rc.section, rc.property}
	}
	return []string{rc.property}
}

func (rc ruleContext) messageIDs(name metadata.CheckName, cv metadata.CheckValue) []string {
	switch {
	case rc.section != "":
		return MakeHTTPMessageIDs(rc.section, rc.property, name, cv)
	case rc.scope != "":
		return MakeEntityMessageIDs(rc.entity, rc.scope, rc.property, name, cv)
	default:
		return MakeCheckMessageIDs(name, cv)
	}
}

// RunConditionalRule evaluates the rule's condition gate, then its checks.
// A failed gate means the rule does not apply: the result passes with no
// errors, regardless of what the checks would say.
func (v *Validator) runConditionalRule(ctx context.Context, rule ConditionalRule, rc ruleContext, value any, env metadata.PredicateEnv) (RuleResult, error) {
	applies, err := v.EvaluateConditions(ctx, rule.Conditions, rule.Quantifier, rc.conditions, env)
	if err != nil {
		return RuleResult{}, err
	}
	if !applies {
		return RuleResult{Pass: true}, nil
	}

	result := RuleResult{Pass: true}
	for name, cv := range rule.Checks {
		outcome, err := v.RunCheck(ctx, rc.entity, rc.property, name, cv, value, env)
		if err != nil {
			return RuleResult{}, err
		}
		if outcome.Pass {
			continue
		}
		result.Pass = false
		if !rc.collect {
			continue
		}
		result.Errors = append(result.Errors, v.newValidationError(rc, name, cv, value, outcome))
	}
	return result, nil
}

// runConditionalRules fans out all of a property's rules concurrently (their
// predicates may block) and merges pass (AND) and errors (concatenation).
// Error ordering across rules is best-effort, not contractual.
func (v *Validator) runConditionalRules(ctx context.Context, rules []ConditionalRule, rc ruleContext, value any, env metadata.PredicateEnv) (RuleResult, error) {
	if len(rules) == 1 {
		return v.runConditionalRule(ctx, rules[0], rc, value, env)
	}

	results := make([]RuleResult, len(rules))
	g, gctx := errgroup.WithContext(ctx)
	for i, rule := range rules {
		g.Go(func() error {
			res, err := v.runConditionalRule(gctx, rule, rc, value, env)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RuleResult{}, err
	}

	merged := RuleResult{Pass: true}
	for _, res := range results {
		merged.Pass = merged.Pass && res.Pass
		merged.Errors = append(merged.Errors, res.Errors...)
	}
	return merged, nil
}

func (v *Validator) newValidationError(rc ruleContext, name metadata.CheckName, cv metadata.CheckValue, value any, outcome CheckOutcome) *ValidationError {
	e := &ValidationError{
		MessageIDs:      rc.messageIDs(name, cv),
		Path:            rc.path(),
		Expected:        &Expectation{Check: name, Value: cv.Value},
		CustomMessage:   cv.Message,
		CustomMessageID: cv.MessageID,
	}
	if rc.verbose {
		// Raw received values can leak sensitive input; only verbose runs
		// carry them.
		e.Received = &Received{Raw: value, Refined: outcome.Refined}
	}
	e.Message = ResolveMessage(e, rc.overrides)
	return e
}
