package engine

import (
	"context"
	"errors"
	"testing"

	"sentinel-backend/internal/metadata"
)

func TestRunConditionalRule_GateSkips(t *testing.T) {
	v := NewValidator()
	rc := ruleContext{
		entity:   "project",
		scope:    "input",
		property: "budget",
		collect:  true,
		conditions: map[string]*metadata.Condition{
			"isAdmin": adminCondition(),
		},
	}
	rule := ConditionalRule{
		Checks:     metadata.Checks{metadata.CheckGt: {Value: float64(0)}},
		Conditions: []string{"isAdmin"},
		Quantifier: metadata.QuantifierAll,
	}

	// Gate fails: the rule does not apply, even to a failing value.
	env := metadata.PredicateEnv{Actor: map[string]any{"role": "viewer"}}
	res, err := v.runConditionalRule(context.Background(), rule, rc, float64(-5), env)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pass || len(res.Errors) != 0 {
		t.Fatalf("expected skipped rule to pass, got %+v", res)
	}

	// Gate holds: the checks run and fail.
	env = metadata.PredicateEnv{Actor: map[string]any{"role": "admin"}}
	res, err = v.runConditionalRule(context.Background(), rule, rc, float64(-5), env)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pass || len(res.Errors) != 1 {
		t.Fatalf("expected 1 error for gated fail, got %+v", res)
	}
}

func TestRunConditionalRule_CollectOff(t *testing.T) {
	v := NewValidator()
	rc := ruleContext{entity: "project", scope: "input", property: "budget"}
	rule := ConditionalRule{Checks: metadata.Checks{metadata.CheckGt: {Value: float64(0)}}}

	res, err := v.runConditionalRule(context.Background(), rule, rc, float64(-5), metadata.PredicateEnv{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Pass {
		t.Fatal("expected fail")
	}
	if len(res.Errors) != 0 {
		t.Fatalf("expected no collected errors, got %d", len(res.Errors))
	}
}

func TestRunConditionalRules_Merge(t *testing.T) {
	v := NewValidator()
	rc := ruleContext{
		entity:   "user",
		scope:    "input",
		property: "password",
		collect:  true,
		conditions: map[string]*metadata.Condition{
			"isAdmin": adminCondition(),
		},
	}

	// One gated-away rule, one failing rule: failure wins.
	rules := []ConditionalRule{
		{
			Checks:     metadata.Checks{metadata.CheckMinLength: {Value: float64(20)}},
			Conditions: []string{"isAdmin"},
		},
		{
			Checks: metadata.Checks{metadata.CheckMinLength: {Value: float64(8)}},
		},
	}

	env := metadata.PredicateEnv{Actor: map[string]any{"role": "viewer"}}
	res, err := v.runConditionalRules(context.Background(), rules, rc, "short", env)
	if err != nil {
		t.Fatal(err)
	}
	if res.Pass {
		t.Fatal("expected merged fail")
	}
	if len(res.Errors) != 1 {
		t.Fatalf("expected 1 error from the ungated rule, got %d", len(res.Errors))
	}

	// Both rules satisfied.
	res, err = v.runConditionalRules(context.Background(), rules, rc, "long enough secret", env)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Pass || len(res.Errors) != 0 {
		t.Fatalf("expected merged pass, got %+v", res)
	}
}

func TestRunConditionalRules_PredicateErrorAborts(t *testing.T) {
	v := NewValidator()
	boom := errors.New("oracle down")
	rules := []ConditionalRule{
		{Checks: metadata.Checks{metadata.CheckRequired: {Value: true}}},
		{Checks: metadata.Checks{metadata.CheckCustom: {
			Validator: func(ctx context.Context, value any, env metadata.PredicateEnv) (bool, error) {
				return false, boom
			},
		}}},
	}

	_, err := v.runConditionalRules(context.Background(), rules,
		ruleContext{entity: "x", scope: "input", property: "p"}, "v", metadata.PredicateEnv{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected predicate error to abort the run, got %v", err)
	}
}

func TestNewValidationError_VerboseGatesReceived(t *testing.T) {
	v := NewValidator()
	cv := metadata.CheckValue{Value: float64(40)}

	rc := ruleContext{entity: "person", scope: "input", property: "age", collect: true}
	e := v.newValidationError(rc, metadata.CheckGt, cv, float64(30), CheckOutcome{})
	if e.Received != nil {
		t.Fatal("expected no received tuple without verbose")
	}
	if e.Expected == nil || e.Expected.Check != metadata.CheckGt || e.Expected.Value != float64(40) {
		t.Fatalf("expected expectation tuple, got %+v", e.Expected)
	}

	rc.verbose = true
	e = v.newValidationError(rc, metadata.CheckGt, cv, float64(30), CheckOutcome{Refined: float64(30)})
	if e.Received == nil || e.Received.Raw != float64(30) {
		t.Fatalf("expected received tuple in verbose mode, got %+v", e.Received)
	}
}

func TestValidationError_MessageIDOrder(t *testing.T) {
	v := NewValidator()
	cv := metadata.CheckValue{Value: "admin", MessageID: "custom.id"}
	rc := ruleContext{entity: "test", scope: "actor", property: "role", collect: true}

	e := v.newValidationError(rc, metadata.CheckEq, cv, "viewer", CheckOutcome{})
	want := []string{
		"validation.eq",
		"validation.eq.admin",
		"validation.entity.test.actor.role.eq",
		"validation.entity.test.actor.role.eq.admin",
		"custom.id",
	}
	if len(e.MessageIDs) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), e.MessageIDs)
	}
	for i, id := range want {
		if e.MessageIDs[i] != id {
			t.Fatalf("id %d: expected %q, got %q", i, id, e.MessageIDs[i])
		}
	}
}
