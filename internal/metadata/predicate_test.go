package metadata

import (
	"context"
	"encoding/json"
	"testing"
)

func TestCompileExprPredicate(t *testing.T) {
	p, err := CompileExprPredicate(`value > 10 && actor.role == "admin"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	env := PredicateEnv{Actor: map[string]any{"role": "admin"}}

	// Should pass
	pass, err := p(context.Background(), 42, env)
	if err != nil || !pass {
		t.Fatalf("expected pass for 42/admin, got %v, %v", pass, err)
	}

	// Should fail: value too small
	pass, err = p(context.Background(), 5, env)
	if err != nil || pass {
		t.Fatalf("expected fail for 5, got %v, %v", pass, err)
	}

	// Should fail: wrong role
	pass, err = p(context.Background(), 42, PredicateEnv{Actor: map[string]any{"role": "viewer"}})
	if err != nil || pass {
		t.Fatalf("expected fail for viewer, got %v, %v", pass, err)
	}
}

func TestCompileExprPredicate_NilScopes(t *testing.T) {
	// Absent scopes appear as empty maps, not nils.
	p, err := CompileExprPredicate(`len(input) == 0 && len(record) == 0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	pass, err := p(context.Background(), nil, PredicateEnv{})
	if err != nil || !pass {
		t.Fatalf("expected pass for empty env, got %v, %v", pass, err)
	}
}

func TestCompileExprPredicate_BadSource(t *testing.T) {
	if _, err := CompileExprPredicate(`value >`); err == nil {
		t.Fatal("expected compile error for malformed source")
	}
	// Non-boolean result type is rejected at compile time.
	if _, err := CompileExprPredicate(`1 + 1`); err == nil {
		t.Fatal("expected compile error for non-bool expression")
	}
}

func TestCompilePredicates(t *testing.T) {
	raw := `{
		"input": {
			"discount": [{"custom": {"expr": "value <= record.maxDiscount"}}]
		},
		"conditions": {
			"isOwner": {"record": {"ownerId": {"custom": {"expr": "value == actor.id"}}}}
		}
	}`
	var ev EntityValidations
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal spec: %v", err)
	}
	if err := ev.CompilePredicates(); err != nil {
		t.Fatalf("compile predicates: %v", err)
	}

	cv := ev.Input["discount"][0].Checks[CheckCustom]
	if cv.Validator == nil {
		t.Fatal("expected compiled validator on rule check")
	}
	pass, err := cv.Validator(context.Background(), 10,
		PredicateEnv{Record: map[string]any{"maxDiscount": 20}})
	if err != nil || !pass {
		t.Fatalf("expected pass for 10<=20, got %v, %v", pass, err)
	}

	cond := ev.Condition("isOwner")
	if cond.Record["ownerId"][CheckCustom].Validator == nil {
		t.Fatal("expected compiled validator on condition check")
	}
}

func TestCompilePredicates_BadExpr(t *testing.T) {
	raw := `{"input": {"x": [{"custom": {"expr": "value &&"}}]}}`
	var ev EntityValidations
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		t.Fatalf("unmarshal spec: %v", err)
	}
	if err := ev.CompilePredicates(); err == nil {
		t.Fatal("expected compile error for bad expression")
	}
}
