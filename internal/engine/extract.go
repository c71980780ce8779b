package engine

import (
	"log"

	"sentinel-backend/internal/metadata"
)

// ConditionalRule is a rule resolved for one operation: its checks plus the
// condition gate that must hold before the checks apply.
type ConditionalRule struct {
	Checks     metadata.Checks
	Conditions []string
	Quantifier metadata.Quantifier
}

// OperationRules is the slice of an entity validation spec that applies to
// one operation, plus the condition set its gates reference.
type OperationRules struct {
	Actor  map[string][]ConditionalRule
	Input  map[string][]ConditionalRule
	Record map[string][]ConditionalRule

	Conditions map[string]*metadata.Condition
}

// ExtractOperationRules filters an entity validation spec down to the rules
// applicable to one operation. Both authoring syntaxes arrive here already
// normalized into operation entries; a rule without operations applies to
// every operation, unconditionally.
func ExtractOperationRules(operation string, ev *metadata.EntityValidations) *OperationRules {
	return &OperationRules{
		Actor:      extractScope(operation, "actor", ev.Actor),
		Input:      extractScope(operation, "input", ev.Input),
		Record:     extractScope(operation, "record", ev.Record),
		Conditions: ev.Conditions,
	}
}

func extractScope(operation, scope string, rules map[string][]metadata.Rule) map[string][]ConditionalRule {
	if len(rules) == 0 {
		return nil
	}

	out := make(map[string][]ConditionalRule, len(rules))
	for property, list := range rules {
		var applicable []ConditionalRule
		for _, rule := range list {
			applicable = append(applicable, applyRule(operation, rule)...)
		}
		if len(applicable) == 0 {
			log.Printf("No applicable %s rule for property %q on operation %q", scope, property, operation)
			continue
		}
		out[property] = applicable
	}
	return out
}

func applyRule(operation string, r metadata.Rule) []ConditionalRule {
	if r.Operations == nil {
		// No operations restriction: same as ["*"].
		return []ConditionalRule{{Checks: r.Checks, Quantifier: metadata.QuantifierAll}}
	}

	var out []ConditionalRule
	for _, entry := range r.Operations.Entries {
		if entry.Op != "*" && entry.Op != operation {
			continue
		}
		out = append(out, ConditionalRule{
			Checks:     r.Checks,
			Conditions: entry.Conditions,
			Quantifier: entry.Scope,
		})
	}
	return out
}
