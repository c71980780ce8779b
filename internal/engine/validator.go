package engine

import (
	"context"

	"sentinel-backend/internal/metadata"
)

// UniquenessOracle answers whether a value is unique among the persisted
// records of an entity. Integrators wire one in; the unique check fails fast
// without it.
type UniquenessOracle interface {
	IsUnique(ctx context.Context, entity, property string, value any) (bool, error)
}

// Validator evaluates validation specs against actor/input/record data. It
// never mutates its inputs and is safe for concurrent use.
type Validator struct {
	oracle   UniquenessOracle
	messages map[string]string
}

type Option func(*Validator)

// WithUniquenessOracle wires the backing store consulted by unique checks.
func WithUniquenessOracle(o UniquenessOracle) Option {
	return func(v *Validator) { v.oracle = o }
}

// WithMessageOverrides sets message overrides applied to every run.
// Per-call overrides take precedence over these.
func WithMessageOverrides(m map[string]string) Option {
	return func(v *Validator) { v.messages = m }
}

func NewValidator(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// EntityValidationParams names the arguments of an entity validation run.
// Input, Record and Actor may each be nil: rules then see absent values.
type EntityValidationParams struct {
	OperationName string
	EntityName    string
	Validations   *metadata.EntityValidations

	Input  map[string]any
	Record map[string]any
	Actor  map[string]any

	// CollectErrors controls whether ValidationError objects are built.
	// Pass is computed either way.
	CollectErrors bool

	// VerboseErrors includes received-value tuples in collected errors.
	VerboseErrors bool

	OverriddenMessages map[string]string
}

// ValidateEntity runs the operation-scoped slice of an entity validation
// spec against the given scopes and aggregates per-scope error maps.
func (v *Validator) ValidateEntity(ctx context.Context, p EntityValidationParams) (*ValidationResult, error) {
	extracted := ExtractOperationRules(p.OperationName, p.Validations)

	entity := p.EntityName
	if entity == "" {
		entity = p.Validations.Entity
	}

	env := metadata.PredicateEnv{Input: p.Input, Record: p.Record, Actor: p.Actor}
	overrides := v.mergeOverrides(p.OverriddenMessages)

	result := &ValidationResult{Pass: true}
	errs := &ScopeErrors{}

	scopes := []struct {
		name   string
		rules  map[string][]ConditionalRule
		data   map[string]any
		bucket *ErrorMap
	}{
		{"actor", extracted.Actor, p.Actor, &errs.Actor},
		{"input", extracted.Input, p.Input, &errs.Input},
		{"record", extracted.Record, p.Record, &errs.Record},
	}

	for _, s := range scopes {
		for property, rules := range s.rules {
			rc := ruleContext{
				entity:     entity,
				scope:      s.name,
				property:   property,
				collect:    p.CollectErrors,
				verbose:    p.VerboseErrors,
				overrides:  overrides,
				conditions: extracted.Conditions,
			}
			res, err := v.runConditionalRules(ctx, rules, rc, s.data[property], env)
			if err != nil {
				return nil, err
			}
			result.Pass = result.Pass && res.Pass
			if len(res.Errors) > 0 {
				if *s.bucket == nil {
					*s.bucket = make(ErrorMap)
				}
				(*s.bucket)[property] = append((*s.bucket)[property], res.Errors...)
			}
		}
	}

	if !errs.empty() {
		result.Errors = errs
	}
	return result, nil
}

// ValidateInput runs a flat validation spec (no operations, no condition
// gates) against an input object. This is the building block HTTP request
// validation and condition self-testing both reuse.
func (v *Validator) ValidateInput(ctx context.Context, input map[string]any, rules metadata.CheckMap, collectErrors bool) (*InputValidationResult, error) {
	pass, errs, err := v.runFlat(ctx, flatRun{
		rules:     rules,
		data:      input,
		env:       metadata.PredicateEnv{Input: input},
		collect:   collectErrors,
		overrides: v.messages,
	})
	if err != nil {
		return nil, err
	}
	return &InputValidationResult{Pass: pass, Errors: errs}, nil
}

// flatRun parameterizes one flat validation pass.
type flatRun struct {
	rules metadata.CheckMap
	data  map[string]any
	env   metadata.PredicateEnv

	section string // set by HTTP validation for path prefixes and message ids
	entity  string

	collect   bool
	verbose   bool
	overrides map[string]string
}

func (v *Validator) runFlat(ctx context.Context, run flatRun) (bool, ErrorMap, error) {
	pass := true
	var errs ErrorMap

	for property, checks := range run.rules {
		rc := ruleContext{
			entity:    run.entity,
			section:   run.section,
			property:  property,
			collect:   run.collect,
			verbose:   run.verbose,
			overrides: run.overrides,
		}
		res, err := v.runConditionalRule(ctx, ConditionalRule{Checks: checks}, rc, run.data[property], run.env)
		if err != nil {
			return false, nil, err
		}
		pass = pass && res.Pass
		if len(res.Errors) > 0 {
			if errs == nil {
				errs = make(ErrorMap)
			}
			errs[property] = append(errs[property], res.Errors...)
		}
	}
	return pass, errs, nil
}

func (v *Validator) mergeOverrides(perCall map[string]string) map[string]string {
	if len(perCall) == 0 {
		return v.messages
	}
	if len(v.messages) == 0 {
		return perCall
	}
	merged := make(map[string]string, len(v.messages)+len(perCall))
	for id, msg := range v.messages {
		merged[id] = msg
	}
	for id, msg := range perCall {
		merged[id] = msg
	}
	return merged
}
