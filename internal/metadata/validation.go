package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidOperations is returned when a rule's "operations" is neither the
// list syntax nor the map syntax.
var ErrInvalidOperations = errors.New("invalid operations definition")

// CheckName identifies one primitive validation in the closed vocabulary.
type CheckName string

const (
	CheckRequired  CheckName = "required"
	CheckMinLength CheckName = "minLength"
	CheckMaxLength CheckName = "maxLength"
	CheckPattern   CheckName = "pattern"
	CheckDatatype  CheckName = "datatype"
	CheckEq        CheckName = "eq"
	CheckNeq       CheckName = "neq"
	CheckGt        CheckName = "gt"
	CheckGte       CheckName = "gte"
	CheckLt        CheckName = "lt"
	CheckLte       CheckName = "lte"
	CheckInList    CheckName = "inList"
	CheckNotInList CheckName = "notInList"
	CheckUnique    CheckName = "unique"
	CheckCustom    CheckName = "custom"
)

var knownChecks = map[CheckName]bool{
	CheckRequired:  true,
	CheckMinLength: true,
	CheckMaxLength: true,
	CheckPattern:   true,
	CheckDatatype:  true,
	CheckEq:        true,
	CheckNeq:       true,
	CheckGt:        true,
	CheckGte:       true,
	CheckLt:        true,
	CheckLte:       true,
	CheckInList:    true,
	CheckNotInList: true,
	CheckUnique:    true,
	CheckCustom:    true,
}

// KnownCheck reports whether name is part of the check vocabulary.
func KnownCheck(name CheckName) bool {
	return knownChecks[name]
}

// CheckValue is the configured value of a check. Exactly one wrapper form
// applies at a time: a bare value, a value with an override message or
// message id, or a value whose built-in semantics are replaced by a
// predicate (declared as an expr source, or set directly in code).
type CheckValue struct {
	Value     any
	Message   string
	MessageID string

	// Expr is a declarative predicate source, compiled into Validator at
	// load time.
	Expr string

	// Validator replaces the built-in check semantics when set.
	Validator Predicate
}

var checkWrapperKeys = []string{"value", "message", "messageId", "expr"}

// UnmarshalJSON accepts either a bare JSON value or a wrapper object
// carrying value, message, messageId and/or expr.
func (cv *CheckValue) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		wrapped := false
		for _, key := range checkWrapperKeys {
			if _, ok := probe[key]; ok {
				wrapped = true
				break
			}
		}
		if wrapped {
			var w struct {
				Value     any    `json:"value"`
				Message   string `json:"message"`
				MessageID string `json:"messageId"`
				Expr      string `json:"expr"`
			}
			if err := json.Unmarshal(data, &w); err != nil {
				return err
			}
			cv.Value = w.Value
			cv.Message = w.Message
			cv.MessageID = w.MessageID
			cv.Expr = w.Expr
			return nil
		}
	}
	return json.Unmarshal(data, &cv.Value)
}

// Checks maps check names to their configured values for one property.
type Checks map[CheckName]CheckValue

// CheckMap is a flat validation spec: property name to check set. It is the
// shape used by conditions and by non-conditional (flat) validation.
type CheckMap map[string]Checks

// Rule is an unordered set of checks applied to one property, optionally
// restricted to named operations. A rule with no operations applies to every
// operation, unconditionally.
type Rule struct {
	Checks     Checks
	Operations *Operations
}

// UnmarshalJSON decodes a rule object: every key is a check name except the
// reserved "operations" key.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("rule must be a JSON object: %w", err)
	}

	r.Checks = make(Checks, len(raw))
	for key, val := range raw {
		if key == "operations" {
			var ops Operations
			if err := json.Unmarshal(val, &ops); err != nil {
				return err
			}
			r.Operations = &ops
			continue
		}

		name := CheckName(key)
		if !KnownCheck(name) {
			return fmt.Errorf("unknown check %q", key)
		}
		var cv CheckValue
		if err := json.Unmarshal(val, &cv); err != nil {
			return fmt.Errorf("check %s: %w", key, err)
		}
		r.Checks[name] = cv
	}
	return nil
}

// Quantifier tells how multiple named conditions combine into one gate.
type Quantifier string

const (
	QuantifierAll  Quantifier = "all"
	QuantifierAny  Quantifier = "any"
	QuantifierNone Quantifier = "none"
)

// ParseQuantifier validates a quantifier string. Empty defaults to "all".
func ParseQuantifier(s string) (Quantifier, error) {
	switch Quantifier(s) {
	case "":
		return QuantifierAll, nil
	case QuantifierAll, QuantifierAny, QuantifierNone:
		return Quantifier(s), nil
	default:
		return "", fmt.Errorf("unknown quantifier %q", s)
	}
}

// OperationEntry is one normalized applicability entry: the rule applies to
// Op (every operation for "*"), gated by Conditions combined with Scope.
type OperationEntry struct {
	Op         string
	Conditions []string
	Scope      Quantifier
}

// Operations restricts a rule to named operations. Two equivalent authoring
// syntaxes are accepted and normalized at decode time:
//
//	list: ["create", "*", ["update", ["isOwner"], "any"]]
//	map:  {"update": [{"conditions": ["isOwner"], "scope": "any"}]}
type Operations struct {
	Entries []OperationEntry
}

type operationDescriptor struct {
	Conditions []string `json:"conditions"`
	Scope      string   `json:"scope"`
}

func (o *Operations) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err == nil {
		return o.decodeList(list)
	}

	var byOp map[string][]operationDescriptor
	if err := json.Unmarshal(data, &byOp); err == nil {
		return o.decodeMap(byOp)
	}

	return ErrInvalidOperations
}

func (o *Operations) decodeList(list []json.RawMessage) error {
	o.Entries = make([]OperationEntry, 0, len(list))
	for _, raw := range list {
		var name string
		if err := json.Unmarshal(raw, &name); err == nil {
			o.Entries = append(o.Entries, OperationEntry{Op: name, Scope: QuantifierAll})
			continue
		}

		// Tuple form: [operation, conditionNames, scope?]
		var tuple []json.RawMessage
		if err := json.Unmarshal(raw, &tuple); err != nil || len(tuple) < 2 || len(tuple) > 3 {
			return ErrInvalidOperations
		}

		var entry OperationEntry
		if err := json.Unmarshal(tuple[0], &entry.Op); err != nil {
			return ErrInvalidOperations
		}
		if err := json.Unmarshal(tuple[1], &entry.Conditions); err != nil {
			return ErrInvalidOperations
		}
		scope := ""
		if len(tuple) == 3 {
			if err := json.Unmarshal(tuple[2], &scope); err != nil {
				return ErrInvalidOperations
			}
		}
		q, err := ParseQuantifier(scope)
		if err != nil {
			return err
		}
		entry.Scope = q
		o.Entries = append(o.Entries, entry)
	}
	return nil
}

func (o *Operations) decodeMap(byOp map[string][]operationDescriptor) error {
	// Sort operation names so decoding is deterministic.
	ops := make([]string, 0, len(byOp))
	for op := range byOp {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		descriptors := byOp[op]
		if len(descriptors) == 0 {
			o.Entries = append(o.Entries, OperationEntry{Op: op, Scope: QuantifierAll})
			continue
		}
		for _, d := range descriptors {
			q, err := ParseQuantifier(d.Scope)
			if err != nil {
				return err
			}
			o.Entries = append(o.Entries, OperationEntry{Op: op, Conditions: d.Conditions, Scope: q})
		}
	}
	return nil
}
