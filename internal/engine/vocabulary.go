package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/url"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"sentinel-backend/internal/metadata"
)

// CheckOutcome is the result of one primitive check evaluation. Refined
// carries the coerced form of the value when a check produces one (e.g. the
// parsed number for datatype "number").
type CheckOutcome struct {
	Pass    bool
	Refined any
}

// RunCheck evaluates one primitive check against a value. A configured
// predicate replaces the built-in semantics for any check name. Predicate
// errors propagate to the caller as-is.
func (v *Validator) RunCheck(ctx context.Context, entity, property string, name metadata.CheckName, cv metadata.CheckValue, value any, env metadata.PredicateEnv) (CheckOutcome, error) {
	if cv.Validator != nil {
		pass, err := cv.Validator(ctx, value, env)
		if err != nil {
			return CheckOutcome{}, err
		}
		return CheckOutcome{Pass: pass}, nil
	}

	switch name {
	case metadata.CheckCustom:
		// A custom check without a predicate is a misconfiguration; fail
		// closed rather than guess its semantics.
		log.Printf("WARN: custom check on %s.%s has no predicate, failing closed", entity, property)
		return CheckOutcome{Pass: false}, nil

	case metadata.CheckUnique:
		if enforce, ok := cv.Value.(bool); ok && !enforce {
			return CheckOutcome{Pass: true}, nil
		}
		if v.oracle == nil {
			return CheckOutcome{}, fmt.Errorf("%w (entity %s, property %s)", ErrNoUniquenessOracle, entity, property)
		}
		unique, err := v.oracle.IsUnique(ctx, entity, property, value)
		if err != nil {
			return CheckOutcome{}, fmt.Errorf("uniqueness check %s.%s: %w", entity, property, err)
		}
		return CheckOutcome{Pass: unique}, nil
	}

	eval, ok := builtinChecks[name]
	if !ok {
		return CheckOutcome{}, fmt.Errorf("unknown check %q", name)
	}
	return eval(cv.Value, value), nil
}

type checkFunc func(cfg any, value any) CheckOutcome

var builtinChecks = map[metadata.CheckName]checkFunc{
	metadata.CheckRequired:  checkRequired,
	metadata.CheckMinLength: checkMinLength,
	metadata.CheckMaxLength: checkMaxLength,
	metadata.CheckPattern:   checkPattern,
	metadata.CheckDatatype:  checkDatatype,
	metadata.CheckEq:        checkEq,
	metadata.CheckNeq:       checkNeq,
	metadata.CheckGt:        orderingCheck(func(c int) bool { return c > 0 }),
	metadata.CheckGte:       orderingCheck(func(c int) bool { return c >= 0 }),
	metadata.CheckLt:        orderingCheck(func(c int) bool { return c < 0 }),
	metadata.CheckLte:       orderingCheck(func(c int) bool { return c <= 0 }),
	metadata.CheckInList:    checkInList,
	metadata.CheckNotInList: checkNotInList,
}

// required fails only for absent values; zero, empty string and false count
// as present.
func checkRequired(cfg any, value any) CheckOutcome {
	if enforce, ok := cfg.(bool); ok && !enforce {
		return CheckOutcome{Pass: true}
	}
	return CheckOutcome{Pass: value != nil}
}

// Length checks treat non-truthy values as "not present" and pass, deferring
// presence enforcement to required.
func checkMinLength(cfg any, value any) CheckOutcome {
	if !isTruthy(value) {
		return CheckOutcome{Pass: true}
	}
	n, ok := lengthOf(value)
	min, cok := toFloat64(cfg)
	return CheckOutcome{Pass: ok && cok && float64(n) >= min, Refined: n}
}

func checkMaxLength(cfg any, value any) CheckOutcome {
	if !isTruthy(value) {
		return CheckOutcome{Pass: true}
	}
	n, ok := lengthOf(value)
	max, cok := toFloat64(cfg)
	return CheckOutcome{Pass: ok && cok && float64(n) <= max, Refined: n}
}

func checkPattern(cfg any, value any) CheckOutcome {
	if !isTruthy(value) {
		return CheckOutcome{Pass: true}
	}
	pattern, ok := cfg.(string)
	if !ok {
		return CheckOutcome{Pass: false}
	}
	matched, err := regexp.MatchString(pattern, fmt.Sprintf("%v", value))
	return CheckOutcome{Pass: err == nil && matched}
}

func checkEq(cfg any, value any) CheckOutcome {
	return CheckOutcome{Pass: strictEqual(value, cfg)}
}

func checkNeq(cfg any, value any) CheckOutcome {
	return CheckOutcome{Pass: !strictEqual(value, cfg)}
}

// Ordering comparisons are evaluated unconditionally: an absent value is
// never greater, less, or equal to the configured bound.
func orderingCheck(pass func(cmp int) bool) checkFunc {
	return func(cfg any, value any) CheckOutcome {
		if value == nil {
			return CheckOutcome{Pass: false}
		}
		cmp, ok := compareValues(value, cfg)
		return CheckOutcome{Pass: ok && pass(cmp)}
	}
}

func checkInList(cfg any, value any) CheckOutcome {
	return CheckOutcome{Pass: valueInList(value, cfg)}
}

func checkNotInList(cfg any, value any) CheckOutcome {
	return CheckOutcome{Pass: !valueInList(value, cfg)}
}

// --- datatype sub-checks ---

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	uuidPattern  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-5][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func checkDatatype(cfg any, value any) CheckOutcome {
	kind, ok := cfg.(string)
	if !ok {
		return CheckOutcome{Pass: false}
	}

	switch kind {
	case "number":
		f, ok := coerceFloat(value)
		return CheckOutcome{Pass: ok, Refined: f}
	case "email":
		s, ok := value.(string)
		return CheckOutcome{Pass: ok && emailPattern.MatchString(s)}
	case "ip":
		s, ok := value.(string)
		return CheckOutcome{Pass: ok && net.ParseIP(s) != nil}
	case "ipv4":
		s, ok := value.(string)
		if !ok {
			return CheckOutcome{Pass: false}
		}
		ip := net.ParseIP(s)
		return CheckOutcome{Pass: ip != nil && ip.To4() != nil && strings.Contains(s, ".")}
	case "ipv6":
		s, ok := value.(string)
		if !ok {
			return CheckOutcome{Pass: false}
		}
		ip := net.ParseIP(s)
		return CheckOutcome{Pass: ip != nil && strings.Contains(s, ":")}
	case "uuid":
		s, ok := value.(string)
		return CheckOutcome{Pass: ok && uuidPattern.MatchString(s)}
	case "json":
		s, ok := value.(string)
		return CheckOutcome{Pass: ok && json.Valid([]byte(s))}
	case "date":
		if _, ok := value.(time.Time); ok {
			return CheckOutcome{Pass: true}
		}
		s, ok := value.(string)
		if !ok {
			return CheckOutcome{Pass: false}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return CheckOutcome{Pass: true, Refined: t.Format(time.RFC3339)}
			}
		}
		return CheckOutcome{Pass: false}
	case "httpUrl":
		s, ok := value.(string)
		if !ok {
			return CheckOutcome{Pass: false}
		}
		u, err := url.Parse(s)
		return CheckOutcome{Pass: err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""}
	default:
		return CheckOutcome{Pass: typeName(value) == kind}
	}
}

// typeName classifies a value the way dynamic rule authors expect: string,
// number, boolean, object, array.
func typeName(v any) string {
	if v == nil {
		return "undefined"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Struct, reflect.Ptr:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return reflect.TypeOf(v).Kind().String()
	}
}

// --- value helpers ---

func isTruthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := toFloat64(v); ok {
		return f != 0
	}
	return true
}

func lengthOf(v any) (int, bool) {
	switch x := v.(type) {
	case string:
		return utf8.RuneCountInString(x), true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return reflect.ValueOf(v).Len(), true
	default:
		return 0, false
	}
}

// strictEqual compares numbers by value regardless of width; everything else
// must match in dynamic type and value. A numeric string never equals the
// number it spells.
func strictEqual(a, b any) bool {
	fa, aok := toFloat64(a)
	fb, bok := toFloat64(b)
	if aok || bok {
		return aok && bok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values: numerically when both coerce to numbers,
// lexically when both are strings.
func compareValues(a, b any) (int, bool) {
	fa, aok := coerceFloat(a)
	fb, bok := coerceFloat(b)
	if aok && bok {
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func valueInList(val, list any) bool {
	valStr := fmt.Sprintf("%v", val)
	switch l := list.(type) {
	case []any:
		for _, item := range l {
			if fmt.Sprintf("%v", item) == valStr {
				return true
			}
		}
	case []string:
		for _, item := range l {
			if item == valStr {
				return true
			}
		}
	}
	return false
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// coerceFloat is toFloat64 plus numeric-string parsing.
func coerceFloat(v any) (float64, bool) {
	if f, ok := toFloat64(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok && s != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
