package engine

import (
	"fmt"
	"strconv"
	"strings"

	"sentinel-backend/internal/metadata"
)

const messageIDPrefix = "validation"

// defaultMessages is the built-in generic message table, keyed by the
// generic message ids. Callers override any id, at any granularity, through
// an overridden-messages map.
var defaultMessages = map[string]string{
	"validation.required":  "{key} is required",
	"validation.minLength": "{key} must be at least {validationValue} characters long",
	"validation.maxLength": "{key} must be at most {validationValue} characters long",
	"validation.pattern":   "{key} does not match the required pattern",
	"validation.datatype":  "{key} must be a valid {validationValue}",
	"validation.eq":        "{key} must equal {validationValue}",
	"validation.neq":       "{key} must not equal {validationValue}",
	"validation.gt":        "{key} must be greater than {validationValue}",
	"validation.gte":       "{key} must be at least {validationValue}",
	"validation.lt":        "{key} must be less than {validationValue}",
	"validation.lte":       "{key} must be at most {validationValue}",
	"validation.inList":    "{key} must be one of {validationValue}",
	"validation.notInList": "{key} must not be one of {validationValue}",
	"validation.unique":    "{key} must be unique",
	"validation.custom":    "{key} is invalid",
}

// genericMessage is the last-resort template when no id resolves anywhere.
const genericMessage = "{key} failed {validationName} validation"

// MakeCheckMessageIDs builds the message-id chain for a failed check,
// ordered most-generic to most-specific, ending with the configured custom
// id when one is present.
func MakeCheckMessageIDs(name metadata.CheckName, cv metadata.CheckValue) []string {
	ids := baseMessageIDs(name, cv.Value)
	if cv.MessageID != "" {
		ids = append(ids, cv.MessageID)
	}
	return ids
}

// MakeEntityMessageIDs extends the generic chain with entity-scoped ids
// (validation.entity.<entity>.<scope>.<property>.<check>[.<value>]).
func MakeEntityMessageIDs(entity, scope, property string, name metadata.CheckName, cv metadata.CheckValue) []string {
	ids := baseMessageIDs(name, cv.Value)
	scoped := fmt.Sprintf("%s.entity.%s.%s.%s.%s", messageIDPrefix, entity, scope, property, name)
	ids = append(ids, scoped)
	if tag := valueTag(cv.Value); tag != "" {
		ids = append(ids, scoped+"."+tag)
	}
	if cv.MessageID != "" {
		ids = append(ids, cv.MessageID)
	}
	return ids
}

// MakeHTTPMessageIDs extends the generic chain with section-scoped ids
// (validation.http.<section>.<property>.<check>[.<value>]).
func MakeHTTPMessageIDs(section, property string, name metadata.CheckName, cv metadata.CheckValue) []string {
	ids := baseMessageIDs(name, cv.Value)
	scoped := fmt.Sprintf("%s.http.%s.%s.%s", messageIDPrefix, section, property, name)
	ids = append(ids, scoped)
	if tag := valueTag(cv.Value); tag != "" {
		ids = append(ids, scoped+"."+tag)
	}
	if cv.MessageID != "" {
		ids = append(ids, cv.MessageID)
	}
	return ids
}

func baseMessageIDs(name metadata.CheckName, value any) []string {
	generic := messageIDPrefix + "." + string(name)
	ids := []string{generic}
	if tag := valueTag(value); tag != "" {
		ids = append(ids, generic+"."+tag)
	}
	return ids
}

// valueTag renders a configured check value as a message-id segment.
// Unrepresentable values (lists, objects, predicates) produce no segment.
func valueTag(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		if x == "" {
			return ""
		}
		return strings.ReplaceAll(x, " ", "_")
	case bool:
		return strconv.FormatBool(x)
	}
	if f, ok := toFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

// ResolveMessage produces the final human-readable text for an error.
// Precedence: the configured custom message verbatim; the custom message id
// through overrides or the built-in table; the id chain walked from most- to
// least-specific through overrides, then through the built-in table; finally
// the templated generic sentence.
func ResolveMessage(e *ValidationError, overrides map[string]string) string {
	if e.CustomMessage != "" {
		return e.CustomMessage
	}

	if e.CustomMessageID != "" {
		if msg, ok := overrides[e.CustomMessageID]; ok {
			return substitute(msg, e)
		}
		if msg, ok := defaultMessages[e.CustomMessageID]; ok {
			return substitute(msg, e)
		}
	}

	for i := len(e.MessageIDs) - 1; i >= 0; i-- {
		if msg, ok := overrides[e.MessageIDs[i]]; ok {
			return substitute(msg, e)
		}
	}
	for i := len(e.MessageIDs) - 1; i >= 0; i-- {
		if msg, ok := defaultMessages[e.MessageIDs[i]]; ok {
			return substitute(msg, e)
		}
	}

	return substitute(genericMessage, e)
}

// substitute fills the message template placeholders from the error's path
// and expected/received tuples. Missing data substitutes as empty text.
func substitute(template string, e *ValidationError) string {
	key, path := "", ""
	if len(e.Path) > 0 {
		key = e.Path[len(e.Path)-1]
		path = strings.Join(e.Path, ".")
	}

	name, value := "", ""
	if e.Expected != nil {
		name = string(e.Expected.Check)
		if e.Expected.Value != nil {
			value = fmt.Sprintf("%v", e.Expected.Value)
		}
	}

	received, refined := "", ""
	if e.Received != nil {
		if e.Received.Raw != nil {
			received = fmt.Sprintf("%v", e.Received.Raw)
		}
		if e.Received.Refined != nil {
			refined = fmt.Sprintf("%v", e.Received.Refined)
		}
	}

	return strings.NewReplacer(
		"{key}", key,
		"{path}", path,
		"{validationName}", name,
		"{validationValue}", value,
		"{received}", received,
		"{refinedReceived}", refined,
	).Replace(template)
}
