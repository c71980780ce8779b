package engine

import (
	"encoding/json"
	"errors"

	"sentinel-backend/internal/metadata"
)

// Configuration errors. These indicate the validation spec itself is broken
// and abort the whole validation call, unlike data validation failures which
// are returned as ValidationErrors.
var (
	ErrUnknownCondition   = errors.New("unknown condition")
	ErrNoUniquenessOracle = errors.New("unique check requires a uniqueness oracle")
)

// Expectation records which check failed and its configured value.
// It serializes as the tuple [checkName, checkValue].
type Expectation struct {
	Check metadata.CheckName
	Value any
}

func (e Expectation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Check, e.Value})
}

// Received records the raw value under validation and, when a check produces
// one, its refined form. It serializes as the tuple [raw, refined].
type Received struct {
	Raw     any
	Refined any
}

func (r Received) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{r.Raw, r.Refined})
}

// ValidationError is one structured data-validation failure. MessageIDs is
// ordered most-generic to most-specific; message resolution walks it in
// reverse to find the most specific id with an available message.
type ValidationError struct {
	Message         string       `json:"message,omitempty"`
	MessageIDs      []string     `json:"messageIds"`
	Path            []string     `json:"path"`
	Expected        *Expectation `json:"expected,omitempty"`
	Received        *Received    `json:"received,omitempty"`
	CustomMessage   string       `json:"customMessage,omitempty"`
	CustomMessageID string       `json:"customMessageId,omitempty"`
}

// ErrorMap aggregates errors by property name.
type ErrorMap map[string][]*ValidationError

// ScopeErrors groups an entity validation run's errors by scope.
type ScopeErrors struct {
	Actor  ErrorMap `json:"actor,omitempty"`
	Input  ErrorMap `json:"input,omitempty"`
	Record ErrorMap `json:"record,omitempty"`
}

func (s *ScopeErrors) empty() bool {
	return len(s.Actor) == 0 && len(s.Input) == 0 && len(s.Record) == 0
}

// ValidationResult is the outcome of an entity validation run. Pass is
// computed regardless of whether errors were collected.
type ValidationResult struct {
	Pass   bool         `json:"pass"`
	Errors *ScopeErrors `json:"errors,omitempty"`
}

// InputValidationResult is the outcome of a flat validation run.
type InputValidationResult struct {
	Pass   bool     `json:"pass"`
	Errors ErrorMap `json:"errors,omitempty"`
}

// HTTPValidationResult is the outcome of an HTTP request validation run,
// with errors bucketed by section (body, query, param, header).
type HTTPValidationResult struct {
	Pass   bool                `json:"pass"`
	Errors map[string]ErrorMap `json:"errors,omitempty"`
}
