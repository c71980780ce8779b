package engine

import (
	"context"
	"testing"

	"sentinel-backend/internal/metadata"
)

func TestMakeMessageIDs(t *testing.T) {
	cv := metadata.CheckValue{Value: float64(8)}

	ids := MakeCheckMessageIDs(metadata.CheckMinLength, cv)
	if len(ids) != 2 || ids[0] != "validation.minLength" || ids[1] != "validation.minLength.8" {
		t.Fatalf("unexpected generic ids: %v", ids)
	}

	ids = MakeEntityMessageIDs("user", "input", "password", metadata.CheckMinLength, cv)
	want := []string{
		"validation.minLength",
		"validation.minLength.8",
		"validation.entity.user.input.password.minLength",
		"validation.entity.user.input.password.minLength.8",
	}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %v", len(want), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("id %d: expected %q, got %q", i, want[i], ids[i])
		}
	}

	ids = MakeHTTPMessageIDs("body", "age", metadata.CheckGt, metadata.CheckValue{Value: float64(40)})
	if ids[len(ids)-1] != "validation.http.body.age.gt.40" {
		t.Fatalf("unexpected http ids: %v", ids)
	}
}

func TestValueTag(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{"admin", "admin"},
		{"two words", "two_words"},
		{"", ""},
		{true, "true"},
		{float64(8), "8"},
		{float64(8.5), "8.5"},
		{nil, ""},
		{[]any{"a"}, ""},
		{map[string]any{}, ""},
	}
	for _, c := range cases {
		if got := valueTag(c.in); got != c.want {
			t.Fatalf("valueTag(%#v): expected %q, got %q", c.in, c.want, got)
		}
	}
}

func TestResolveMessage_Precedence(t *testing.T) {
	base := &ValidationError{
		MessageIDs: []string{
			"validation.minLength",
			"validation.minLength.8",
			"validation.entity.user.input.password.minLength",
			"validation.entity.user.input.password.minLength.8",
		},
		Path:     []string{"password"},
		Expected: &Expectation{Check: metadata.CheckMinLength, Value: float64(8)},
	}

	// A configured custom message wins verbatim, no substitution.
	e := *base
	e.CustomMessage = "Use a longer {key}"
	if got := ResolveMessage(&e, nil); got != "Use a longer {key}" {
		t.Fatalf("expected verbatim custom message, got %q", got)
	}

	// A custom message id resolves through overrides.
	e = *base
	e.CustomMessageID = "user.password.weak"
	overrides := map[string]string{"user.password.weak": "{key} is too weak"}
	if got := ResolveMessage(&e, overrides); got != "password is too weak" {
		t.Fatalf("expected custom id resolution, got %q", got)
	}

	// The most specific overridden id wins over less specific ones.
	overrides = map[string]string{"validation.minLength": "generic"}
	overrides["validation.entity.user.input.password.minLength.8"] = "most specific"
	if got := ResolveMessage(base, overrides); got != "most specific" {
		t.Fatalf("expected most specific override, got %q", got)
	}

	// Overrides beat built-in defaults even at lower specificity.
	overrides = map[string]string{"validation.minLength": "override wins"}
	if got := ResolveMessage(base, overrides); got != "override wins" {
		t.Fatalf("expected override over default, got %q", got)
	}

	// No overrides: the built-in table serves the generic id.
	if got := ResolveMessage(base, nil); got != "password must be at least 8 characters long" {
		t.Fatalf("expected built-in default, got %q", got)
	}
}

func TestResolveMessage_GenericFallback(t *testing.T) {
	e := &ValidationError{
		MessageIDs: []string{"validation.custom", "some.unknown.id"},
		Path:       []string{"body", "payload"},
		Expected:   &Expectation{Check: metadata.CheckCustom},
	}
	// validation.custom is in the built-in table.
	if got := ResolveMessage(e, nil); got != "payload is invalid" {
		t.Fatalf("expected built-in custom default, got %q", got)
	}

	// With no resolvable id at all, the templated generic sentence applies.
	e.MessageIDs = []string{"nowhere.to.be.found"}
	if got := ResolveMessage(e, nil); got != "payload failed custom validation" {
		t.Fatalf("expected generic fallback, got %q", got)
	}
}

func TestSubstitute_Placeholders(t *testing.T) {
	e := &ValidationError{
		Path:     []string{"body", "age"},
		Expected: &Expectation{Check: metadata.CheckGt, Value: float64(40)},
		Received: &Received{Raw: "41.0", Refined: float64(41)},
	}
	got := substitute("{path}: {key} {validationName} {validationValue}, got {received} ({refinedReceived})", e)
	want := "body.age: age gt 40, got 41.0 (41)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	// Missing data substitutes as empty text.
	empty := &ValidationError{}
	if got := substitute("[{key}|{validationValue}|{received}]", empty); got != "[||]" {
		t.Fatalf("expected empty substitutions, got %q", got)
	}
}

func TestValidatorLevelOverrides(t *testing.T) {
	ev := mustSpec(t, `{"input": {"name": [{"required": true}]}}`)

	v := NewValidator(WithMessageOverrides(map[string]string{
		"validation.required": "default: {key} missing",
	}))

	res, err := v.ValidateEntity(context.Background(), EntityValidationParams{
		OperationName: "create",
		EntityName:    "thing",
		Validations:   ev,
		CollectErrors: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors.Input["name"][0].Message != "default: name missing" {
		t.Fatalf("expected validator-level override, got %q", res.Errors.Input["name"][0].Message)
	}

	// Per-call overrides take precedence.
	res, err = v.ValidateEntity(context.Background(), EntityValidationParams{
		OperationName: "create",
		EntityName:    "thing",
		Validations:   ev,
		CollectErrors: true,
		OverriddenMessages: map[string]string{
			"validation.required": "call: {key} missing",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors.Input["name"][0].Message != "call: name missing" {
		t.Fatalf("expected per-call override, got %q", res.Errors.Input["name"][0].Message)
	}
}
