package engine

import (
	"context"

	"sentinel-backend/internal/metadata"
)

// RequestContext is the already-parsed request the HTTP layer hands to the
// validator: plain property maps per section. Query-string coercion to
// numbers/booleans is the transport layer's job.
type RequestContext struct {
	Body                  map[string]any `json:"body,omitempty"`
	PathParameters        map[string]any `json:"pathParameters,omitempty"`
	QueryStringParameters map[string]any `json:"queryStringParameters,omitempty"`
	Headers               map[string]any `json:"headers,omitempty"`
}

// HTTPValidations declares flat validations per request section. Sections
// absent from the declaration are skipped entirely.
type HTTPValidations struct {
	Body   metadata.CheckMap `json:"body,omitempty"`
	Query  metadata.CheckMap `json:"query,omitempty"`
	Param  metadata.CheckMap `json:"param,omitempty"`
	Header metadata.CheckMap `json:"header,omitempty"`
}

type HTTPValidationParams struct {
	Request       *RequestContext
	Validations   *HTTPValidations
	CollectErrors bool
	VerboseErrors bool

	OverriddenMessages map[string]string
}

// ValidateHTTPRequest runs flat validation over each declared section and
// buckets errors by section, with paths prefixed by the section name.
func (v *Validator) ValidateHTTPRequest(ctx context.Context, p HTTPValidationParams) (*HTTPValidationResult, error) {
	if p.Validations == nil {
		return &HTTPValidationResult{Pass: true}, nil
	}
	req := p.Request
	if req == nil {
		req = &RequestContext{}
	}
	overrides := v.mergeOverrides(p.OverriddenMessages)

	sections := []struct {
		name  string
		rules metadata.CheckMap
		data  map[string]any
	}{
		{"body", p.Validations.Body, req.Body},
		{"query", p.Validations.Query, req.QueryStringParameters},
		{"param", p.Validations.Param, req.PathParameters},
		{"header", p.Validations.Header, req.Headers},
	}

	result := &HTTPValidationResult{Pass: true}
	for _, s := range sections {
		if len(s.rules) == 0 {
			continue
		}
		pass, errs, err := v.runFlat(ctx, flatRun{
			rules:     s.rules,
			data:      s.data,
			env:       metadata.PredicateEnv{Input: s.data},
			section:   s.name,
			collect:   p.CollectErrors,
			verbose:   p.VerboseErrors,
			overrides: overrides,
		})
		if err != nil {
			return nil, err
		}
		result.Pass = result.Pass && pass
		if len(errs) > 0 {
			if result.Errors == nil {
				result.Errors = make(map[string]ErrorMap, 4)
			}
			result.Errors[s.name] = errs
		}
	}
	return result, nil
}
