package engine

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"sentinel-backend/internal/metadata"
)

type Handler struct {
	validator *Validator
	registry  *metadata.Registry

	// verbose includes received-value tuples in every response; per-call
	// verbose_errors can only widen this, not narrow it.
	verbose bool
}

func NewHandler(v *Validator, reg *metadata.Registry, verboseErrors bool) *Handler {
	return &Handler{validator: v, registry: reg, verbose: verboseErrors}
}

// Validate handles POST /api/validate/:entity/:operation. The authenticated
// user is the actor scope; input and record come from the request body.
func (h *Handler) Validate(c *fiber.Ctx) error {
	entityName := c.Params("entity")
	operation := c.Params("operation")

	spec := h.registry.Get(entityName)
	if spec == nil {
		return respondError(c, UnknownEntityError(entityName))
	}

	var body struct {
		Input         map[string]any    `json:"input"`
		Record        map[string]any    `json:"record"`
		CollectErrors *bool             `json:"collect_errors"`
		VerboseErrors bool              `json:"verbose_errors"`
		Messages      map[string]string `json:"messages"`
	}
	if err := c.BodyParser(&body); err != nil {
		return respondError(c, NewAppError("INVALID_PAYLOAD", 400, "Invalid JSON body"))
	}
	collect := body.CollectErrors == nil || *body.CollectErrors

	result, err := h.validator.ValidateEntity(c.Context(), EntityValidationParams{
		OperationName:      operation,
		EntityName:         entityName,
		Validations:        spec,
		Input:              body.Input,
		Record:             body.Record,
		Actor:              getUser(c).AsMap(),
		CollectErrors:      collect,
		VerboseErrors:      body.VerboseErrors || h.verbose,
		OverriddenMessages: body.Messages,
	})
	if err != nil {
		return fmt.Errorf("validate %s/%s: %w", entityName, operation, err)
	}

	return c.JSON(fiber.Map{"data": result})
}

// RequestValidation returns middleware that validates a route's body, query,
// path params and headers against the given section validations, rejecting
// failing requests with a 400 carrying the collected errors.
func RequestValidation(v *Validator, validations *HTTPValidations) fiber.Handler {
	return func(c *fiber.Ctx) error {
		result, err := v.ValidateHTTPRequest(c.Context(), HTTPValidationParams{
			Request:       requestContextFromFiber(c, validations),
			Validations:   validations,
			CollectErrors: true,
		})
		if err != nil {
			return fmt.Errorf("request validation: %w", err)
		}
		if !result.Pass {
			return respondError(c, RequestValidationError(flattenHTTPErrors(result)))
		}
		return c.Next()
	}
}

// requestContextFromFiber extracts the sections a validation declares from
// the transport request. Header names are lowercased.
func requestContextFromFiber(c *fiber.Ctx, validations *HTTPValidations) *RequestContext {
	req := &RequestContext{}

	if len(validations.Body) > 0 {
		var body map[string]any
		_ = c.BodyParser(&body)
		req.Body = body
	}
	if len(validations.Query) > 0 {
		query := make(map[string]any)
		for k, val := range c.Queries() {
			query[k] = val
		}
		req.QueryStringParameters = query
	}
	if len(validations.Param) > 0 {
		params := make(map[string]any)
		for k, val := range c.AllParams() {
			params[k] = val
		}
		req.PathParameters = params
	}
	if len(validations.Header) > 0 {
		headers := make(map[string]any)
		for k, vals := range c.GetReqHeaders() {
			if len(vals) > 0 {
				headers[strings.ToLower(k)] = vals[0]
			}
		}
		req.Headers = headers
	}
	return req
}

func flattenHTTPErrors(result *HTTPValidationResult) []*ValidationError {
	var details []*ValidationError
	for _, section := range []string{"body", "query", "param", "header"} {
		for _, errs := range result.Errors[section] {
			details = append(details, errs...)
		}
	}
	return details
}

func getUser(c *fiber.Ctx) *metadata.UserContext {
	user, _ := c.Locals("user").(*metadata.UserContext)
	return user
}

func respondError(c *fiber.Ctx, appErr *AppError) error {
	return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
}
