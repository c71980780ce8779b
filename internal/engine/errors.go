package engine

import "fmt"

type AppError struct {
	Code    string             `json:"code"`
	Status  int                `json:"-"`
	Message string             `json:"message"`
	Details []*ValidationError `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnknownEntityError(name string) *AppError {
	return &AppError{
		Code:    "UNKNOWN_ENTITY",
		Status:  404,
		Message: fmt.Sprintf("Unknown entity: %s", name),
	}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

// RequestValidationError wraps HTTP request validation failures. The
// collected ValidationErrors are embedded verbatim in the response body.
func RequestValidationError(details []*ValidationError) *AppError {
	return &AppError{
		Code:    "REQUEST_VALIDATION_FAILED",
		Status:  400,
		Message: "Request validation failed",
		Details: details,
	}
}
