package services

// Typed service errors. Handlers translate these to HTTP status codes in one
// place; anything else is treated as an internal error.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UpstreamError covers the external registry: Reason is "unreachable" or
// "malformed-response".
type UpstreamError struct {
	Reason  string
	Message string
}

func (e *UpstreamError) Error() string { return e.Message }
