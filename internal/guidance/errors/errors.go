// Package errors implements the guidance engine's error taxonomy and
// dispatcher: one tagged sum type, fluent builders, and a uniform
// tool-result shape keyed off the variant.
package errors

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind tags a GuidanceError's variant.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindSecurity       Kind = "security"
	KindRateLimit      Kind = "rate_limit"
	KindBusinessLogic  Kind = "business_logic"
	KindState          Kind = "state"
	KindCircuitBreaker Kind = "circuit_breaker"
	KindConfiguration  Kind = "configuration"
	KindInternal       Kind = "internal"
)

// statusCodes maps each Kind to the status code carried in its response.
var statusCodes = map[Kind]int{
	KindValidation:     400,
	KindSecurity:       403,
	KindRateLimit:      429,
	KindBusinessLogic:  400,
	KindState:          500,
	KindCircuitBreaker: 503,
	KindConfiguration:  500,
	KindInternal:       500,
}

// GuidanceError is the engine's single structured-error type. Every
// error raised by the processor is a *GuidanceError before it reaches a
// caller.
type GuidanceError struct {
	Kind          Kind      `json:"category"`
	Message       string    `json:"message"`
	StatusCode    int       `json:"status_code"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Details       string    `json:"details,omitempty"`
	RetryAfter    int       `json:"retry_after,omitempty"`
	Cause         error     `json:"-"`
}

// New creates a GuidanceError of the given kind with its status code
// filled in from statusCodes.
func New(kind Kind, message string) *GuidanceError {
	return &GuidanceError{
		Kind:       kind,
		Message:    message,
		StatusCode: statusCodes[kind],
		Timestamp:  time.Now(),
	}
}

// Validation builds a KindValidation error.
func Validation(message string) *GuidanceError { return New(KindValidation, message) }

// Security builds a KindSecurity error.
func Security(message string) *GuidanceError { return New(KindSecurity, message) }

// RateLimit builds a KindRateLimit error carrying a retry-after duration
// in seconds.
func RateLimit(message string, retryAfterSeconds int) *GuidanceError {
	return New(KindRateLimit, message).withRetryAfter(retryAfterSeconds)
}

// BusinessLogic builds a KindBusinessLogic error.
func BusinessLogic(message string) *GuidanceError { return New(KindBusinessLogic, message) }

// State builds a KindState error.
func State(message string) *GuidanceError { return New(KindState, message) }

// CircuitBreaker builds a KindCircuitBreaker error.
func CircuitBreaker(message string) *GuidanceError { return New(KindCircuitBreaker, message) }

// Configuration builds a KindConfiguration error.
func Configuration(message string) *GuidanceError { return New(KindConfiguration, message) }

// Internal builds the terminal KindInternal error. The dispatcher's
// fallback always matches this variant.
func Internal(message string) *GuidanceError { return New(KindInternal, message) }

func (e *GuidanceError) withRetryAfter(seconds int) *GuidanceError {
	e.RetryAfter = seconds
	return e
}

// WithDetails attaches additional context.
func (e *GuidanceError) WithDetails(details string) *GuidanceError {
	e.Details = details
	return e
}

// WithCorrelationID attaches a correlation ID for cross-log tracing.
func (e *GuidanceError) WithCorrelationID(id string) *GuidanceError {
	e.CorrelationID = id
	return e
}

// WithCause sets the underlying error.
func (e *GuidanceError) WithCause(cause error) *GuidanceError {
	e.Cause = cause
	return e
}

// Error implements the error interface.
func (e *GuidanceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *GuidanceError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements a custom encoding that excludes the
// unmarshalable Cause field (handled implicitly by the json tag, this
// override exists so future fields added to the alias can't
// accidentally resurrect it).
func (e *GuidanceError) MarshalJSON() ([]byte, error) {
	type alias GuidanceError
	return json.Marshal((*alias)(e))
}

// ToGuidanceError converts any error into a *GuidanceError. An error
// that is already one is returned unchanged; anything else is wrapped
// as KindInternal, the dispatcher's fallback variant.
func ToGuidanceError(err error) *GuidanceError {
	if err == nil {
		return nil
	}
	if ge, ok := err.(*GuidanceError); ok {
		return ge
	}
	return Internal(err.Error()).WithCause(err)
}

// ToolResult is the uniform response shape every dispatched error is
// rendered into.
type ToolResult struct {
	Content    []ToolResultContent `json:"content"`
	IsError    bool                `json:"is_error"`
	StatusCode int                 `json:"status_code"`
}

// ToolResultContent is one content block of a ToolResult.
type ToolResultContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Dispatch renders err into the uniform ToolResult shape. The handler
// selected is purely a function of Kind; the KindInternal handler is
// the fallback for both an explicit KindInternal error and any error
// that isn't a *GuidanceError to begin with.
func Dispatch(err error) *ToolResult {
	ge := ToGuidanceError(err)

	payload, marshalErr := json.Marshal(ge)
	if marshalErr != nil {
		// The marshaler itself failed; fall back to a minimal, always-
		// serialisable payload rather than propagate a second error.
		payload = []byte(fmt.Sprintf(`{"category":"internal","message":%q,"status_code":500}`, ge.Message))
	}

	return &ToolResult{
		Content: []ToolResultContent{
			{Type: "text", Text: string(payload)},
		},
		IsError:    true,
		StatusCode: ge.StatusCode,
	}
}
