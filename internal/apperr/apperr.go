// Package apperr defines the closed failure taxonomy that crosses every
// governance stage boundary, mirroring the gateway's sanitized error
// envelope: internal detail never reaches the public response.
package apperr

import "strings"

// FailureType is the closed, public-facing failure taxonomy.
type FailureType string

const (
	RequestSchemaInvalid    FailureType = "REQUEST_SCHEMA_INVALID"
	RequestTooLarge         FailureType = "REQUEST_TOO_LARGE"
	EmptyInput              FailureType = "EMPTY_INPUT"
	ModelFailedFallbackUsed FailureType = "MODEL_FAILED_FALLBACK_USED"
	GovernedPipelineAborted FailureType = "GOVERNED_PIPELINE_ABORTED"
	InternalErrorSanitized  FailureType = "INTERNAL_ERROR_SANITIZED"
	Timeout                 FailureType = "TIMEOUT"
)

const maxReasonLen = 200

// GovernanceError is the error type every pipeline stage returns instead of
// propagating a raw Go error or panicking across a stage boundary.
type GovernanceError struct {
	Type       FailureType
	StatusCode int
	Reason     string
	RetryAfter int // seconds, 0 means unset
}

func (e *GovernanceError) Error() string {
	return string(e.Type) + ": " + e.Reason
}

// Sanitize replaces newlines, carriage returns and tabs with spaces, trims
// surrounding whitespace, and truncates the reason to maxReasonLen bytes.
// Path-looking tokens are not removed.
func Sanitize(reason string) string {
	reason = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return ' '
		}
		return r
	}, reason)
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	return reason
}

// New builds a sanitized GovernanceError.
func New(t FailureType, status int, reason string) *GovernanceError {
	return &GovernanceError{Type: t, StatusCode: status, Reason: Sanitize(reason)}
}

// WithRetryAfter attaches a Retry-After value, clamped to [1, 86400].
func (e *GovernanceError) WithRetryAfter(seconds int) *GovernanceError {
	if seconds < 1 {
		seconds = 1
	}
	if seconds > 86400 {
		seconds = 86400
	}
	e.RetryAfter = seconds
	return e
}

// Internal wraps any unclassified error into the sanitized internal failure,
// never leaking the wrapped error's message to the public surface.
func Internal(cause error) *GovernanceError {
	return New(InternalErrorSanitized, 500, "internal error")
}
