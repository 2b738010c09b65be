// README: Error taxonomy for generative calls and the Outcome classifier used by handlers and metrics.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is matched by every ConfigurationError.
var ErrNotConfigured = errors.New("ai: api credential not configured")

// ConfigurationError means no credential could be resolved. It is never retried.
type ConfigurationError struct {
	Op string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: api credential not configured", e.Op)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrNotConfigured }

// MalformedResponseError means the provider answered but the payload failed
// JSON or schema validation.
type MalformedResponseError struct {
	Op  string
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// TimeoutError means the deadline passed before the provider answered.
type TimeoutError struct {
	Op    string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out after %s", e.Op, e.After)
}

// ProviderError wraps a failed remote call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider error: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Outcome is the closed set of results a generative call can have.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeNotConfigured
	OutcomeMalformed
	OutcomeTimeout
	OutcomeProvider
	OutcomeCanceled
	// OutcomeOther is any error outside the AI taxonomy.
	OutcomeOther
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeNotConfigured:
		return "not_configured"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeProvider:
		return "provider"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// Classify maps err onto an Outcome.
func Classify(err error) Outcome {
	var (
		malformed *MalformedResponseError
		timeout   *TimeoutError
		provider  *ProviderError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotConfigured):
		return OutcomeNotConfigured
	case errors.As(err, &malformed):
		return OutcomeMalformed
	case errors.As(err, &timeout):
		return OutcomeTimeout
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	case errors.As(err, &provider):
		return OutcomeProvider
	default:
		return OutcomeOther
	}
}
