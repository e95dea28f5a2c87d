// Package errs defines the error taxonomy shared across the engine.
//
// Each kind is a distinct type so callers can route on errors.As:
// validation and not-found errors are rejected pre-mutation, broker
// errors surface after local validation, safety errors always carry
// the specific denial reason.
package errs

import "fmt"

// ValidationError reports bad or missing parameters, rejected before
// any state is mutated or persisted.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown strategy, backtest, or order id.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ConfigurationError reports missing or unusable configuration, most
// commonly absent broker credentials.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

func Configuration(format string, args ...any) error {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// BrokerError wraps a broker call that failed after local validation.
// It is surfaced to the caller, never auto-retried.
type BrokerError struct {
	Op  string
	Err error
}

func (e *BrokerError) Error() string { return fmt.Sprintf("broker %s: %v", e.Op, e.Err) }
func (e *BrokerError) Unwrap() error { return e.Err }

func Broker(op string, err error) error {
	return &BrokerError{Op: op, Err: err}
}

// SafetyError reports an admission-control denial. Reason is always
// populated and must be shown to the caller.
type SafetyError struct {
	Reason string
}

func (e *SafetyError) Error() string { return "order denied: " + e.Reason }

func Safety(reason string) error {
	return &SafetyError{Reason: reason}
}

// EngineError covers lock and process lifecycle failures: already
// running, not running, permission denied on the lock path.
type EngineError struct {
	Msg string
	PID int // competing process id when already running, 0 otherwise
}

func (e *EngineError) Error() string { return e.Msg }

func Engine(format string, args ...any) error {
	return &EngineError{Msg: fmt.Sprintf(format, args...)}
}

// RateLimitError reports that an automation-facing operation exceeded
// its sliding-window rate limit.
type RateLimitError struct {
	Key string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %q", e.Key)
}

// TaskTimeoutError reports that a long-running operation exceeded its
// wall-clock budget and was abandoned.
type TaskTimeoutError struct {
	Key     string
	Seconds float64
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("task %q timed out after %.0fs", e.Key, e.Seconds)
}
