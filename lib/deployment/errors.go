package deployment

import (
	"fmt"
	"time"
)

// ParseError means the descriptor file is absent or not well-formed YAML.
type ParseError struct {
	Path string
	Err  error
}

func (e ParseError) Error() string {
	return fmt.Sprintf("failed to parse descriptor %s: %v", e.Path, e.Err)
}

func (e ParseError) Unwrap() error { return e.Err }

// ValidationError means the descriptor parsed but violates an invariant.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid deployment config: %s", e.Reason)
}

// ConfigError means a required deployment-time input (environment variable,
// flag) is missing or malformed. Fatal, never retried.
type ConfigError struct {
	Reason string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// RemoteStateError means a resource lookup failed for a reason other than
// "not found". It is never treated as absence.
type RemoteStateError struct {
	Op  string
	Err error
}

func (e RemoteStateError) Error() string {
	return fmt.Sprintf("%s: remote lookup failed: %v", e.Op, e.Err)
}

func (e RemoteStateError) Unwrap() error { return e.Err }

// RemoteOpError means the provider reported a terminal failure for an
// operation, e.g. an endpoint reaching Failed or RolledBack.
type RemoteOpError struct {
	Op     string
	Status string
}

func (e RemoteOpError) Error() string {
	return fmt.Sprintf("%s failed with status %s", e.Op, e.Status)
}

// TimeoutError means a remote resource never reached its target status
// within the deploy budget.
type TimeoutError struct {
	Op     string
	Budget time.Duration
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Budget)
}
