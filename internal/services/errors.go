package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnparsable marks filenames whose structure no configured pattern
	// recognizes. Retrying cannot help because the filename never changes
	// on its own.
	ErrUnparsable = errors.New("unparsable filename")
	// ErrNoMatch marks a valid parse for which no sufficiently confident
	// series or episode could be resolved.
	ErrNoMatch = errors.New("no match")
	// ErrLookup marks transient metadata source failures (timeouts, 5xx,
	// rate limits). These participate in the retry mechanism.
	ErrLookup = errors.New("lookup failure")
	// ErrExecution marks transient filesystem failures during rename/move.
	ErrExecution = errors.New("execution failure")
	// ErrCollision marks an occupied destination path. Never retried and
	// never overwritten; requires an external decision.
	ErrCollision = errors.New("destination collision")
	// ErrConfiguration marks unusable configuration values.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks invalid inputs to a component.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the error represents a transient fault that the
// retry scheduler should re-queue. Only lookup and execution failures qualify;
// every other kind is terminal.
func Retryable(err error) bool {
	return errors.Is(err, ErrLookup) || errors.Is(err, ErrExecution)
}

// FailureKind returns the audit classification for a pipeline error.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrUnparsable):
		return "unparsable"
	case errors.Is(err, ErrNoMatch):
		return "no_match"
	case errors.Is(err, ErrLookup):
		return "lookup_error"
	case errors.Is(err, ErrCollision):
		return "collision"
	case errors.Is(err, ErrExecution):
		return "execution_error"
	case errors.Is(err, ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, ErrValidation):
		return "validation_error"
	default:
		return "error"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
