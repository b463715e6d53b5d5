package recovery

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PipelineError is the classified error type carried through pipeline
// control flow and persisted into run summaries.
type PipelineError struct {
	Message   string         `json:"message"`
	Category  Category       `json:"category"`
	Recovery  Recovery       `json:"recovery"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	cause error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *PipelineError) Unwrap() error { return e.cause }

// WithDetail records a single diagnostic key-value pair and returns the
// receiver.
func (e *PipelineError) WithDetail(key string, value any) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithDetails merges the provided diagnostics into the error and returns the
// receiver.
func (e *PipelineError) WithDetails(details map[string]any) *PipelineError {
	if len(details) == 0 {
		return e
	}
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Action returns the user-facing guidance registered for this failure mode.
func (e *PipelineError) Action() string {
	info, ok := Lookup(CodeFor(e.Category))
	if !ok {
		return ""
	}
	return info.Action
}

// NewError constructs a tagged PipelineError for collaborators that already
// know their failure mode. Prefer this over classification when the failure
// originates in our own code.
func NewError(category Category, message string) *PipelineError {
	return &PipelineError{
		Message:   strings.TrimSpace(message),
		Category:  category,
		Recovery:  RecoveryFor(category),
		Timestamp: time.Now().UTC(),
	}
}

// Errorf constructs a tagged PipelineError with a formatted message.
func Errorf(category Category, format string, args ...any) *PipelineError {
	return NewError(category, fmt.Sprintf(format, args...))
}

// Wrap builds a tagged PipelineError whose message carries component and
// operation context, chaining the underlying error as the cause.
func Wrap(category Category, component, operation string, err error) *PipelineError {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if err != nil {
		parts = append(parts, err.Error())
	}
	message := strings.Join(parts, ": ")
	if message == "" {
		message = "pipeline failure"
	}
	wrapped := NewError(category, message)
	wrapped.cause = err
	return wrapped
}

// ToPipelineError folds a raw error or string into a classified
// PipelineError. Re-wrapping an already-classified error returns it
// unchanged apart from merging extra details; category, recovery, and
// timestamp are preserved.
func ToPipelineError(input any, extra map[string]any) *PipelineError {
	switch v := input.(type) {
	case nil:
		return NewError(CategoryUnknown, "unknown failure").WithDetails(extra)
	case *PipelineError:
		return v.WithDetails(extra)
	case error:
		var classified *PipelineError
		if errors.As(v, &classified) {
			return classified.WithDetails(extra)
		}
		wrapped := NewError(Classify(v.Error()), v.Error()).WithDetails(extra)
		wrapped.cause = v
		return wrapped
	case string:
		return NewError(Classify(v), v).WithDetails(extra)
	default:
		text := fmt.Sprint(v)
		return NewError(Classify(text), text).WithDetails(extra)
	}
}

// CategoryOf reports the category an error would classify to, unwrapping
// already-classified errors without re-deriving their category.
func CategoryOf(err error) Category {
	if err == nil {
		return CategoryUnknown
	}
	var classified *PipelineError
	if errors.As(err, &classified) {
		return classified.Category
	}
	return Classify(err.Error())
}

// IsRetryable reports whether the error's recovery policy is retry.
func IsRetryable(err error) bool {
	return RecoveryFor(CategoryOf(err)) == RecoveryRetry
}

// IsFatal reports whether the error's recovery policy aborts the run.
func IsFatal(err error) bool {
	return RecoveryFor(CategoryOf(err)) == RecoveryFatal
}

// RequiresUser reports whether the error needs human intervention before a
// rerun can succeed.
func RequiresUser(err error) bool {
	return RecoveryFor(CategoryOf(err)) == RecoveryUserAction
}
