package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/upb/qruntime/internal/params"
)

// ErrorType represents the category of a resolution error
type ErrorType string

const (
	ErrorTypeMissingParameter ErrorType = "missing_parameter"
	ErrorTypeExhausted        ErrorType = "resolution_exhausted"
)

var (
	// ErrMissingParameter matches every *MissingParameterError via errors.Is
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrExhausted matches every *ExhaustedError via errors.Is
	ErrExhausted = errors.New("resolution exhausted")
)

// MissingParameterError reports required parameters that no permitted source
// supplies. It is raised before any remote attempt and is never retried.
type MissingParameterError struct {
	Purpose Purpose
	Missing []params.Name
	// Sources lists the sources that were permitted to supply the values.
	Sources []string
}

// Error implements the error interface
func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("%s: %s requires %s (checked: %s)",
		ErrorTypeMissingParameter, e.Purpose, joinNames(e.Missing), strings.Join(e.Sources, ", "))
}

// Type returns the error category
func (e *MissingParameterError) Type() ErrorType { return ErrorTypeMissingParameter }

// Is implements errors.Is
func (e *MissingParameterError) Is(target error) bool {
	return target == ErrMissingParameter
}

// AttemptFailure is one failed candidate. It only ever appears inside an
// ExhaustedError.
type AttemptFailure struct {
	Rank  int
	Label string
	Err   error
	// Message is Err's text with known secrets redacted.
	Message string
}

func (f AttemptFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Label, f.Message)
}

// ExhaustedError is the terminal failure of a resolution: every permitted
// candidate failed, or no candidate could be built.
type ExhaustedError struct {
	Purpose  Purpose
	Failures []AttemptFailure
	// NoCandidates is set when no combination of sources supplied every
	// required parameter, so nothing was attempted.
	NoCandidates bool
	Required     []params.Name
	// Fallback records whether lower-priority sources were permitted.
	Fallback bool
}

// Error implements the error interface
func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", ErrorTypeExhausted, e.Purpose)

	if e.NoCandidates {
		fmt.Fprintf(&b, ": no source combination supplies %s", joinNames(e.Required))
		return b.String()
	}
	if !e.Fallback {
		b.WriteString(" failed (fallback disabled)")
	} else {
		fmt.Fprintf(&b, " failed after %d attempt(s)", len(e.Failures))
	}
	for i, f := range e.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(f.String())
	}
	return b.String()
}

// Type returns the error category
func (e *ExhaustedError) Type() ErrorType { return ErrorTypeExhausted }

// Is implements errors.Is
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Unwrap exposes every underlying attempt error, in attempt order.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errs
}

// Labels returns the attempted labels in order.
func (e *ExhaustedError) Labels() []string {
	labels := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		labels = append(labels, f.Label)
	}
	return labels
}

// IsMissingParameter checks if an error is a missing parameter error
func IsMissingParameter(err error) bool {
	var missing *MissingParameterError
	return errors.As(err, &missing)
}

// IsExhausted checks if an error is a resolution exhausted error
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

// GetErrorType returns the ErrorType of a resolution error, or empty string otherwise
func GetErrorType(err error) ErrorType {
	var missing *MissingParameterError
	if errors.As(err, &missing) {
		return missing.Type()
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		return exhausted.Type()
	}
	return ""
}

func joinNames(names []params.Name) string {
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, string(n))
	}
	return strings.Join(parts, ", ")
}
