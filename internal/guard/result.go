// Package guard runs hook units of work under a wall-clock deadline,
// retries transient failures with exponential backoff, and converts every
// failure into a typed result. Nothing escapes the guard as a panic or an
// unclassified error; the invoking host only understands exit codes and
// JSON, so faults have to be recovered here.
package guard

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind classifies a guarded failure.
type ErrorKind string

const (
	// KindTimeout means the unit exceeded its wall-clock budget.
	KindTimeout ErrorKind = "timeout"
	// KindNotFound means a required external command is not installed.
	KindNotFound ErrorKind = "not_found"
	// KindProcessFailure means the unit ran but reported failure.
	KindProcessFailure ErrorKind = "process_failure"
	// KindIOFailure means state persistence failed.
	KindIOFailure ErrorKind = "io_failure"
	// KindCorruptState means persisted state exists but cannot be parsed.
	KindCorruptState ErrorKind = "corrupt_state"
	// KindUnexpected is everything that fits no other bucket.
	KindUnexpected ErrorKind = "unexpected"
)

// maxMessageLen bounds diagnostic text so oversized stack traces or build
// logs never leak into host-visible output.
const maxMessageLen = 200

// Result is the outcome of one guarded execution. Exactly one of Output
// and ErrorKind is meaningful: Output when Succeeded, ErrorKind otherwise.
type Result struct {
	Succeeded    bool          `json:"succeeded"`
	Output       any           `json:"output,omitempty"`
	ErrorKind    ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"-"`

	// transient marks the failure eligible for retry. Internal to the
	// guard's retry loop; callers see only Attempts.
	transient bool
}

// Failed reports whether the result is a failure of the given kind.
func (r Result) Failed(kind ErrorKind) bool {
	return !r.Succeeded && r.ErrorKind == kind
}

// Failure is a pre-classified error a unit of work may return to control
// how the guard reports and retries it.
type Failure struct {
	Kind      ErrorKind
	Message   string
	Transient bool // transient failures are eligible for retry
}

func (f *Failure) Error() string {
	if f.Message == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFailure builds a non-transient Failure.
func NewFailure(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewTransientFailure builds a Failure the guard may retry.
func NewTransientFailure(kind ErrorKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Message: fmt.Sprintf(format, args...), Transient: true}
}

// Truncate caps s at maxMessageLen, trimming surrounding whitespace first.
func Truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxMessageLen {
		return s[:maxMessageLen-3] + "..."
	}
	return s
}
