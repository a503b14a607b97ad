package domain

import (
	"errors"
	"fmt"
)

// Core errors are values returned to the orchestrating caller; no
// component swallows one without including it in its result.
var (
	// ErrJobNotFound indicates the referenced job id does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrUnsupportedInput indicates ingestion received a file type
	// outside the accepted set. No side effects were performed.
	ErrUnsupportedInput = errors.New("unsupported file type")

	// ErrIndexUnavailable indicates the persistent index failed to
	// open or write. The call fails; the process survives and the
	// whole ingestion call may be retried.
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// ExtractionError reports a recoverable skill-extraction failure. The
// matching pipeline aborts before scoring and surfaces the cause to the
// caller as a structured result.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("could not extract skills from job description: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }
