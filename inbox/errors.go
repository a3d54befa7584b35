package inbox

import "fmt"

// ValidationError reports a problem with user input that must be fixed before
// any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// PartialDataError signals that a thread-detail fetch came back unusable and
// the caller should fall back to the single message it already holds.
type PartialDataError struct {
	ThreadID string
	Cause    error
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("partial thread data for %s: %v", e.ThreadID, e.Cause)
}

func (e *PartialDataError) Unwrap() error { return e.Cause }
