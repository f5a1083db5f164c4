package types

import "fmt"

// FormatError reports a syntactically malformed email address.
// It short-circuits the syntax check and is never returned to the
// caller of Verify.
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed address %q: %s", e.Input, e.Reason)
}

// ConnectionError reports an I/O or HTTP failure of an external
// collaborator (DNS backend, SMTP transport, avatar endpoint).
// A check that hits one surfaces as Errored, never as Failed.
type ConnectionError struct {
	Op  string // short description of the failed operation
	Err error  // underlying cause, may be nil for HTTP status failures
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }
