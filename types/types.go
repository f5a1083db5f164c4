// Package types contains the shared types for mailscope.
// This package does not import anything from other mailscope packages
// to avoid circular imports.
package types

import "fmt"

// Status is the outcome class of a single check.
type Status int

const (
	// StatusPassed means the check ran and reached a positive verdict.
	StatusPassed Status = iota + 1
	// StatusFailed means the check ran and reached a definitive
	// negative verdict. Failed is never used for I/O problems.
	StatusFailed
	// StatusSkipped means the check did not run, either because it is
	// disabled or because a precondition (valid hostname, resolved MX
	// records, ...) did not hold.
	StatusSkipped
	// StatusErrored means a collaborator failed (DNS backend, SMTP
	// transport, HTTP endpoint). The address itself was not judged.
	StatusErrored
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// CheckResult is the outcome of one check: exactly one of the four
// statuses is active. Passed and Failed may carry a check-specific
// payload, Errored carries the collaborator error.
//
// The zero value is a Skipped result, so an unset field of an
// aggregate result reads as "did not run".
type CheckResult[T any] struct {
	status  Status
	data    T
	hasData bool
	err     error
}

// Passed constructs a Passed result carrying data.
func Passed[T any](data T) CheckResult[T] {
	return CheckResult[T]{status: StatusPassed, data: data, hasData: true}
}

// Failed constructs a Failed result carrying data explaining the verdict.
func Failed[T any](data T) CheckResult[T] {
	return CheckResult[T]{status: StatusFailed, data: data, hasData: true}
}

// FailedEmpty constructs a Failed result without a payload.
func FailedEmpty[T any]() CheckResult[T] {
	return CheckResult[T]{status: StatusFailed}
}

// Skipped constructs a Skipped result.
func Skipped[T any]() CheckResult[T] {
	return CheckResult[T]{status: StatusSkipped}
}

// Errored constructs an Errored result wrapping the collaborator error.
func Errored[T any](err error) CheckResult[T] {
	return CheckResult[T]{status: StatusErrored, err: err}
}

// Status returns the active variant. The zero value reports StatusSkipped.
func (r CheckResult[T]) Status() Status {
	if r.status == 0 {
		return StatusSkipped
	}
	return r.status
}

// Passed reports whether the check reached a positive verdict.
func (r CheckResult[T]) Passed() bool { return r.status == StatusPassed }

// Failed reports whether the check reached a definitive negative verdict.
func (r CheckResult[T]) Failed() bool { return r.status == StatusFailed }

// Skipped reports whether the check did not run.
func (r CheckResult[T]) Skipped() bool { return r.Status() == StatusSkipped }

// Errored reports whether a collaborator failed during the check.
func (r CheckResult[T]) Errored() bool { return r.status == StatusErrored }

// Data returns the payload and whether one is attached.
// Only Passed and Failed results can carry a payload.
func (r CheckResult[T]) Data() (T, bool) { return r.data, r.hasData }

// Err returns the collaborator error of an Errored result, nil otherwise.
func (r CheckResult[T]) Err() error { return r.err }

// MxRecord is one mail-exchanger record for a hostname.
type MxRecord struct {
	// Exchange is the mail server hostname, without trailing dot.
	Exchange string `json:"exchange"`
	// Priority is the preference value; lower means more preferred.
	Priority uint16 `json:"priority"`
}

// SmtpResponse is one reply from an SMTP server: the 3-digit status
// code and the (possibly multi-line, joined) message text.
type SmtpResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Source identifies which dataset layer produced a membership verdict.
type Source string

const (
	// SourceAllow means an allowlist entry suppressed the match.
	SourceAllow Source = "allow"
	// SourceDeny means a denylist entry forced the match.
	SourceDeny Source = "deny"
	// SourceDefault means the base dataset produced the match.
	SourceDefault Source = "default"
)
