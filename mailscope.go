// Package mailscope assesses whether an email address is
// syntactically valid and likely to be a real, acceptable mailbox,
// without sending mail.
//
// Basic usage:
//
//	result, err := mailscope.New().Verify(ctx, "user@example.com")
//
// Full pipeline:
//
//	v := mailscope.New().
//	    WithRegistrability().
//	    WithDisposable().
//	    WithFreeProvider().
//	    WithRoleAccount().
//	    WithMX().
//	    WithSMTP(mailscope.SMTPOptions{
//	        HelloDomain: "myapp.com",
//	        FromAddress: "verify@myapp.com",
//	    }).
//	    WithGravatar()
//	result, err := v.Verify(ctx, "user@example.com")
//
// Every check resolves to one of four states: Passed, Failed, Skipped
// or Errored. Failed is a definitive negative verdict about the
// address; Errored means an external collaborator (DNS backend, SMTP
// transport, HTTP endpoint) broke and says nothing about the address.
package mailscope

import (
	"github.com/mailscope/mailscope/check"
	"github.com/mailscope/mailscope/internal/parse"
	"github.com/mailscope/mailscope/types"
)

// CheckResult is a re-export from the types package so that consumers
// don't need to import the types package directly.
type CheckResult[T any] = types.CheckResult[T]

// Status and its constants, re-exported.
type Status = types.Status

const (
	StatusPassed  = types.StatusPassed
	StatusFailed  = types.StatusFailed
	StatusSkipped = types.StatusSkipped
	StatusErrored = types.StatusErrored
)

// AddressParts is the decomposed form of a verified address.
type AddressParts = parse.Address

// MxRecord is a re-export.
type MxRecord = types.MxRecord

// SmtpResponse is a re-export.
type SmtpResponse = types.SmtpResponse

// FormatError is a re-export.
type FormatError = types.FormatError

// ConnectionError is a re-export.
type ConnectionError = types.ConnectionError

// DialFunc is the transport override for the SMTP probe.
type DialFunc = check.DialFunc
