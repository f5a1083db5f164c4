package mailscope

import (
	"github.com/mailscope/mailscope/check"
	"github.com/mailscope/mailscope/types"
)

// Result is the full outcome of verifying one address. Each field is
// a four-state CheckResult; fields of checks that were disabled or
// whose preconditions did not hold read as Skipped. A Result is
// immutable once returned.
type Result struct {
	// Email is the raw input.
	Email string `json:"email"`
	// Parts is the decomposed address; zero value when parsing failed.
	Parts AddressParts `json:"parts"`

	// Syntax carries the per-part grammar verdicts. Failed with no
	// payload means the address did not even parse.
	Syntax CheckResult[check.Validity] `json:"-"`
	// Registrable carries the registrable domain when one exists.
	Registrable CheckResult[string] `json:"-"`
	// Disposable fails when the hostname belongs to a disposable
	// mail provider; the payload names the matched entry.
	Disposable CheckResult[check.Match] `json:"-"`
	// FreeProvider fails when the hostname belongs to a free mailbox
	// provider.
	FreeProvider CheckResult[check.Match] `json:"-"`
	// RoleAccount fails when the username is a role mailbox
	// (postmaster, info, ...).
	RoleAccount CheckResult[check.Match] `json:"-"`
	// MX carries the resolved mail-exchanger records; Failed with an
	// empty payload means the hostname has none.
	MX CheckResult[[]MxRecord] `json:"-"`
	// SMTP carries the deliverability probe outcome.
	SMTP CheckResult[check.SMTPOutcome] `json:"-"`
	// Gravatar carries the avatar URL when one exists.
	Gravatar CheckResult[string] `json:"-"`

	// Suggestion is a did-you-mean hostname for likely typos of
	// well-known providers. Informational only, never fails a check.
	Suggestion string `json:"suggestion,omitempty"`
}

// IsLikelyDeliverable reports whether none of the strong indicators
// failed: syntax, registrability, MX and disposable. Errored and
// Skipped checks never make this false on their own.
func (r Result) IsLikelyDeliverable() bool {
	strong := []Status{
		r.Syntax.Status(),
		r.Registrable.Status(),
		r.MX.Status(),
		r.Disposable.Status(),
	}
	for _, s := range strong {
		if s == types.StatusFailed {
			return false
		}
	}
	return true
}
