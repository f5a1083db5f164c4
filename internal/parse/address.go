// Package parse decomposes raw email addresses into their parts.
// The check/ packages receive the resulting Address as parameter.
package parse

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/mailscope/mailscope/types"
)

// Address is the decomposed form of an email address. The Hostname is
// always in ASCII-compatible (Punycode) form. Values are derived
// purely from the input text and never mutated after creation.
type Address struct {
	Username string // local part before the first '+'
	PlusTag  string // local part after the first '+', empty if none
	Hostname string // part after '@', lowercased, IDNA ToASCII
}

// Parse splits raw into username, plus-tag and hostname.
// The input must contain exactly one '@'; anything else is a
// *types.FormatError. Unicode hostnames are normalized to Punycode.
func Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)

	if strings.Count(raw, "@") != 1 {
		return Address{}, &types.FormatError{Input: raw, Reason: "expected exactly one '@'"}
	}

	at := strings.Index(raw, "@")
	local, host := raw[:at], raw[at+1:]
	if local == "" {
		return Address{}, &types.FormatError{Input: raw, Reason: "empty local part"}
	}
	if host == "" {
		return Address{}, &types.FormatError{Input: raw, Reason: "empty hostname"}
	}

	username := local
	plusTag := ""
	if plus := strings.Index(local, "+"); plus >= 0 {
		username = local[:plus]
		plusTag = local[plus+1:]
	}

	ascii, err := normalizeHostname(host)
	if err != nil {
		return Address{}, &types.FormatError{Input: raw, Reason: "hostname: " + err.Error()}
	}

	return Address{
		Username: username,
		PlusTag:  plusTag,
		Hostname: ascii,
	}, nil
}

// String reassembles the address without the plus-tag. This is the
// canonical form used for hash-keyed lookups.
func (a Address) String() string {
	return a.Username + "@" + a.Hostname
}

// normalizeHostname lowercases the hostname and converts Unicode
// labels to their Punycode form. Pure-ASCII hostnames pass through
// unchanged so that structurally invalid inputs (double dots, bad
// hyphens) reach the syntax validator instead of erroring here.
func normalizeHostname(host string) (string, error) {
	host = strings.ToLower(host)

	for _, r := range host {
		if r > 127 {
			return idna.Lookup.ToASCII(host)
		}
	}
	return host, nil
}
