package check

import (
	"strings"

	"github.com/mailscope/mailscope/internal/parse"
)

// Validity holds the per-part syntax verdicts for one address.
// Downstream checks gate on these: hostname-scoped checks require
// Hostname, mailbox-scoped checks require Username.
type Validity struct {
	Username bool `json:"username"`
	PlusTag  bool `json:"plusTag"`
	Hostname bool `json:"hostname"`
}

// OK reports whether every part of the address is well-formed.
func (v Validity) OK() bool {
	return v.Username && v.PlusTag && v.Hostname
}

// SyntaxChecker validates the grammar of a decomposed address.
// It implements a practical subset of RFC 5322 (local part) and
// RFC 1035 (hostname), not the full grammars.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

func (c *SyntaxChecker) Check(addr parse.Address) Validity {
	return Validity{
		Username: IsUsernameValid(addr.Username),
		PlusTag:  IsPlusTagValid(addr.PlusTag),
		Hostname: IsHostnameValid(addr.Hostname),
	}
}

// atom characters permitted in an unquoted local part (RFC 5322 atext).
const atomChars = "!#$%&'*+/=?^_`{|}~-"

func isAtomChar(ch byte) bool {
	if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
		return true
	}
	return strings.IndexByte(atomChars, ch) >= 0
}

// IsUsernameValid reports whether the username is a valid local part:
// either a quoted string or dot-separated atoms, 1 to 64 bytes.
func IsUsernameValid(username string) bool {
	if len(username) == 0 || len(username) > 64 {
		return false
	}

	if strings.HasPrefix(username, `"`) && strings.HasSuffix(username, `"`) && len(username) >= 2 {
		return isQuotedLocalValid(username[1 : len(username)-1])
	}

	return isDotAtomValid(username)
}

// isQuotedLocalValid validates the interior of a quoted local part:
// no unescaped quote, no CR/LF, and every backslash must escape a
// following character.
func isQuotedLocalValid(inner string) bool {
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '\\':
			if i == len(inner)-1 {
				return false
			}
			i++ // escaped character, whatever it is
		case '"', '\r', '\n':
			return false
		}
	}
	return true
}

// isDotAtomValid validates dot-separated atoms: atom charset only,
// no leading, trailing or double dot.
func isDotAtomValid(s string) bool {
	if strings.HasPrefix(s, ".") || strings.HasSuffix(s, ".") || strings.Contains(s, "..") {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			continue
		}
		if !isAtomChar(s[i]) {
			return false
		}
	}
	return true
}

// IsPlusTagValid reports whether the plus-tag is valid: empty, or any
// run of atom characters and literal dots. Unlike the username, dot
// placement is unrestricted.
func IsPlusTagValid(tag string) bool {
	for i := 0; i < len(tag); i++ {
		if tag[i] == '.' {
			continue
		}
		if !isAtomChar(tag[i]) {
			return false
		}
	}
	return true
}

// IsHostnameValid reports whether the hostname is a valid DNS name:
// at most 253 bytes, labels of 1 to 63 characters from [A-Za-z0-9-]
// with no leading or trailing hyphen. Unicode labels are expected to
// arrive already in Punycode form.
func IsHostnameValid(hostname string) bool {
	if len(hostname) == 0 || len(hostname) > 253 {
		return false
	}
	if strings.HasPrefix(hostname, ".") || strings.HasSuffix(hostname, ".") {
		return false
	}

	for _, label := range strings.Split(hostname, ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			ch := label[i]
			ok := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
				(ch >= '0' && ch <= '9') || ch == '-'
			if !ok {
				return false
			}
		}
	}
	return true
}
