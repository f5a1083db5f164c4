package mailscope

import (
	"time"

	"github.com/mailscope/mailscope/check"
)

// RegistrabilityOptions configures the public-suffix rule source.
// With neither FilePath nor RemoteURL set, the bundled snapshot is
// used. Setting both is a configuration error.
type RegistrabilityOptions struct {
	// FilePath loads suffix rules from a local file.
	FilePath string
	// RemoteURL downloads suffix rules, e.g. the published public
	// suffix list.
	RemoteURL string
	// CustomRules are applied after the provider set, so they can add
	// or override rules.
	CustomRules []string
}

// DatasetOptions configures one membership dataset (disposable
// domains, free providers or role usernames).
type DatasetOptions struct {
	// FilePath loads the dataset from a local file.
	FilePath string
	// RemoteURL downloads the dataset.
	RemoteURL string
	// Allow entries are never treated as members, regardless of the
	// base dataset or Deny.
	Allow []string
	// Deny entries are always treated as members unless allowed.
	Deny []string
}

// MXOptions configures the MX resolution backend.
type MXOptions struct {
	// DoHEndpoint selects the DNS-over-HTTPS backend, e.g.
	// "https://dns.google/resolve". Empty selects the system resolver.
	DoHEndpoint string
	// Timeout is the per-lookup timeout. Default: 10s
	Timeout time.Duration
	// CacheTTL is how long successful lookups are cached. Default: 5m
	CacheTTL time.Duration
	// Resolver overrides the backend entirely (injectable for
	// testability); DoHEndpoint is ignored when set.
	Resolver check.Resolver
}

func defaultMXOptions() MXOptions {
	return MXOptions{
		Timeout:  10 * time.Second,
		CacheTTL: 5 * time.Minute,
	}
}

// SMTPOptions configures the deliverability probe.
type SMTPOptions struct {
	// HelloDomain is the domain sent in the HELO command. Required.
	HelloDomain string
	// FromAddress is the address sent in MAIL FROM. Required.
	FromAddress string
	// Port is the SMTP port. Default: 25
	Port int
	// Timeout bounds each socket operation. Default: 10s
	Timeout time.Duration
	// MaxRetries is the per-host retry budget on transport failures.
	// Default: 2
	MaxRetries int
	// CheckCatchAll enables the catch-all probe with a randomized
	// local part. Default behavior: disabled.
	CheckCatchAll bool
	// ProxyAddr optionally routes connections through a SOCKS5 proxy.
	ProxyAddr string
	// Dial overrides the transport (injectable for testability).
	Dial check.DialFunc
}

// GravatarOptions configures the avatar presence check.
type GravatarOptions struct {
	// Base is the avatar endpoint prefix. Default: the public
	// Gravatar endpoint.
	Base string
	// Timeout bounds the HTTP request. Default: 10s
	Timeout time.Duration
}

// SuggestionOptions configures hostname typo suggestions.
type SuggestionOptions struct {
	// Threshold is the maximum edit distance for a suggestion.
	// Default: 2
	Threshold int
	// Domains is the list of well-known mailbox domains compared
	// against. Default: a bundled list of major providers.
	Domains []string
}

func defaultSuggestionOptions() SuggestionOptions {
	return SuggestionOptions{
		Threshold: 2,
		Domains:   defaultSuggestionDomains,
	}
}

// defaultSuggestionDomains are the providers a mistyped hostname most
// likely meant.
var defaultSuggestionDomains = []string{
	"gmail.com", "googlemail.com",
	"yahoo.com", "yahoo.co.uk", "yahoo.fr", "yahoo.de",
	"outlook.com", "hotmail.com", "hotmail.co.uk", "live.com",
	"icloud.com", "me.com", "mac.com",
	"protonmail.com", "proton.me",
	"aol.com",
	"zoho.com",
	"yandex.com", "yandex.ru",
	"mail.com",
	"gmx.com", "gmx.net", "gmx.de",
	"fastmail.com",
	"tutanota.com",
}

// ConcurrencyOptions configures concurrent processing for VerifyMany.
type ConcurrencyOptions struct {
	// Workers is the number of concurrent goroutines. Default: 5
	Workers int
}
