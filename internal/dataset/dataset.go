// Package dataset implements an allow/deny-aware membership matcher
// over a line-oriented dataset. The same matcher backs the
// disposable-domain, free-provider and role-based-username checks.
package dataset

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/idna"

	"github.com/mailscope/mailscope/internal/source"
	"github.com/mailscope/mailscope/types"
)

// Mode selects how lookup keys are expanded into candidates.
type Mode int

const (
	// ModeExact matches the key as-is (username datasets).
	ModeExact Mode = iota
	// ModeHierarchical matches the full hostname and every ancestor
	// down to its two-label suffix (domain datasets).
	ModeHierarchical
)

// Match is the outcome of one membership check.
type Match struct {
	// Hit reports whether the key counts as a dataset member after
	// allow/deny evaluation.
	Hit bool `json:"hit"`
	// MatchedOn is the candidate that produced the verdict, empty
	// when nothing matched.
	MatchedOn string `json:"matchedOn,omitempty"`
	// Source is the layer that produced the verdict.
	Source types.Source `json:"source,omitempty"`
}

// Matcher holds a base dataset snapshot plus caller-supplied allow
// and deny sets. Precedence is allow > deny > base. The base snapshot
// is replaced atomically on Refresh; allow and deny are fixed at
// construction.
type Matcher struct {
	mode     Mode
	provider source.Source
	allow    map[string]struct{}
	deny     map[string]struct{}
	log      *logrus.Logger

	mu   sync.Mutex // serializes Refresh
	base atomic.Pointer[map[string]struct{}]
}

// New creates a Matcher. Allow and deny entries are normalized the
// same way dataset lines are. The base dataset is empty until the
// first Refresh.
func New(mode Mode, provider source.Source, allow, deny []string, log *logrus.Logger) *Matcher {
	return &Matcher{
		mode:     mode,
		provider: provider,
		allow:    normalizeSet(allow, log),
		deny:     normalizeSet(deny, log),
		log:      log,
	}
}

// Refresh reloads the base dataset and swaps the snapshot atomically.
// On provider failure the previous snapshot stays in effect.
func (m *Matcher) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lines, err := m.provider.Lines(ctx)
	if err != nil {
		return err
	}

	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		key, ok := normalizeEntry(line)
		if !ok {
			if m.log != nil {
				m.log.WithField("entry", line).Warn("skipping malformed dataset entry")
			}
			continue
		}
		set[key] = struct{}{}
	}

	m.base.Store(&set)
	return nil
}

// Len returns the size of the current base snapshot (for diagnostics).
func (m *Matcher) Len() int {
	if set := m.base.Load(); set != nil {
		return len(*set)
	}
	return 0
}

// Check evaluates the key against allow, then deny, then the base
// dataset. The allow layer always wins: an allow hit means
// not-a-member even if the same key sits in deny or base.
func (m *Matcher) Check(key string) Match {
	candidates := m.candidates(key)
	if len(candidates) == 0 {
		return Match{}
	}

	for _, c := range candidates {
		if _, ok := m.allow[c]; ok {
			return Match{Hit: false, MatchedOn: c, Source: types.SourceAllow}
		}
	}
	for _, c := range candidates {
		if _, ok := m.deny[c]; ok {
			return Match{Hit: true, MatchedOn: c, Source: types.SourceDeny}
		}
	}

	if set := m.base.Load(); set != nil {
		for _, c := range candidates {
			if _, ok := (*set)[c]; ok {
				return Match{Hit: true, MatchedOn: c, Source: types.SourceDefault}
			}
		}
	}
	return Match{}
}

// candidates expands the key according to the matcher mode. In
// hierarchical mode a single-label key yields no candidates, so bare
// TLD-like hosts can never match.
func (m *Matcher) candidates(key string) []string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	if m.mode == ModeExact {
		return []string{key}
	}

	labels := strings.Split(key, ".")
	if len(labels) < 2 {
		return nil
	}
	out := make([]string, 0, len(labels)-1)
	for i := 0; i <= len(labels)-2; i++ {
		out = append(out, strings.Join(labels[i:], "."))
	}
	return out
}

func normalizeSet(entries []string, log *logrus.Logger) map[string]struct{} {
	set := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		key, ok := normalizeEntry(strings.TrimSpace(e))
		if !ok {
			if log != nil {
				log.WithField("entry", e).Warn("skipping malformed dataset entry")
			}
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

// normalizeEntry lowercases the entry and converts Unicode hostnames
// to their Punycode form.
func normalizeEntry(entry string) (string, bool) {
	entry = strings.ToLower(entry)
	for _, r := range entry {
		if r > 127 {
			ascii, err := idna.Lookup.ToASCII(entry)
			if err != nil {
				return "", false
			}
			return ascii, true
		}
	}
	return entry, entry != ""
}
