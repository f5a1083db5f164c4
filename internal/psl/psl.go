// Package psl implements a public-suffix-list trie used to decide
// whether a hostname contains a registrable domain.
package psl

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/mailscope/mailscope/internal/source"
)

// ruleRe is the accepted suffix-rule grammar: optional leading '!'
// (exception), optional '*.' wildcard prefix, dot-separated labels.
// Anything else on a line (comment banners included) is skipped.
var ruleRe = regexp.MustCompile(`^!?(\*\.)?[a-z0-9-]+(\.[a-z0-9-]+)*$`)

// node is one trie level, keyed by reversed domain label.
type node struct {
	children    map[string]*node
	isSuffix    bool
	isException bool
	isWildcard  bool
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func (n *node) child(label string) *node {
	c, ok := n.children[label]
	if !ok {
		c = newNode()
		n.children[label] = c
	}
	return c
}

// List is the suffix trie plus its rule source. Lookups read the
// current snapshot; Refresh builds a disjoint replacement tree and
// publishes it atomically, so readers never block on a rebuild for
// longer than the pointer swap.
type List struct {
	provider source.Source
	custom   []string
	log      *logrus.Logger

	mu   sync.Mutex // serializes Refresh
	root atomic.Pointer[node]
}

// New creates a List over the given rule source. Custom rules are
// applied after the provider set, so they can add or override rules.
// The List is empty until the first Refresh.
func New(provider source.Source, custom []string, log *logrus.Logger) *List {
	return &List{provider: provider, custom: custom, log: log}
}

// Refresh reloads the rules and swaps in a freshly built trie.
// On provider failure the previous snapshot stays in effect and the
// error is returned. Malformed rule lines are logged and skipped,
// never aborting the build.
func (l *List) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lines, err := l.provider.Lines(ctx)
	if err != nil {
		return err
	}

	root := newNode()
	for _, line := range lines {
		l.insert(root, line)
	}
	for _, rule := range l.custom {
		l.insert(root, strings.TrimSpace(rule))
	}

	l.root.Store(root)
	return nil
}

// insert adds one rule to the tree under construction.
func (l *List) insert(root *node, line string) {
	if line == "" {
		return
	}
	rule := strings.ToLower(line)
	if !ruleRe.MatchString(rule) {
		if l.log != nil {
			l.log.WithField("rule", line).Warn("skipping malformed suffix rule")
		}
		return
	}

	exception := strings.HasPrefix(rule, "!")
	rule = strings.TrimPrefix(rule, "!")

	labels := strings.Split(rule, ".")
	cur := root
	for i := len(labels) - 1; i >= 0; i-- {
		label := labels[i]
		if label == "*" {
			cur = cur.child("*")
			cur.isSuffix = true
			cur.isWildcard = true
			continue
		}
		cur = cur.child(label)
	}
	cur.isSuffix = true
	if exception {
		cur.isException = true
	}
}

// FindRegistrableDomain returns the registrable domain contained in
// hostname, if any. A single-label hostname is never registrable.
// A hostname matching no rule at all falls back to the implicit "*"
// rule, treating its last label as the public suffix.
//
// The function is a pure read over the current snapshot; it never
// observes a partially built tree.
func (l *List) FindRegistrableDomain(hostname string) (string, bool) {
	root := l.root.Load()
	if root == nil {
		return "", false
	}

	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	labels := strings.Split(hostname, ".")
	if len(labels) < 2 {
		return "", false
	}

	cur := root
	matched := 0
	for depth := 1; depth <= len(labels); depth++ {
		label := labels[len(labels)-depth]
		child, ok := cur.children[label]
		if !ok {
			child, ok = cur.children["*"]
		}
		if !ok {
			break
		}
		if child.isException {
			// The exception rule itself is the registrable domain.
			return joinTail(labels, depth), true
		}
		if child.isSuffix {
			matched = depth
		}
		cur = child
	}

	if matched == 0 {
		// No rule matched: implicit "*" rule, the bare TLD is the suffix.
		matched = 1
	}
	if len(labels) <= matched {
		return "", false
	}
	return joinTail(labels, matched+1), true
}

// joinTail joins the last n labels back into a domain string.
func joinTail(labels []string, n int) string {
	return strings.Join(labels[len(labels)-n:], ".")
}
