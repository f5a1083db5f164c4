package check

import (
	"context"

	"github.com/mailscope/mailscope/internal/psl"
)

// RegistrableChecker decides whether a hostname contains a registrable
// domain, using a public-suffix trie snapshot.
type RegistrableChecker struct {
	list *psl.List
}

func NewRegistrableChecker(list *psl.List) *RegistrableChecker {
	return &RegistrableChecker{list: list}
}

// Check returns the registrable domain for the hostname, if any.
func (c *RegistrableChecker) Check(hostname string) (string, bool) {
	return c.list.FindRegistrableDomain(hostname)
}

// Refresh reloads the suffix rules. On failure the previous snapshot
// stays in effect.
func (c *RegistrableChecker) Refresh(ctx context.Context) error {
	return c.list.Refresh(ctx)
}
