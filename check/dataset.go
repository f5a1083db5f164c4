package check

import (
	"context"

	"github.com/mailscope/mailscope/internal/dataset"
)

// Match is the payload of a dataset-backed check.
type Match = dataset.Match

// DatasetChecker answers membership questions against one dataset
// snapshot: disposable domains, free providers or role usernames.
type DatasetChecker struct {
	matcher *dataset.Matcher
}

func NewDatasetChecker(matcher *dataset.Matcher) *DatasetChecker {
	return &DatasetChecker{matcher: matcher}
}

// Check evaluates the key with allow > deny > base precedence.
func (c *DatasetChecker) Check(key string) Match {
	return c.matcher.Check(key)
}

// Refresh reloads the base dataset. On failure the previous snapshot
// stays in effect.
func (c *DatasetChecker) Refresh(ctx context.Context) error {
	return c.matcher.Refresh(ctx)
}
