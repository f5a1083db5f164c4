// Package source abstracts where line-oriented datasets come from:
// a bundled snapshot, a local file, or a remote URL. The suffix-rule
// trie and the membership datasets both load through it.
package source

import (
	"context"
	"os"
	"strings"

	"github.com/mailscope/mailscope/internal/fetch"
	"github.com/mailscope/mailscope/types"
)

// Source yields the raw lines of one dataset. Interpretation of the
// lines (rule grammar, comment markers) is up to the consumer.
type Source interface {
	Lines(ctx context.Context) ([]string, error)
}

// Static serves lines from an in-memory snapshot, typically a
// go:embed bundled dataset.
type Static struct {
	text string
}

func NewStatic(text string) *Static {
	return &Static{text: text}
}

func (s *Static) Lines(_ context.Context) ([]string, error) {
	return splitLines(s.text), nil
}

// File serves lines from a local file, re-read on every load.
type File struct {
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Lines(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, &types.ConnectionError{Op: "read dataset file " + f.path, Err: err}
	}
	return splitLines(string(data)), nil
}

// Remote serves lines fetched from a URL through the fetch collaborator.
type Remote struct {
	url     string
	fetcher fetch.Fetcher
}

func NewRemote(url string, fetcher fetch.Fetcher) *Remote {
	return &Remote{url: url, fetcher: fetcher}
}

func (r *Remote) Lines(ctx context.Context) ([]string, error) {
	data, err := r.fetcher.Fetch(ctx, r.url)
	if err != nil {
		return nil, err
	}
	return splitLines(string(data)), nil
}

func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.TrimSpace(line))
	}
	return out
}
