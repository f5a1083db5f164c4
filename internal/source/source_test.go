package source_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mailscope/mailscope/internal/source"
	"github.com/mailscope/mailscope/types"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	return s.data, s.err
}

func TestStatic(t *testing.T) {
	s := source.NewStatic("a.com\r\n  b.com  \n\nc.com")
	lines, err := s.Lines(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com", "", "c.com"}, lines)
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.txt")
	assert.NoError(t, os.WriteFile(path, []byte("a.com\nb.com\n"), 0o644))

	f := source.NewFile(path)
	lines, err := f.Lines(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com", ""}, lines)
}

func TestFile_Missing(t *testing.T) {
	f := source.NewFile(filepath.Join(t.TempDir(), "nope.txt"))
	_, err := f.Lines(context.Background())
	var connErr *types.ConnectionError
	assert.ErrorAs(t, err, &connErr)
}

func TestRemote(t *testing.T) {
	r := source.NewRemote("https://example.com/list.txt", &stubFetcher{data: []byte("a.com\nb.com")})
	lines, err := r.Lines(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, []string{"a.com", "b.com"}, lines)

	r = source.NewRemote("https://example.com/list.txt", &stubFetcher{err: errors.New("boom")})
	_, err = r.Lines(context.Background())
	assert.Error(t, err)
}
