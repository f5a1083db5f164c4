package check

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"

	"github.com/mailscope/mailscope/types"
)

// Resolver returns the mail-exchanger records for a hostname, sorted
// by ascending priority (most preferred first). "No MX records" is a
// valid outcome: an empty slice with a nil error. Only backend I/O
// failures produce an error, always a *types.ConnectionError.
type Resolver interface {
	LookupMX(ctx context.Context, hostname string) ([]types.MxRecord, error)
}

// MXLookuper is the subset of net.Resolver the system backend needs.
// Injectable for testing.
type MXLookuper interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// StdResolver resolves MX records through the system resolver.
type StdResolver struct {
	r MXLookuper
}

func NewStdResolver() *StdResolver {
	return &StdResolver{r: net.DefaultResolver}
}

// NewStdResolverWith overrides the underlying lookup, e.g. with a
// mock DNS server in tests.
func NewStdResolverWith(r MXLookuper) *StdResolver {
	return &StdResolver{r: r}
}

func (s *StdResolver) LookupMX(ctx context.Context, hostname string) ([]types.MxRecord, error) {
	mxs, err := s.r.LookupMX(ctx, hostname)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return []types.MxRecord{}, nil
		}
		return nil, &types.ConnectionError{Op: "MX lookup for " + hostname, Err: err}
	}

	records := make([]types.MxRecord, 0, len(mxs))
	for _, mx := range mxs {
		records = append(records, types.MxRecord{
			Exchange: strings.TrimSuffix(mx.Host, "."),
			Priority: mx.Pref,
		})
	}
	sortRecords(records)
	return records, nil
}

// sortRecords orders by ascending priority value, the conventional
// MX preference order. Ties keep a stable exchange order.
func sortRecords(records []types.MxRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})
}
