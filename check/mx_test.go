package check_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/foxcpp/go-mockdns"
	"github.com/stretchr/testify/assert"

	"github.com/mailscope/mailscope/check"
	"github.com/mailscope/mailscope/types"
)

func TestStdResolver_SortsAscendingAndStripsDots(t *testing.T) {
	srv, err := mockdns.NewServer(map[string]mockdns.Zone{
		"example.com.": {
			MX: []net.MX{
				{Host: "backup.example.com.", Pref: 20},
				{Host: "primary.example.com.", Pref: 5},
			},
		},
	}, false)
	assert.NoError(t, err)
	defer func() { _ = srv.Close() }()

	var r net.Resolver
	srv.PatchNet(&r)

	records, err := check.NewStdResolverWith(&r).LookupMX(context.Background(), "example.com")
	assert.NoError(t, err)
	assert.Equal(t, []types.MxRecord{
		{Exchange: "primary.example.com", Priority: 5},
		{Exchange: "backup.example.com", Priority: 20},
	}, records)
}

func TestStdResolver_NoSuchHostIsEmptyNotError(t *testing.T) {
	srv, err := mockdns.NewServer(map[string]mockdns.Zone{}, false)
	assert.NoError(t, err)
	defer func() { _ = srv.Close() }()

	var r net.Resolver
	srv.PatchNet(&r)

	records, err := check.NewStdResolverWith(&r).LookupMX(context.Background(), "nothing.invalid")
	assert.NoError(t, err)
	assert.Empty(t, records)
}

type erroringLookuper struct{}

func (erroringLookuper) LookupMX(context.Context, string) ([]*net.MX, error) {
	return nil, &net.DNSError{Err: "server misbehaving", IsTemporary: true}
}

func TestStdResolver_BackendFailureIsConnectionError(t *testing.T) {
	_, err := check.NewStdResolverWith(erroringLookuper{}).LookupMX(context.Background(), "example.com")

	var ce *types.ConnectionError
	assert.True(t, errors.As(err, &ce), "expected ConnectionError, got %v", err)
}
