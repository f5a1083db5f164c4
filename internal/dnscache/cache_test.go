package dnscache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mailscope/mailscope/internal/dnscache"
	"github.com/mailscope/mailscope/types"
)

type countingBackend struct {
	calls   atomic.Int32
	records []types.MxRecord
	err     error
	delay   time.Duration
}

func (b *countingBackend) LookupMX(_ context.Context, _ string) ([]types.MxRecord, error) {
	b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	return b.records, b.err
}

func TestCache_ServesFromCache(t *testing.T) {
	backend := &countingBackend{records: []types.MxRecord{{Exchange: "mx.example.com", Priority: 10}}}
	c := dnscache.New(backend, time.Minute)
	ctx := context.Background()

	first, err := c.LookupMX(ctx, "example.com")
	assert.NoError(t, err)
	second, err := c.LookupMX(ctx, "example.com")
	assert.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), backend.calls.Load())
	assert.Equal(t, 1, c.Len())
}

func TestCache_DoesNotCacheErrors(t *testing.T) {
	backend := &countingBackend{err: errors.New("backend down")}
	c := dnscache.New(backend, time.Minute)
	ctx := context.Background()

	_, err := c.LookupMX(ctx, "example.com")
	assert.Error(t, err)
	_, err = c.LookupMX(ctx, "example.com")
	assert.Error(t, err)

	assert.Equal(t, int32(2), backend.calls.Load())
	assert.Equal(t, 0, c.Len())
}

func TestCache_DeduplicatesConcurrentLookups(t *testing.T) {
	backend := &countingBackend{
		records: []types.MxRecord{{Exchange: "mx.example.com", Priority: 10}},
		delay:   50 * time.Millisecond,
	}
	c := dnscache.New(backend, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := c.LookupMX(context.Background(), "example.com")
			assert.NoError(t, err)
			assert.Len(t, records, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), backend.calls.Load())
}

func TestCache_ReturnsCopies(t *testing.T) {
	backend := &countingBackend{records: []types.MxRecord{
		{Exchange: "mx1.example.com", Priority: 10},
		{Exchange: "mx2.example.com", Priority: 20},
	}}
	c := dnscache.New(backend, time.Minute)
	ctx := context.Background()

	first, _ := c.LookupMX(ctx, "example.com")
	first[0].Exchange = "mutated"

	second, _ := c.LookupMX(ctx, "example.com")
	assert.Equal(t, "mx1.example.com", second[0].Exchange)
}

func TestCache_ExpiresEntries(t *testing.T) {
	backend := &countingBackend{records: []types.MxRecord{{Exchange: "mx.example.com", Priority: 10}}}
	c := dnscache.New(backend, 10*time.Millisecond)
	ctx := context.Background()

	_, _ = c.LookupMX(ctx, "example.com")
	time.Sleep(20 * time.Millisecond)
	_, _ = c.LookupMX(ctx, "example.com")

	assert.Equal(t, int32(2), backend.calls.Load())
}
