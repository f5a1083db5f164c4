package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mailscope/mailscope/types"
)

// DoHResolver resolves MX records through a DNS-over-HTTPS JSON
// endpoint (the Google/Cloudflare resolve API dialect).
type DoHResolver struct {
	base   string
	client *http.Client
}

// NewDoHResolver creates a resolver querying the given endpoint,
// e.g. "https://dns.google/resolve".
func NewDoHResolver(base string, timeout time.Duration) *DoHResolver {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &DoHResolver{
		base:   base,
		client: &http.Client{Timeout: timeout},
	}
}

// dohAnswer mirrors the relevant part of the JSON response.
type dohAnswer struct {
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		Data string `json:"data"`
	} `json:"Answer"`
}

const typeMX = 15

func (r *DoHResolver) LookupMX(ctx context.Context, hostname string) ([]types.MxRecord, error) {
	u := fmt.Sprintf("%s?name=%s&type=MX", r.base, url.QueryEscape(hostname))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &types.ConnectionError{Op: "build DoH request for " + hostname, Err: err}
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, &types.ConnectionError{Op: "DoH query for " + hostname, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return nil, &types.ConnectionError{
			Op: fmt.Sprintf("DoH query for %s: unexpected status %d", hostname, resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.ConnectionError{Op: "read DoH response for " + hostname, Err: err}
	}

	var parsed dohAnswer
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &types.ConnectionError{Op: "decode DoH response for " + hostname, Err: err}
	}

	// An absent or empty Answer array means "no MX records", which is
	// a definitive outcome rather than an error.
	records := make([]types.MxRecord, 0, len(parsed.Answer))
	for _, ans := range parsed.Answer {
		if ans.Type != typeMX {
			continue
		}
		rec, ok := parseMXData(ans.Data)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	sortRecords(records)
	return records, nil
}

// parseMXData parses the "<priority> <exchange>." data field of an MX
// answer, stripping the trailing dot.
func parseMXData(data string) (types.MxRecord, bool) {
	var priority uint16
	var exchange string
	if _, err := fmt.Sscanf(data, "%d %s", &priority, &exchange); err != nil {
		return types.MxRecord{}, false
	}
	exchange = strings.TrimSuffix(exchange, ".")
	if exchange == "" {
		return types.MxRecord{}, false
	}
	return types.MxRecord{Exchange: exchange, Priority: priority}, true
}
