package check_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mailscope/mailscope/check"
	"github.com/mailscope/mailscope/internal/parse"
	"github.com/mailscope/mailscope/types"
)

// scriptedSMTPServer simulates an SMTP server on one end of a
// net.Pipe. rcptReplies are consumed one per RCPT TO command, so the
// deliverability probe and the catch-all probe can answer differently.
func scriptedSMTPServer(server net.Conn, banner string, replies map[string]string, rcptReplies []string) {
	defer func() { _ = server.Close() }()

	_, _ = fmt.Fprintf(server, "%s\r\n", banner)

	rcpt := 0
	buf := make([]byte, 4096)
	for {
		n, err := server.Read(buf)
		if err != nil {
			return
		}
		cmd := string(buf[:n])

		switch {
		case strings.HasPrefix(cmd, "QUIT"):
			_, _ = fmt.Fprintf(server, "221 Bye\r\n")
			return
		case strings.HasPrefix(cmd, "RCPT TO"):
			reply := "250 OK"
			if rcpt < len(rcptReplies) {
				reply = rcptReplies[rcpt]
			}
			rcpt++
			_, _ = fmt.Fprintf(server, "%s\r\n", reply)
		default:
			for prefix, reply := range replies {
				if strings.HasPrefix(cmd, prefix) {
					_, _ = fmt.Fprintf(server, "%s\r\n", reply)
					break
				}
			}
		}
	}
}

func pipeDial(banner string, rcptReplies ...string) check.DialFunc {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		client, server := net.Pipe()
		go scriptedSMTPServer(server, banner, map[string]string{
			"HELO":      "250 OK",
			"MAIL FROM": "250 OK",
		}, rcptReplies)
		return client, nil
	}
}

func testConfig(catchAll bool) check.SMTPConfig {
	return check.SMTPConfig{
		HelloDomain:   "probe.test",
		FromAddress:   "verify@probe.test",
		Timeout:       2 * time.Second,
		MaxRetries:    1,
		CheckCatchAll: catchAll,
	}
}

func mustParse(t *testing.T, raw string) parse.Address {
	t.Helper()
	addr, err := parse.Parse(raw)
	assert.NoError(t, err)
	return addr
}

var testRecords = []types.MxRecord{{Exchange: "mx.example.com", Priority: 10}}

func TestSMTPProber_AcceptedRCPT(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		pipeDial("220 mx.example.com ESMTP", "250 Recipient OK"))

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, 250, out.Response.Code)
	assert.Equal(t, "mx.example.com", out.Host)
	assert.Nil(t, out.CatchAll)
}

func TestSMTPProber_RejectedRCPT(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		pipeDial("220 mx.example.com ESMTP", "550 User unknown"))

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.False(t, out.Deliverable)
	assert.Equal(t, 550, out.Response.Code)
}

func TestSMTPProber_EmptyRecordsNoDial(t *testing.T) {
	dialed := false
	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		func(context.Context, string, string) (net.Conn, error) {
			dialed = true
			return nil, errors.New("must not dial")
		})

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), nil)
	assert.NoError(t, err)
	assert.False(t, out.Deliverable)
	assert.False(t, dialed)
}

func TestSMTPProber_FailoverToSecondHost(t *testing.T) {
	records := []types.MxRecord{
		{Exchange: "mx1.example.com", Priority: 10},
		{Exchange: "mx2.example.com", Priority: 20},
	}
	good := pipeDial("220 mx2.example.com ESMTP", "250 OK")

	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		func(ctx context.Context, network, address string) (net.Conn, error) {
			if strings.HasPrefix(address, "mx1.") {
				return nil, errors.New("connection refused")
			}
			return good(ctx, network, address)
		})

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), records)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, "mx2.example.com", out.Host)
}

func TestSMTPProber_RetriesSameHost(t *testing.T) {
	attempts := 0
	good := pipeDial("220 mx.example.com ESMTP", "250 OK")

	cfg := testConfig(false)
	cfg.MaxRetries = 3
	p := check.NewSMTPProberWithDial(cfg, nil,
		func(ctx context.Context, network, address string) (net.Conn, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset")
			}
			return good(ctx, network, address)
		})

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, 3, attempts)
}

func TestSMTPProber_AllHostsFailIsConnectionError(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		func(context.Context, string, string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		})

	_, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	var ce *types.ConnectionError
	assert.True(t, errors.As(err, &ce), "expected ConnectionError, got %v", err)
}

func TestSMTPProber_BadBannerIsTransportFailure(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		pipeDial("554 Go away", "250 OK"))

	_, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	var ce *types.ConnectionError
	assert.True(t, errors.As(err, &ce), "expected ConnectionError, got %v", err)
}

func TestSMTPProber_CatchAllAccepted(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(true), nil,
		pipeDial("220 mx ESMTP", "250 OK", "250 OK"))

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	if assert.NotNil(t, out.CatchAll) {
		assert.True(t, *out.CatchAll)
	}
}

func TestSMTPProber_CatchAllRejected(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(true), nil,
		pipeDial("220 mx ESMTP", "250 OK", "550 No such user"))

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	if assert.NotNil(t, out.CatchAll) {
		assert.False(t, *out.CatchAll)
	}
}

func TestSMTPProber_CatchAllInconclusive(t *testing.T) {
	p := check.NewSMTPProberWithDial(testConfig(true), nil,
		pipeDial("220 mx ESMTP", "250 OK", "450 Greylisted"))

	out, err := p.Probe(context.Background(), mustParse(t, "john@example.com"), testRecords)
	assert.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Nil(t, out.CatchAll)
}

func TestSMTPProber_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := check.NewSMTPProberWithDial(testConfig(false), nil,
		func(ctx context.Context, _, _ string) (net.Conn, error) {
			return nil, ctx.Err()
		})

	_, err := p.Probe(ctx, mustParse(t, "john@example.com"), testRecords)
	var ce *types.ConnectionError
	assert.True(t, errors.As(err, &ce), "expected ConnectionError, got %v", err)
	assert.True(t, errors.Is(err, context.Canceled))
}
