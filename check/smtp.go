package check

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"

	"github.com/mailscope/mailscope/internal/parse"
	"github.com/mailscope/mailscope/internal/smtpconn"
	"github.com/mailscope/mailscope/types"
)

// DialFunc is re-exported so tests and callers can inject transports
// without importing the internal package.
type DialFunc = smtpconn.DialFunc

// SMTPConfig configures the deliverability probe.
type SMTPConfig struct {
	// HelloDomain is the domain announced in HELO. Required.
	HelloDomain string
	// FromAddress is the probe sender for MAIL FROM. Required.
	FromAddress string
	// Port is the SMTP port, default 25.
	Port int
	// Timeout bounds each I/O step (connect, read, write), default 10s.
	Timeout time.Duration
	// MaxRetries is how often one MX host is retried on transport
	// failure before moving to the next, default 2.
	MaxRetries int
	// CheckCatchAll enables the second RCPT with a random local part.
	CheckCatchAll bool
	// ProxyAddr optionally routes connections through a SOCKS5 proxy
	// ("host:port").
	ProxyAddr string
}

// SMTPOutcome is the payload of a completed probe.
type SMTPOutcome struct {
	// Deliverable is true when the server accepted RCPT TO with 2xx.
	Deliverable bool `json:"deliverable"`
	// CatchAll is nil when catch-all probing is disabled or was
	// inconclusive (response neither 2xx nor 5xx).
	CatchAll *bool `json:"catchAll,omitempty"`
	// Response is the server's reply to the RCPT TO probe.
	Response types.SmtpResponse `json:"response"`
	// Host is the MX exchange that completed the conversation.
	Host string `json:"host"`
}

// SMTPProber determines deliverability by speaking to the MX hosts of
// the address, in record order. It never sends message content.
type SMTPProber struct {
	cfg  SMTPConfig
	dial smtpconn.DialFunc
	log  *logrus.Logger
}

// NewSMTPProber creates a prober. Returns an error when the proxy
// address cannot be used.
func NewSMTPProber(cfg SMTPConfig, log *logrus.Logger) (*SMTPProber, error) {
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}

	p := &SMTPProber{cfg: cfg, log: log}
	if cfg.ProxyAddr != "" {
		socks, err := proxy.SOCKS5("tcp", cfg.ProxyAddr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("smtp proxy %s: %w", cfg.ProxyAddr, err)
		}
		cd, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("smtp proxy %s: dialer does not support contexts", cfg.ProxyAddr)
		}
		p.dial = cd.DialContext
	}
	return p, nil
}

// NewSMTPProberWithDial overrides the dial function, for tests.
func NewSMTPProberWithDial(cfg SMTPConfig, log *logrus.Logger, dial smtpconn.DialFunc) *SMTPProber {
	p, _ := NewSMTPProber(SMTPConfig{
		HelloDomain:   cfg.HelloDomain,
		FromAddress:   cfg.FromAddress,
		Port:          cfg.Port,
		Timeout:       cfg.Timeout,
		MaxRetries:    cfg.MaxRetries,
		CheckCatchAll: cfg.CheckCatchAll,
	}, log)
	p.dial = dial
	return p
}

// Probe walks the MX hosts in list order, retrying each up to
// MaxRetries times on transport failure. The first completed SMTP
// conversation decides the outcome: a rejected RCPT is a definitive
// negative, not an error. Only when every host/attempt combination
// fails at the transport level does Probe return a ConnectionError.
//
// An empty record list means not deliverable without any connection
// attempt.
func (p *SMTPProber) Probe(ctx context.Context, addr parse.Address, records []types.MxRecord) (SMTPOutcome, error) {
	if len(records) == 0 {
		return SMTPOutcome{Deliverable: false}, nil
	}

	var lastErr error
	for _, rec := range records {
		for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
			out, err := p.probeHost(ctx, rec.Exchange, addr)
			if err == nil {
				return out, nil
			}
			lastErr = err
			if p.log != nil {
				p.log.WithFields(logrus.Fields{
					"host":    rec.Exchange,
					"attempt": attempt,
				}).WithError(err).Debug("smtp probe transport failure")
			}
			if ctx.Err() != nil {
				return SMTPOutcome{}, &types.ConnectionError{Op: "smtp probe for " + addr.Hostname, Err: ctx.Err()}
			}
		}
	}
	return SMTPOutcome{}, &types.ConnectionError{Op: "smtp probe for " + addr.Hostname, Err: lastErr}
}

// probeHost runs one full conversation against a single MX host. Any
// returned error is transport-level; definitive verdicts come back in
// the outcome.
func (p *SMTPProber) probeHost(ctx context.Context, exchange string, addr parse.Address) (SMTPOutcome, error) {
	address := net.JoinHostPort(exchange, fmt.Sprintf("%d", p.cfg.Port))

	conn, err := smtpconn.Dial(ctx, address, p.cfg.Timeout, p.dial)
	if err != nil {
		return SMTPOutcome{}, err
	}
	defer func() { _ = conn.Close() }()

	banner, err := conn.ReadResponse()
	if err != nil {
		return SMTPOutcome{}, err
	}
	if banner.Code != 220 {
		return SMTPOutcome{}, fmt.Errorf("unexpected banner from %s: %d %s", exchange, banner.Code, banner.Message)
	}

	if err := p.command(conn, "HELO %s", p.cfg.HelloDomain); err != nil {
		return SMTPOutcome{}, err
	}
	if err := p.command(conn, "MAIL FROM:<%s>", p.cfg.FromAddress); err != nil {
		return SMTPOutcome{}, err
	}

	rcpt, err := conn.Cmd("RCPT TO:<%s@%s>", addr.Username, addr.Hostname)
	if err != nil {
		return SMTPOutcome{}, err
	}

	out := SMTPOutcome{
		Deliverable: rcpt.Code >= 200 && rcpt.Code < 300,
		Response:    rcpt,
		Host:        exchange,
	}

	if p.cfg.CheckCatchAll {
		probe, err := conn.Cmd("RCPT TO:<%s@%s>", randomLocalPart(), addr.Hostname)
		if err != nil {
			return SMTPOutcome{}, err
		}
		switch {
		case probe.Code >= 200 && probe.Code < 300:
			out.CatchAll = boolPtr(true)
		case probe.Code >= 500 && probe.Code < 600:
			out.CatchAll = boolPtr(false)
		}
		// Anything else leaves CatchAll nil: inconclusive.
	}

	conn.Quit()
	return out, nil
}

// command runs a setup command where only 2xx/3xx lets the
// conversation continue; anything else counts as a failed attempt.
func (p *SMTPProber) command(conn *smtpconn.Conn, format string, args ...interface{}) error {
	resp, err := conn.Cmd(format, args...)
	if err != nil {
		return err
	}
	if resp.Code >= 400 {
		return fmt.Errorf("server rejected %q: %d %s", fmt.Sprintf(format, args...), resp.Code, resp.Message)
	}
	return nil
}

// randomLocalPart generates a fresh improbable mailbox name for the
// catch-all probe.
func randomLocalPart() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return "ms-" + hex.EncodeToString(buf)
}

func boolPtr(v bool) *bool { return &v }
