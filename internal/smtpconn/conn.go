// Package smtpconn is a minimal textual SMTP client connection used
// by the deliverability probe. It speaks just enough of the protocol
// for HELO/MAIL/RCPT/QUIT exchanges.
package smtpconn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/mailscope/mailscope/types"
)

// DialFunc opens the TCP connection, directly or through a proxy.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Conn is one SMTP connection. Every I/O step runs under the
// configured per-step timeout; cancelling the dial context closes the
// socket, unblocking any pending read.
type Conn struct {
	netConn net.Conn
	r       *bufio.Reader
	w       *bufio.Writer
	timeout time.Duration
	stop    func() bool
}

// Dial connects to address and wires context cancellation to the
// socket. The server banner is not consumed here; callers read it
// with ReadResponse.
func Dial(ctx context.Context, address string, timeout time.Duration, dial DialFunc) (*Conn, error) {
	if dial == nil {
		d := &net.Dialer{Timeout: timeout}
		dial = d.DialContext
	}
	netConn, err := dial(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	c := &Conn{
		netConn: netConn,
		r:       bufio.NewReader(netConn),
		w:       bufio.NewWriter(netConn),
		timeout: timeout,
	}
	c.stop = context.AfterFunc(ctx, func() { _ = netConn.Close() })
	return c, nil
}

// Cmd sends one command line and reads the server's response.
func (c *Conn) Cmd(format string, args ...interface{}) (types.SmtpResponse, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return types.SmtpResponse{}, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := fmt.Fprintf(c.w, format+"\r\n", args...); err != nil {
		return types.SmtpResponse{}, err
	}
	if err := c.w.Flush(); err != nil {
		return types.SmtpResponse{}, err
	}
	return c.read()
}

// ReadResponse reads one (possibly multi-line) response, typically
// the connection banner.
func (c *Conn) ReadResponse() (types.SmtpResponse, error) {
	if err := c.netConn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return types.SmtpResponse{}, fmt.Errorf("set deadline: %w", err)
	}
	return c.read()
}

// Quit sends QUIT best-effort; the response and any error are ignored.
func (c *Conn) Quit() {
	_ = c.netConn.SetDeadline(time.Now().Add(2 * time.Second))
	_, _ = c.w.WriteString("QUIT\r\n")
	_ = c.w.Flush()
}

// Close releases the socket and detaches the context watcher.
func (c *Conn) Close() error {
	if c.stop != nil {
		c.stop()
	}
	return c.netConn.Close()
}

// read consumes one SMTP response, following continuation lines
// (4th character '-') until the final line.
func (c *Conn) read() (types.SmtpResponse, error) {
	var lines []string
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return types.SmtpResponse{}, fmt.Errorf("read SMTP response: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if len(line) < 3 {
			return types.SmtpResponse{}, errors.New("SMTP response line too short")
		}
		lines = append(lines, line)
		if len(line) < 4 || line[3] != '-' {
			break
		}
	}

	last := lines[len(lines)-1]
	var code int
	if _, err := fmt.Sscanf(last[:3], "%d", &code); err != nil {
		return types.SmtpResponse{}, fmt.Errorf("invalid SMTP response code %q: %w", last[:3], err)
	}
	return types.SmtpResponse{Code: code, Message: strings.Join(lines, " | ")}, nil
}
