package smtpconn_test

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mailscope/mailscope/internal/smtpconn"
)

func pipeDial(server *net.Conn) smtpconn.DialFunc {
	return func(_ context.Context, _, _ string) (net.Conn, error) {
		client, srv := net.Pipe()
		*server = srv
		return client, nil
	}
}

func TestDial_Banner(t *testing.T) {
	var server net.Conn
	conn, err := smtpconn.Dial(context.Background(), "mx.example.com:25", time.Second, pipeDial(&server))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	go func() { _, _ = fmt.Fprintf(server, "220 mx.example.com ESMTP\r\n") }()

	resp, err := conn.ReadResponse()
	assert.NoError(t, err)
	assert.Equal(t, 220, resp.Code)
	assert.Contains(t, resp.Message, "ESMTP")
}

func TestCmd_RoundTrip(t *testing.T) {
	var server net.Conn
	conn, err := smtpconn.Dial(context.Background(), "mx.example.com:25", time.Second, pipeDial(&server))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := server.Read(buf)
		received <- string(buf[:n])
		_, _ = fmt.Fprintf(server, "250 OK\r\n")
	}()

	resp, err := conn.Cmd("HELO %s", "probe.test")
	assert.NoError(t, err)
	assert.Equal(t, 250, resp.Code)
	assert.Equal(t, "HELO probe.test\r\n", <-received)
}

func TestReadResponse_MultiLine(t *testing.T) {
	var server net.Conn
	conn, err := smtpconn.Dial(context.Background(), "mx.example.com:25", time.Second, pipeDial(&server))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	go func() {
		_, _ = fmt.Fprintf(server, "250-mx.example.com\r\n250-SIZE 35882577\r\n250 OK\r\n")
	}()

	resp, err := conn.ReadResponse()
	assert.NoError(t, err)
	assert.Equal(t, 250, resp.Code)
	assert.True(t, strings.Contains(resp.Message, "SIZE"))
}

func TestReadResponse_Garbage(t *testing.T) {
	var server net.Conn
	conn, err := smtpconn.Dial(context.Background(), "mx.example.com:25", time.Second, pipeDial(&server))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	go func() { _, _ = fmt.Fprintf(server, "ha\r\n") }()

	_, err = conn.ReadResponse()
	assert.Error(t, err)
}

func TestDial_ContextCancelUnblocksRead(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var server net.Conn
	conn, err := smtpconn.Dial(ctx, "mx.example.com:25", 10*time.Second, pipeDial(&server))
	assert.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// The server never writes; cancelling must unblock the read.
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = conn.ReadResponse()
	assert.Error(t, err)
}
