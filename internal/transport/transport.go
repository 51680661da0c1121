// Package transport sends raw request bytes to a target over TCP or TLS and
// reads back the response header block. It deliberately bypasses net/http:
// probe requests must hit the wire byte-for-byte as serialized, without a
// client re-encoding or validating them.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// Target identifies the live server under probe.
type Target struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
	TLS  bool   `json:"tls"`
}

// Addr returns the dialable host:port form.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

func (t Target) String() string {
	scheme := "http"
	if t.TLS {
		scheme = "https"
	}
	return scheme + "://" + t.Addr()
}

// insecureTLS is the process-wide trust-any-certificate config. Probing
// targets are routinely self-signed or fronted by interception proxies, so
// certificate validation is intentionally disabled. Shared read-only.
var insecureTLS = sync.OnceValue(func() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
})

// Transport opens one connection per Send call. Each probe gets an isolated
// connection so a slow or failed probe cannot affect another's outcome.
type Transport struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// New returns a Transport with the given connect and read timeouts.
func New(connect, read time.Duration) *Transport {
	return &Transport{ConnectTimeout: connect, ReadTimeout: read}
}

// Send writes raw to the target and reads the response up through the
// blank-line header terminator. The connection is closed on every path.
func (t *Transport) Send(ctx context.Context, target Target, raw []byte) ([]byte, error) {
	dialer := net.Dialer{Timeout: t.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", target.Addr())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", target.Addr(), err)
	}
	defer conn.Close()

	if target.TLS {
		tlsConn := tls.Client(conn, insecureTLS())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			return nil, fmt.Errorf("tls handshake %s: %w", target.Addr(), err)
		}
		conn = tlsConn
	}

	deadline := time.Now().Add(t.ReadTimeout)
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := conn.Write(raw); err != nil {
		return nil, fmt.Errorf("write request to %s: %w", target.Addr(), err)
	}
	return readHeaderBlock(conn)
}

// readHeaderBlock reads lines until the first blank line. EOF or a deadline
// before the terminator is a failure: a partial header block is never
// returned.
func readHeaderBlock(conn net.Conn) ([]byte, error) {
	var block bytes.Buffer
	br := bufio.NewReader(conn)
	for {
		line, err := br.ReadString('\n')
		block.WriteString(line)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if line == "\n" || line == "\r\n" {
			return block.Bytes(), nil
		}
	}
}
