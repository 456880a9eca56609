// Package health probes whether a server is accepting TCP connections.
package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Prober reports whether something is listening on a local port.
type Prober interface {
	Probe(ctx context.Context, port int) bool
}

// TCPProber dials Host:port once per probe.
type TCPProber struct {
	Host    string        // defaults to "localhost"
	Timeout time.Duration // defaults to 1s
}

func (p TCPProber) Probe(ctx context.Context, port int) bool {
	host := p.Host
	if host == "" {
		host = "localhost"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, port int) bool

func (f ProberFunc) Probe(ctx context.Context, port int) bool { return f(ctx, port) }

// WaitForPort polls the port every interval until a probe succeeds or
// timeout elapses.
func WaitForPort(ctx context.Context, p Prober, port int, timeout, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		if p.Probe(ctx, port) {
			return nil
		}
		if !time.Now().Add(interval).Before(deadline) {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}

	return fmt.Errorf("port %d not responding after %s", port, timeout)
}
