package health

import (
	"context"
	"net"
	"testing"
	"time"
)

func listen(t *testing.T) (net.Listener, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln, ln.Addr().(*net.TCPAddr).Port
}

func TestTCPProberSucceeds(t *testing.T) {
	_, port := listen(t)
	p := TCPProber{Host: "127.0.0.1", Timeout: time.Second}
	if !p.Probe(context.Background(), port) {
		t.Error("expected probe to succeed against a listener")
	}
}

func TestTCPProberFailsOnClosedPort(t *testing.T) {
	ln, port := listen(t)
	ln.Close()
	p := TCPProber{Host: "127.0.0.1", Timeout: 200 * time.Millisecond}
	if p.Probe(context.Background(), port) {
		t.Error("expected probe to fail against a closed port")
	}
}

func TestWaitForPortRetries(t *testing.T) {
	calls := 0
	p := ProberFunc(func(context.Context, int) bool {
		calls++
		return calls == 3
	})
	if err := WaitForPort(context.Background(), p, 3306, time.Second, 10*time.Millisecond); err != nil {
		t.Fatalf("WaitForPort: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWaitForPortTimesOut(t *testing.T) {
	never := ProberFunc(func(context.Context, int) bool { return false })
	err := WaitForPort(context.Background(), never, 3306, 30*time.Millisecond, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
