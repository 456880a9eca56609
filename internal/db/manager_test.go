package db

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
)

func TestDSNRoundTrip(t *testing.T) {
	dsn := DSN("localhost", 3307, "root", "p@ss:word/x", 5*time.Second)

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.Addr != "localhost:3307" || cfg.Net != "tcp" {
		t.Errorf("addr = %s/%s", cfg.Net, cfg.Addr)
	}
	if cfg.User != "root" || cfg.Passwd != "p@ss:word/x" {
		t.Errorf("credentials = %q/%q", cfg.User, cfg.Passwd)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("timeout = %s", cfg.Timeout)
	}
	if cfg.DBName != "" {
		t.Errorf("dbname = %q, want empty", cfg.DBName)
	}
}

func TestServerVersionUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := ServerVersion(ctx, "127.0.0.1", 1, "root", "", 500*time.Millisecond); err == nil {
		t.Fatal("expected error against a closed port")
	}
}

// Integration test: only runs when DOLPHINDOCK_TEST_MYSQL_PORT is set.
func TestIntegrationVersion(t *testing.T) {
	portText := os.Getenv("DOLPHINDOCK_TEST_MYSQL_PORT")
	if portText == "" {
		t.Skip("set DOLPHINDOCK_TEST_MYSQL_PORT (and DOLPHINDOCK_TEST_MYSQL_PASSWORD) to run integration tests")
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		t.Fatalf("bad port: %v", err)
	}

	mgr, err := New("127.0.0.1", port, "root", os.Getenv("DOLPHINDOCK_TEST_MYSQL_PASSWORD"), 5*time.Second)
	if err != nil {
		t.Fatalf("creating manager: %v", err)
	}
	defer mgr.Close()

	ctx := context.Background()
	if err := mgr.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	v, err := mgr.Version(ctx)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	t.Logf("server version %s", v)
}
