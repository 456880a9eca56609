// Package db talks to a freshly installed server over the MySQL protocol.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Manager holds a connection pool to one server.
type Manager struct {
	db *sql.DB
}

// DSN builds a TCP data source name with no default database.
func DSN(host string, port int, user, password string, timeout time.Duration) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.Timeout = timeout
	cfg.ReadTimeout = timeout
	return cfg.FormatDSN()
}

// New creates a DB manager connecting with the given credentials. No connection
// is made until the first query.
func New(host string, port int, user, password string, timeout time.Duration) (*Manager, error) {
	db, err := sql.Open("mysql", DSN(host, port, user, password, timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s:%d: %w", host, port, err)
	}
	db.SetMaxOpenConns(1)
	return &Manager{db: db}, nil
}

// Close closes the underlying database connection.
func (m *Manager) Close() error {
	return m.db.Close()
}

// Ping tests the connection.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("server connection failed: %w; check that the service is running and the credential is correct", err)
	}
	return nil
}

// Version returns the server version string.
func (m *Manager) Version(ctx context.Context) (string, error) {
	var v string
	if err := m.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v); err != nil {
		return "", fmt.Errorf("reading server version: %w", err)
	}
	return v, nil
}

// ServerVersion connects, reads the version and disconnects.
func ServerVersion(ctx context.Context, host string, port int, user, password string, timeout time.Duration) (string, error) {
	m, err := New(host, port, user, password, timeout)
	if err != nil {
		return "", err
	}
	defer m.Close()
	return m.Version(ctx)
}
