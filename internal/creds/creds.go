// Package creds generates the initial administrative credential and renders the
// statements and commands that apply it.
package creds

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Placeholder stands in for a credential that must not be printed.
const Placeholder = "<password>"

// Generate produces a random alphanumeric string of the given length using crypto/rand.
func Generate(length int) (string, error) {
	result := make([]byte, length)
	max := big.NewInt(int64(len(charset)))

	for i := range result {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating random credential: %w", err)
		}
		result[i] = charset[n.Int64()]
	}

	return string(result), nil
}

// Mask hides a credential for display. The length is not revealed.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}

// QuoteString renders s as a single-quoted SQL string literal.
func QuoteString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(s) + "'"
}

// AlterUserStatement sets the password of user@host and flushes privileges.
func AlterUserStatement(user, host, password string) string {
	return fmt.Sprintf("ALTER USER %s@%s IDENTIFIED BY %s; FLUSH PRIVILEGES;",
		QuoteString(user), QuoteString(host), QuoteString(password))
}

// ClientArgs returns the client tool arguments that execute stmt over TCP.
func ClientArgs(user string, port int, stmt string) []string {
	return []string{"-u", user, "--protocol=tcp", "--port=" + strconv.Itoa(port), "--execute", stmt}
}

// ManualCommand renders the command an operator can run to set the credential by
// hand. Unless reveal is set the password is replaced by Placeholder.
func ManualCommand(client, user, host string, port int, password string, reveal bool) string {
	if !reveal {
		password = Placeholder
	}
	stmt := AlterUserStatement(user, host, password)
	return fmt.Sprintf(`"%s" -u %s --protocol=tcp --port=%d --execute "%s"`, client, user, port, stmt)
}

// Connection describes how to reach a freshly installed server.
type Connection struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Service  string `toml:"service"`
}

// WriteConnectionFile writes conn as TOML to path with chmod 600.
func WriteConnectionFile(path string, conn Connection) error {
	data, err := toml.Marshal(conn)
	if err != nil {
		return fmt.Errorf("encoding connection file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing connection file %s: %w", path, err)
	}
	return nil
}
