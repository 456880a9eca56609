package creds

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	toml "github.com/pelletier/go-toml/v2"
)

func TestGenerateLength(t *testing.T) {
	pw, err := Generate(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pw) != 32 {
		t.Errorf("length = %d, want 32", len(pw))
	}
}

func TestGenerateAlphanumeric(t *testing.T) {
	pw, err := Generate(100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	re := regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	if !re.MatchString(pw) {
		t.Errorf("password contains non-alphanumeric characters: %q", pw)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		pw, err := Generate(32)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[pw] {
			t.Fatalf("duplicate password generated: %q", pw)
		}
		seen[pw] = true
	}
}

func TestAlterUserStatement(t *testing.T) {
	got := AlterUserStatement("root", "localhost", "s3cret")
	want := "ALTER USER 'root'@'localhost' IDENTIFIED BY 's3cret'; FLUSH PRIVILEGES;"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestQuoteStringEscapes(t *testing.T) {
	if got := QuoteString(`it's \ here`); got != `'it\'s \\ here'` {
		t.Errorf("QuoteString = %q", got)
	}
}

func TestClientArgs(t *testing.T) {
	got := strings.Join(ClientArgs("root", 3307, "SELECT 1;"), " ")
	if got != "-u root --protocol=tcp --port=3307 --execute SELECT 1;" {
		t.Errorf("ClientArgs = %q", got)
	}
}

func TestManualCommandMasksByDefault(t *testing.T) {
	cmd := ManualCommand(`C:\mysql\bin\mysql.exe`, "root", "localhost", 3307, "s3cret", false)
	if strings.Contains(cmd, "s3cret") {
		t.Errorf("password leaked: %s", cmd)
	}
	if !strings.Contains(cmd, Placeholder) || !strings.Contains(cmd, "--port=3307") {
		t.Errorf("unexpected command: %s", cmd)
	}

	revealed := ManualCommand(`C:\mysql\bin\mysql.exe`, "root", "localhost", 3307, "s3cret", true)
	if !strings.Contains(revealed, "IDENTIFIED BY 's3cret'") {
		t.Errorf("revealed command missing password: %s", revealed)
	}
}

func TestMask(t *testing.T) {
	if Mask("") != "" {
		t.Error("empty secret should mask to empty")
	}
	if m := Mask("abc"); strings.Contains(m, "abc") {
		t.Errorf("Mask leaked secret: %q", m)
	}
}

func TestWriteConnectionFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conn.toml")

	conn := Connection{Host: "localhost", Port: 3307, User: "root", Password: "s3cret", Service: "MySQL3307"}
	if err := WriteConnectionFile(path, conn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading file: %v", err)
	}
	var got Connection
	if err := toml.Unmarshal(data, &got); err != nil {
		t.Fatalf("parsing TOML: %v", err)
	}
	if got != conn {
		t.Errorf("got %+v, want %+v", got, conn)
	}

	info, _ := os.Stat(path)
	if perm := info.Mode().Perm(); perm != 0600 && os.Getenv("OS") != "Windows_NT" {
		t.Errorf("permissions = %o, want 600", perm)
	}
}
