package orchestrator

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"3306", 3306, true},
		{"1", 1, true},
		{"65535", 65535, true},
		{"0", 0, false},
		{"65536", 0, false},
		{"", 0, false},
		{"-1", 0, false},
		{"+3306", 0, false},
		{" 3306", 0, false},
		{"33o6", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, err := ParsePort(tt.in)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("ParsePort(%q) = %d, %v; want %d", tt.in, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("ParsePort(%q) error = %v, want ErrInvalidRequest", tt.in, err)
		}
	}
}

func TestNewInstallRequest(t *testing.T) {
	dir := t.TempDir()
	valid := RequestParams{
		ArchivePath:  filepath.Join(dir, "mysql.zip"),
		InstallDir:   filepath.Join(dir, "db"),
		RootPassword: "hunter2",
		Port:         "3310",
		ConfigureEnv: true,
	}

	req, err := NewInstallRequest(valid)
	if err != nil {
		t.Fatalf("NewInstallRequest: %v", err)
	}
	if req.Port() != 3310 || !req.ConfigureEnv() || req.AllowPortConflict() {
		t.Errorf("unexpected request %+v", req)
	}
	if req.InstallDir() != filepath.Join(dir, "db") {
		t.Errorf("InstallDir = %q", req.InstallDir())
	}
	if s := req.String(); s == "" || strings.Contains(s, "hunter2") {
		t.Errorf("String() = %q, must not include the password", s)
	}

	for name, mutate := range map[string]func(*RequestParams){
		"port":     func(p *RequestParams) { p.Port = "abc" },
		"archive":  func(p *RequestParams) { p.ArchivePath = " " },
		"dir":      func(p *RequestParams) { p.InstallDir = "" },
		"password": func(p *RequestParams) { p.RootPassword = "" },
	} {
		p := valid
		mutate(&p)
		if _, err := NewInstallRequest(p); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: error = %v, want ErrInvalidRequest", name, err)
		}
	}
}
