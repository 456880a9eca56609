package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ecairns22/DolphinDock/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := Root()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func nonInteractive(t *testing.T) {
	t.Helper()
	prev := isInteractive
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = prev })
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "dolphindock dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestInitWritesTemplateAndLedger(t *testing.T) {
	base := t.TempDir()
	t.Setenv("ProgramData", base)
	t.Setenv("DOLPHINDOCK_CONFIG", "")
	cfgPath := filepath.Join(base, "conf", "dolphindock.toml")

	out, err := execute(t, "--no-color", "--config", cfgPath, "init")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Errorf("config template not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(base, "DolphinDock", "state.db")); err != nil {
		t.Errorf("state database not created: %v", err)
	}
	if !strings.Contains(out, "initialized successfully") {
		t.Errorf("output = %q", out)
	}

	// a second run keeps the existing config
	out, err = execute(t, "--no-color", "--config", cfgPath, "init")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if !strings.Contains(out, "exists") {
		t.Errorf("second run output = %q", out)
	}
}

func TestManageRequiresTerminal(t *testing.T) {
	nonInteractive(t)
	_, err := execute(t, "manage")
	if !errors.Is(err, errNotInteractive) {
		t.Errorf("err = %v, want errNotInteractive", err)
	}
}

func TestConfirm(t *testing.T) {
	nonInteractive(t)

	ok, err := confirm("Remove?", true)
	if err != nil || !ok {
		t.Errorf("confirm with assumeYes = %v, %v", ok, err)
	}
	if _, err := confirm("Remove?", false); !errors.Is(err, errNotInteractive) {
		t.Errorf("confirm without terminal err = %v", err)
	}
	if _, err := promptPassword(); !errors.Is(err, errNotInteractive) {
		t.Errorf("promptPassword without terminal err = %v", err)
	}
}

func TestRedact(t *testing.T) {
	tests := map[string]string{
		"port=3306":                  "port=3306",
		"password=hunter2":           "password=****",
		"  Password = hunter2":       "Password=****",
		"basedir=C:\\\\mysql":        "basedir=C:\\\\mysql",
		"[client]":                   "[client]",
		"ssl-key=C:\\certs\\key.pem": "ssl-key=C:\\certs\\key.pem",
	}
	for in, want := range tests {
		if got := redact(in); got != want {
			t.Errorf("redact(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDetailSortsKeys(t *testing.T) {
	got := formatDetail(map[string]string{"status": "partial", "port": "3307", "kind": "setup"})
	if got != "kind=setup port=3307 status=partial" {
		t.Errorf("formatDetail = %q", got)
	}
}

func TestConsoleColorsOnlyStepLines(t *testing.T) {
	prev := color.NoColor
	color.NoColor = false
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	c := newConsole(&buf)
	report.Emit(c, report.StepOutcome{Step: "start", Level: report.Warn, Message: "slow", Output: "raw tool text"})
	report.Printf(c, "plain")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[0], "\x1b[33m") {
		t.Errorf("step line not colored: %q", lines[0])
	}
	if lines[1] != "raw tool text" || lines[2] != "plain" {
		t.Errorf("unexpected uncolored lines: %q", lines[1:])
	}
}
