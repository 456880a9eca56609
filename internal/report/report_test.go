package report

import (
	"strings"
	"testing"
	"time"
)

func TestEmitRendersLineAndOutput(t *testing.T) {
	var buf Buffer
	code := 3
	Emit(&buf, StepOutcome{
		Step:     "initialize",
		Level:    Fail,
		Message:  "database initialization failed",
		ExitCode: &code,
		Output:   "[ERROR] data directory has files in it\r\n",
		Time:     time.Date(2026, 1, 2, 10, 4, 5, 0, time.UTC),
	})

	text := buf.String()
	if !strings.HasPrefix(text, "[10:04:05] fail  initialize: database initialization failed (exit code 3)\n") {
		t.Errorf("unexpected line: %q", text)
	}
	if !strings.HasSuffix(text, "data directory has files in it\n") {
		t.Errorf("output should follow the line: %q", text)
	}
	if len(buf.Steps()) != 1 || buf.Steps()[0].Step != "initialize" {
		t.Errorf("steps = %+v", buf.Steps())
	}
}

func TestPrintfTerminatesOnce(t *testing.T) {
	var buf Buffer
	Printf(&buf, "stopping %s\n", "MySQL80")
	Printf(&buf, "done")
	if got := buf.String(); got != "stopping MySQL80\ndone\n" {
		t.Errorf("got %q", got)
	}
}

func TestNilLoggerIsIgnored(t *testing.T) {
	Emit(nil, StepOutcome{Step: "x"})
	Printf(nil, "x")
}
