// Package report carries user-facing progress out of the installer and the
// lifecycle manager: an append-only line sink plus structured step outcomes.
package report

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger is an append-only sink for newline-terminated text.
type Logger interface {
	Accept(text string)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(text string)

func (f LoggerFunc) Accept(text string) { f(text) }

// StepObserver is optionally implemented by a Logger that wants structured
// step outcomes in addition to the rendered line.
type StepObserver interface {
	ObserveStep(StepOutcome)
}

// Level classifies a line or step outcome.
type Level int

const (
	Info Level = iota
	Success
	Warn
	Fail
)

func (l Level) String() string {
	switch l {
	case Success:
		return "ok"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	default:
		return "info"
	}
}

// StepOutcome is emitted for every discrete action of an install run.
type StepOutcome struct {
	RunID     string
	Step      string
	Level     Level
	Succeeded bool
	Message   string
	ExitCode  *int
	Output    string // raw captured process text, if any
	Time      time.Time
}

// Line renders the outcome as a single timestamped log line.
func (o StepOutcome) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %s: %s", o.Time.Format("15:04:05"), o.Level, o.Step, o.Message)
	if o.ExitCode != nil {
		fmt.Fprintf(&b, " (exit code %d)", *o.ExitCode)
	}
	b.WriteString("\n")
	return b.String()
}

// Emit writes the outcome to l, first as a structured event when l observes
// steps, then as a rendered line, followed by any captured output.
func Emit(l Logger, o StepOutcome) {
	if l == nil {
		return
	}
	if obs, ok := l.(StepObserver); ok {
		obs.ObserveStep(o)
	}
	l.Accept(o.Line())
	if out := strings.TrimRight(o.Output, "\r\n"); out != "" {
		l.Accept(out + "\n")
	}
}

// Printf formats a line and appends it to l, adding the trailing newline.
func Printf(l Logger, format string, args ...any) {
	if l == nil {
		return
	}
	l.Accept(strings.TrimRight(fmt.Sprintf(format, args...), "\n") + "\n")
}

// Buffer is a Logger that keeps everything it is given. Safe for concurrent use.
type Buffer struct {
	mu    sync.Mutex
	b     strings.Builder
	steps []StepOutcome
}

func (b *Buffer) Accept(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.b.WriteString(text)
}

func (b *Buffer) ObserveStep(o StepOutcome) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.steps = append(b.steps, o)
}

// String returns all accepted text.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Steps returns the observed step outcomes in order.
func (b *Buffer) Steps() []StepOutcome {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StepOutcome(nil), b.steps...)
}

// Discard is a Logger that drops everything.
var Discard Logger = LoggerFunc(func(string) {})
