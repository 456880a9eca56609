// Package elevation reports whether the process holds administrative rights.
package elevation

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/runner"
)

// Checker reports whether the current process is elevated.
type Checker interface {
	IsElevated(ctx context.Context) bool
}

// Fixed is a Checker with a constant answer.
type Fixed bool

func (f Fixed) IsElevated(context.Context) bool { return bool(f) }

// NetSession treats a successful `net session` as proof of elevation; the
// command is refused for non-administrators.
type NetSession struct {
	Runner runner.CommandRunner
}

func (n NetSession) IsElevated(ctx context.Context) bool {
	res, err := n.Runner.Run(ctx, "net.exe", "session")
	return err == nil && res.OK()
}

// Token reads the elevation flag of the process token and falls back to
// Fallback when the token cannot be queried.
type Token struct {
	Fallback Checker
	Log      *zap.Logger
}

func (t Token) IsElevated(ctx context.Context) bool {
	elevated, err := tokenElevated()
	if err == nil {
		return elevated
	}
	if t.Log != nil {
		t.Log.Debug("token elevation query failed", zap.Error(err))
	}
	if t.Fallback == nil {
		return false
	}
	return t.Fallback.IsElevated(ctx)
}

// Default returns the token checker backed by `net session`.
func Default(r runner.CommandRunner, log *zap.Logger) Checker {
	return Token{Fallback: NetSession{Runner: r}, Log: log}
}
