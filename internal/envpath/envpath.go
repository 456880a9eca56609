// Package envpath edits the machine-wide PATH variable stored in the registry.
package envpath

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/logger"
	"github.com/ecairns22/DolphinDock/internal/runner"
)

// Key is the registry key holding machine environment variables.
const Key = `HKLM\SYSTEM\CurrentControlSet\Control\Session Manager\Environment`

// Separator separates PATH segments on Windows.
const Separator = ";"

// setxLimit is the longest value setx.exe stores without truncation.
const setxLimit = 1024

// Editor reads and rewrites the machine PATH through reg.exe and setx.exe.
type Editor struct {
	runner runner.CommandRunner
	log    *zap.Logger
}

// New creates an Editor. A nil logger disables diagnostic logging.
func New(r runner.CommandRunner, log *zap.Logger) *Editor {
	return &Editor{runner: r, log: logger.OrNop(log)}
}

// Read returns the current machine PATH value.
func (e *Editor) Read(ctx context.Context) (string, error) {
	res, err := e.runner.Run(ctx, "reg.exe", "query", Key, "/v", "Path")
	if err != nil {
		return "", fmt.Errorf("reading machine PATH: %w", err)
	}
	if !res.OK() {
		return "", fmt.Errorf("reading machine PATH: reg query exited %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	value, ok := ParseRegQuery(res.Output, "Path")
	if !ok {
		return "", fmt.Errorf("reading machine PATH: no Path value in reg query output")
	}
	return value, nil
}

// Write replaces the machine PATH. Values setx.exe would truncate are written
// with reg.exe instead.
func (e *Editor) Write(ctx context.Context, value string) error {
	var (
		res runner.Result
		err error
	)
	if len(value) <= setxLimit {
		res, err = e.runner.Run(ctx, "setx.exe", "PATH", value, "/M")
	} else {
		e.log.Debug("PATH exceeds setx limit, writing with reg.exe", zap.Int("length", len(value)))
		res, err = e.runner.Run(ctx, "reg.exe", "add", Key, "/v", "Path", "/t", "REG_EXPAND_SZ", "/d", value, "/f")
	}
	if err != nil {
		return fmt.Errorf("writing machine PATH: %w", err)
	}
	if !res.OK() {
		return fmt.Errorf("writing machine PATH: exit code %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
	}
	return nil
}

// Append adds dir to the machine PATH unless it is already present. It reports
// whether the variable was rewritten.
func (e *Editor) Append(ctx context.Context, dir string) (bool, error) {
	current, err := e.Read(ctx)
	if err != nil {
		return false, err
	}
	next, changed := AppendSegment(current, dir)
	if !changed {
		return false, nil
	}
	if err := e.Write(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Remove drops dir from the machine PATH. The variable is rewritten only when a
// segment was actually removed.
func (e *Editor) Remove(ctx context.Context, dir string) (bool, error) {
	current, err := e.Read(ctx)
	if err != nil {
		return false, err
	}
	next, changed := RemoveSegment(current, dir)
	if !changed {
		return false, nil
	}
	if err := e.Write(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// ParseRegQuery extracts the data of a named value from `reg query` output.
func ParseRegQuery(output, name string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if len(line) <= len(name) || !strings.EqualFold(line[:len(name)], name) {
			continue
		}
		rest := line[len(name):]
		if rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		rest = strings.TrimSpace(rest)
		for _, typ := range []string{"REG_EXPAND_SZ", "REG_SZ"} {
			if strings.HasPrefix(rest, typ) {
				return strings.TrimSpace(rest[len(typ):]), true
			}
		}
	}
	return "", false
}

// AppendSegment adds seg to a PATH value unless an equal segment
// (case-insensitive) is already present.
func AppendSegment(value, seg string) (string, bool) {
	for _, s := range strings.Split(value, Separator) {
		if strings.EqualFold(s, seg) {
			return value, false
		}
	}
	trimmed := strings.TrimRight(value, Separator)
	if trimmed == "" {
		return seg, true
	}
	return trimmed + Separator + seg, true
}

// RemoveSegment drops every segment equal to seg (case-insensitive). Segments
// that merely contain seg are kept.
func RemoveSegment(value, seg string) (string, bool) {
	parts := strings.Split(value, Separator)
	kept := parts[:0]
	removed := false
	for _, s := range parts {
		if strings.EqualFold(s, seg) {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return value, false
	}
	return strings.Join(kept, Separator), true
}
