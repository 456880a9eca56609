// Package lifecycle starts, stops and removes discovered engine services and
// cleans up their installation directories.
//
// A failed service command is reported as false plus log lines on the given
// report.Logger; an error is returned only when a tool could not be launched or
// a deletion was refused.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/elevation"
	"github.com/ecairns22/DolphinDock/internal/logger"
	"github.com/ecairns22/DolphinDock/internal/myini"
	"github.com/ecairns22/DolphinDock/internal/report"
	"github.com/ecairns22/DolphinDock/internal/runner"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// ErrNotInstallDir is returned when a directory does not look like an engine
// installation and deletion is refused.
var ErrNotInstallDir = errors.New("not an engine installation directory")

// PathEditor is the subset of envpath.Editor used here.
type PathEditor interface {
	Remove(ctx context.Context, dir string) (bool, error)
}

// Options configures a Manager.
type Options struct {
	DaemonExe string // defaults to mysqld.exe
}

// Manager runs lifecycle operations through the service control manager.
type Manager struct {
	scm       *winsvc.Manager
	elevation elevation.Checker
	path      PathEditor
	daemonExe string
	log       *zap.Logger
	now       func() time.Time
	remove    func(dir string) []string
}

// New creates a lifecycle manager. path may be nil, in which case PATH is never
// edited.
func New(scm *winsvc.Manager, elev elevation.Checker, path PathEditor, opts Options, log *zap.Logger) *Manager {
	if opts.DaemonExe == "" {
		opts.DaemonExe = "mysqld.exe"
	}
	log = logger.OrNop(log)
	return &Manager{
		scm:       scm,
		elevation: elev,
		path:      path,
		daemonExe: opts.DaemonExe,
		log:       log,
		now:       time.Now,
		remove:    removeTree,
	}
}

// Start starts the named service. On failure the service's status block is
// logged to help diagnosis.
func (m *Manager) Start(ctx context.Context, name string, out report.Logger) (bool, error) {
	res, err := m.scm.Start(ctx, name)
	if err != nil {
		return false, err
	}
	if res.OK() {
		m.emit(out, "start", report.Success, fmt.Sprintf("service %s started", name), nil, "")
		return true, nil
	}
	m.emit(out, "start", report.Fail, fmt.Sprintf("service %s failed to start", name), &res, res.Output)

	status, err := m.scm.Query(ctx, name)
	if err != nil {
		m.log.Warn("querying service status failed", zap.String("service", name), zap.Error(err))
		return false, nil
	}
	m.emit(out, "status", report.Info, fmt.Sprintf("current status of %s", name), nil, status.Output)
	return false, nil
}

// Stop stops the named service.
func (m *Manager) Stop(ctx context.Context, name string, out report.Logger) (bool, error) {
	res, err := m.scm.Stop(ctx, name)
	if err != nil {
		return false, err
	}
	if !res.OK() {
		m.emit(out, "stop", report.Fail, fmt.Sprintf("service %s failed to stop", name), &res, res.Output)
		return false, nil
	}
	m.emit(out, "stop", report.Success, fmt.Sprintf("service %s stopped", name), nil, "")
	return true, nil
}

// Status returns the raw status block of the named service.
func (m *Manager) Status(ctx context.Context, name string) (string, error) {
	res, err := m.scm.Query(ctx, name)
	if err != nil {
		return "", err
	}
	if !res.OK() {
		return "", fmt.Errorf("querying %s: exit code %d: %s", name, res.ExitCode, strings.TrimSpace(res.Output))
	}
	return res.Output, nil
}

// Uninstall removes the service registration. The daemon's own removal flag is
// tried first when the install directory is known; otherwise, or if that
// fails, a running service is stopped and deleted with the service manager.
func (m *Manager) Uninstall(ctx context.Context, rec winsvc.Record, out report.Logger) (bool, error) {
	name := rec.Name()
	if !m.elevation.IsElevated(ctx) {
		m.emit(out, "uninstall", report.Fail, "administrator rights are required to remove a service", nil, "")
		return false, nil
	}

	if rec.BinDir() != "" {
		daemon := filepath.Join(rec.BinDir(), m.daemonExe)
		res, err := m.scm.Runner().Run(ctx, daemon, "--remove", name)
		switch {
		case err != nil:
			m.log.Debug("daemon removal unavailable", zap.String("daemon", daemon), zap.Error(err))
		case res.OK():
			m.emit(out, "uninstall", report.Success, fmt.Sprintf("service %s removed", name), nil, res.Output)
			return true, nil
		default:
			m.emit(out, "uninstall", report.Warn, fmt.Sprintf("%s --remove failed, deleting the service directly", m.daemonExe), &res, res.Output)
		}
	}

	if rec.State() == winsvc.Running {
		stopped, err := m.Stop(ctx, name, out)
		if err != nil {
			return false, err
		}
		if !stopped {
			m.emit(out, "uninstall", report.Fail, fmt.Sprintf("service %s is still running; not deleted", name), nil, "")
			return false, nil
		}
	}

	res, err := m.scm.Delete(ctx, name)
	if err != nil {
		return false, err
	}
	if !res.OK() {
		m.emit(out, "uninstall", report.Fail, fmt.Sprintf("failed to delete service %s", name), &res, res.Output)
		return false, nil
	}
	m.emit(out, "uninstall", report.Success, fmt.Sprintf("service %s deleted", name), nil, res.Output)
	return true, nil
}

// InstallRoot returns the installation root for an executables directory.
func InstallRoot(binDir string) string {
	return filepath.Dir(filepath.Clean(binDir))
}

// LooksLikeInstall reports whether root has an executables directory, a data
// directory or an option file.
func LooksLikeInstall(root string) bool {
	if isDir(filepath.Join(root, "bin")) || isDir(filepath.Join(root, "data")) {
		return true
	}
	for _, name := range myini.FileNames {
		if isFile(filepath.Join(root, name)) {
			return true
		}
	}
	return false
}

// DeleteInstallDir deletes the installation root above rec's executables
// directory, then drops that directory from the machine PATH when elevated.
func (m *Manager) DeleteInstallDir(ctx context.Context, rec winsvc.Record, out report.Logger) (bool, error) {
	if rec.BinDir() == "" {
		m.emit(out, "delete", report.Fail, fmt.Sprintf("install directory of %s is unknown", rec.Name()), nil, "")
		return false, fmt.Errorf("%s: no executables directory: %w", rec.Name(), ErrNotInstallDir)
	}
	root := InstallRoot(rec.BinDir())
	if !LooksLikeInstall(root) {
		m.emit(out, "delete", report.Fail, fmt.Sprintf("refusing to delete %s: no bin, data or option file found", root), nil, "")
		return false, fmt.Errorf("%s: %w", root, ErrNotInstallDir)
	}

	if failed := m.remove(root); len(failed) > 0 {
		m.log.Debug("falling back to rd", zap.String("root", root), zap.Strings("failed", failed))
		m.emit(out, "delete", report.Warn, fmt.Sprintf("%d entries could not be removed, retrying with rd /s /q", len(failed)), nil, "")
		res, err := m.scm.Runner().Run(ctx, "cmd.exe", "/c", "rd", "/s", "/q", root)
		if err != nil {
			return false, err
		}
		if _, statErr := os.Stat(root); statErr == nil {
			m.emit(out, "delete", report.Fail, fmt.Sprintf("could not delete %s", root), &res, res.Output)
			return false, nil
		}
	}
	m.emit(out, "delete", report.Success, fmt.Sprintf("deleted %s", root), nil, "")

	if m.path != nil && m.elevation.IsElevated(ctx) {
		removed, err := m.path.Remove(ctx, rec.BinDir())
		switch {
		case err != nil:
			m.emit(out, "path", report.Warn, fmt.Sprintf("could not update machine PATH: %v", err), nil, "")
		case removed:
			m.emit(out, "path", report.Success, fmt.Sprintf("removed %s from machine PATH", rec.BinDir()), nil, "")
		}
	}
	return true, nil
}

// removeTree deletes dir depth-first, children before parents, and returns the
// paths that could not be removed.
func removeTree(dir string) []string {
	var failed []string
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		failed = append(failed, dir)
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if e.IsDir() {
			failed = append(failed, removeTree(p)...)
			continue
		}
		if err := os.Remove(p); err != nil {
			failed = append(failed, p)
		}
	}
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) && len(failed) == 0 {
		failed = append(failed, dir)
	}
	return failed
}

func (m *Manager) emit(out report.Logger, step string, level report.Level, msg string, res *runner.Result, output string) {
	o := report.StepOutcome{
		Step:      step,
		Level:     level,
		Succeeded: level == report.Success || level == report.Info,
		Message:   msg,
		Output:    output,
		Time:      m.now(),
	}
	if res != nil {
		code := res.ExitCode
		o.ExitCode = &code
	}
	report.Emit(out, o)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
