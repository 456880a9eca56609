// Package orchestrator drives an engine install from archive to running
// service: extraction, option file, data directory initialization, service
// registration, initial credential and PATH.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/archive"
	"github.com/ecairns22/DolphinDock/internal/creds"
	"github.com/ecairns22/DolphinDock/internal/elevation"
	ghclient "github.com/ecairns22/DolphinDock/internal/github"
	"github.com/ecairns22/DolphinDock/internal/health"
	"github.com/ecairns22/DolphinDock/internal/lock"
	"github.com/ecairns22/DolphinDock/internal/logger"
	"github.com/ecairns22/DolphinDock/internal/myini"
	"github.com/ecairns22/DolphinDock/internal/ports"
	"github.com/ecairns22/DolphinDock/internal/report"
	"github.com/ecairns22/DolphinDock/internal/runner"
	"github.com/ecairns22/DolphinDock/internal/state"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// Strategy selects how the service is registered.
type Strategy int

const (
	NativeInstall Strategy = iota
	SCCreateFallback
)

func (s Strategy) String() string {
	switch s {
	case NativeInstall:
		return "native-install"
	case SCCreateFallback:
		return "sc-create"
	}
	return "unknown"
}

// Status is the overall result of an install run.
type Status int

const (
	Succeeded Status = iota
	Partial
	Failed
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case Partial:
		return "partial"
	default:
		return "failed"
	}
}

// Options are per-run presentation choices.
type Options struct {
	RevealCredential bool
}

// PathAppender is the subset of envpath.Editor used here.
type PathAppender interface {
	Append(ctx context.Context, dir string) (bool, error)
}

// PortChecker reports claims on a port.
type PortChecker interface {
	Conflicts(ctx context.Context, port int) ([]ports.Conflict, error)
}

// Ledger records finished installs and their history.
type Ledger interface {
	SaveInstall(ctx context.Context, in *state.Install) error
	AppendHistory(ctx context.Context, entry *state.HistoryEntry) error
}

// VerifyFunc connects to the new server and returns its version.
type VerifyFunc func(ctx context.Context, host string, port int, user, password string, timeout time.Duration) (string, error)

// Deps are the collaborators of an Orchestrator. SCM, Extractor and Elevation
// are required; the rest may be left nil.
type Deps struct {
	SCM       *winsvc.Manager
	Extractor archive.Extractor
	Elevation elevation.Checker
	Path      PathAppender
	Ports     PortChecker
	Ledger    Ledger
	Verify    VerifyFunc
	Probe     health.Prober
	Log       *zap.Logger

	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
	RunID func() string
}

// Settings are the engine names, defaults and delays used by every run.
type Settings struct {
	Keyword   string
	DaemonExe string
	ClientExe string
	AdminUser string
	AdminHost string

	ServicePrefix string
	DisplayName   string // template, see winsvc.RenderDisplayName
	Charset       string
	SQLMode       string

	LockDir string // empty disables the install lock

	RemoveSettle     time.Duration
	CredentialSettle time.Duration
	VerifyTimeout    time.Duration
}

// DefaultSettings returns the settings for a stock server archive.
func DefaultSettings() Settings {
	return Settings{
		Keyword:          "mysql",
		DaemonExe:        "mysqld.exe",
		ClientExe:        "mysql.exe",
		AdminUser:        "root",
		AdminHost:        "localhost",
		ServicePrefix:    "MySQL",
		DisplayName:      "MySQL Server {{.Port}}",
		Charset:          myini.DefaultCharset,
		SQLMode:          myini.DefaultSQLMode,
		RemoveSettle:     2 * time.Second,
		CredentialSettle: 5 * time.Second,
		VerifyTimeout:    10 * time.Second,
	}
}

// InstallResult describes what an install run achieved.
type InstallResult struct {
	RunID       string
	ServiceName string
	Port        int
	RootDir     string
	BinDir      string
	DataDir     string
	ConfigFile  string

	Registered     bool
	Strategy       Strategy
	Started        bool
	SoftStart      bool // start reported failure but the server was found running
	CredentialSet  bool
	ServerVersion  string
	EnvPathUpdated bool

	Status   Status
	Warnings []*StepError // non-fatal failures, in order
	Steps    []report.StepOutcome
	Summary  string
}

// Orchestrator runs install workflows.
type Orchestrator struct {
	deps Deps
	s    Settings
	log  *zap.Logger
}

// New creates an Orchestrator. Zero-valued settings fall back to
// DefaultSettings field by field.
func New(deps Deps, s Settings) *Orchestrator {
	def := DefaultSettings()
	fill := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	fill(&s.Keyword, def.Keyword)
	fill(&s.DaemonExe, def.DaemonExe)
	fill(&s.ClientExe, def.ClientExe)
	fill(&s.AdminUser, def.AdminUser)
	fill(&s.AdminHost, def.AdminHost)
	fill(&s.ServicePrefix, def.ServicePrefix)
	fill(&s.DisplayName, def.DisplayName)
	fill(&s.Charset, def.Charset)
	fill(&s.SQLMode, def.SQLMode)

	deps.Log = logger.OrNop(deps.Log)
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RunID == nil {
		deps.RunID = uuid.NewString
	}
	if deps.Probe == nil {
		deps.Probe = health.TCPProber{}
	}
	return &Orchestrator{deps: deps, s: s, log: deps.Log}
}

// ServiceName returns the service name derived for port.
func (o *Orchestrator) ServiceName(port int) string {
	return winsvc.DerivedName(o.s.ServicePrefix, strconv.Itoa(port))
}

// Install runs the full workflow for req. Every step is reported to out. A
// returned error is always a *StepError and means the run stopped at that
// step; completed steps are not undone. Warnings leave the run Partial and
// return a nil error.
func (o *Orchestrator) Install(ctx context.Context, req InstallRequest, opts Options, out report.Logger) (*InstallResult, error) {
	r := &run{
		o:    o,
		req:  req,
		opts: opts,
		out:  out,
		res: &InstallResult{
			RunID:       o.deps.RunID(),
			ServiceName: o.ServiceName(req.Port()),
			Port:        req.Port(),
		},
	}
	r.log = o.log.With(zap.String("run_id", r.res.RunID), zap.String("service", r.res.ServiceName))
	r.log.Info("install started", zap.Stringer("request", req))

	if err := r.install(ctx); err != nil {
		r.fail(ctx, err)
		return r.res, err
	}
	r.finish(ctx)
	return r.res, nil
}

type run struct {
	o    *Orchestrator
	req  InstallRequest
	opts Options
	out  report.Logger
	res  *InstallResult
	log  *zap.Logger
	warn bool
}

func (r *run) install(ctx context.Context) error {
	s := r.o.s
	res := r.res

	// 0. preflight
	if s.LockDir != "" {
		l, err := lock.Acquire(s.LockDir, res.ServiceName)
		if errors.Is(err, lock.ErrHeld) {
			return stepErr(KindSetup, "preflight", fmt.Errorf("%s: %w", res.ServiceName, ErrInstallInProgress))
		}
		if err != nil {
			return stepErr(KindSetup, "preflight", err)
		}
		defer func() {
			if err := l.Release(); err != nil {
				r.log.Warn("releasing install lock", zap.String("path", l.Path()), zap.Error(err))
			}
		}()
	}
	if err := r.checkPort(ctx); err != nil {
		return err
	}

	// 1. prepare directory
	dir := r.req.InstallDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return stepErr(KindSetup, "prepare", fmt.Errorf("creating %s: %w", dir, err))
	}
	r.step("prepare", report.Success, fmt.Sprintf("install directory %s ready", dir), nil)

	// 2. extract
	if err := r.o.deps.Extractor.Extract(r.req.ArchivePath(), dir); err != nil {
		return stepErr(KindSetup, "extract", fmt.Errorf("extracting %s: %w", r.req.ArchivePath(), err))
	}
	r.step("extract", report.Success, fmt.Sprintf("extracted %s", filepath.Base(r.req.ArchivePath())), nil)

	// 3. locate root
	root, err := FindRoot(dir, s.Keyword)
	if err != nil {
		return stepErr(KindDiscovery, "locate-root", err)
	}
	res.RootDir = root
	r.step("locate-root", report.Success, fmt.Sprintf("engine root %s", root), nil)

	// 4. verify bin
	bin := filepath.Join(root, "bin")
	if !isDir(bin) {
		return stepErr(KindDiscovery, "verify-bin", fmt.Errorf("%s: %w", bin, ErrBinNotFound))
	}
	res.BinDir = bin
	r.step("verify-bin", report.Success, fmt.Sprintf("executables in %s", bin), nil)

	// 5. data directory
	data := filepath.Join(root, "data")
	if err := os.MkdirAll(data, 0755); err != nil {
		return stepErr(KindSetup, "data-dir", fmt.Errorf("creating %s: %w", data, err))
	}
	res.DataDir = data
	r.step("data-dir", report.Success, fmt.Sprintf("data directory %s ready", data), nil)

	// 6. option file
	ini := filepath.Join(root, myini.FileNames[0])
	err = myini.Write(ini, myini.Settings{
		BaseDir: root,
		DataDir: data,
		Port:    res.Port,
		Charset: s.Charset,
		SQLMode: s.SQLMode,
	})
	if err != nil {
		return stepErr(KindSetup, "config", err)
	}
	res.ConfigFile = ini
	r.step("config", report.Success, fmt.Sprintf("wrote %s", ini), nil)

	// 7. initialize
	daemon := filepath.Join(bin, s.DaemonExe)
	out, err := r.runner().RunIn(ctx, root, daemon, "--defaults-file="+ini, "--initialize-insecure", "--console")
	if err != nil {
		return stepErr(KindProcess, "initialize", fmt.Errorf("launching %s: %w", s.DaemonExe, err))
	}
	if !out.OK() {
		r.stepOutput("initialize", report.Fail, "database initialization failed", &out)
		return exitErr(KindProcess, "initialize", out.ExitCode, ErrInitFailed)
	}
	r.stepOutput("initialize", report.Success, "data directory initialized", &out)

	// 8. register and start
	elevated := r.o.deps.Elevation.IsElevated(ctx)
	if elevated {
		if err := r.registerService(ctx, daemon, ini); err != nil {
			return err
		}
	} else {
		r.warning(KindSetup, "register", "administrator rights are required to register a service; skipping registration", nil)
	}

	// 9. credential
	r.setCredential(ctx, bin)

	// 10. PATH
	if r.req.ConfigureEnv() {
		r.configurePath(ctx, elevated, bin)
	}
	return nil
}

// checkPort rejects the request when the port is claimed, unless the caller
// allowed conflicts.
func (r *run) checkPort(ctx context.Context) error {
	if r.o.deps.Ports == nil {
		return nil
	}
	port := r.res.Port
	conflicts, err := r.o.deps.Ports.Conflicts(ctx, port)
	if err != nil {
		r.log.Warn("port check incomplete", zap.Error(err))
		r.warning(KindDiscovery, "preflight", fmt.Sprintf("port check incomplete: %v", err), nil)
	}
	if len(conflicts) == 0 {
		r.step("preflight", report.Success, fmt.Sprintf("port %d is free", port), nil)
		return nil
	}

	msgs := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		msgs = append(msgs, c.String())
	}
	detail := strings.Join(msgs, "; ")
	if r.req.AllowPortConflict() {
		r.warning(KindSafety, "preflight", fmt.Sprintf("continuing despite conflict: %s", detail), nil)
		return nil
	}
	return stepErr(KindSafety, "preflight", fmt.Errorf("%w: %s", ErrPortConflict, detail))
}

// registerService removes any stale service of the same name, registers the
// service natively or through sc.exe, then configures and starts it.
func (r *run) registerService(ctx context.Context, daemon, ini string) error {
	s := r.o.s
	name := r.res.ServiceName

	// 8a. stale registration
	if rm, err := r.runner().Run(ctx, daemon, "--remove", name); err != nil {
		r.log.Debug("stale service removal unavailable", zap.Error(err))
		r.emit(report.StepOutcome{Step: "register", Level: report.Info, Message: fmt.Sprintf("could not check for a stale service: %v", err)})
	} else {
		msg := fmt.Sprintf("removed stale service %s", name)
		if !rm.OK() {
			msg = fmt.Sprintf("no stale service %s to remove", name)
		}
		code := rm.ExitCode
		r.emit(report.StepOutcome{Step: "register", Level: report.Info, Succeeded: true, Message: msg, ExitCode: &code, Output: rm.Output})
	}
	if err := r.o.deps.Sleep(ctx, s.RemoveSettle); err != nil {
		return stepErr(KindSetup, "register", err)
	}

	// 8b. register
	registered := false
	for _, strategy := range []Strategy{NativeInstall, SCCreateFallback} {
		ok, err := r.register(ctx, strategy, daemon, ini)
		if err != nil {
			return err
		}
		if ok {
			r.res.Strategy = strategy
			registered = true
			break
		}
	}
	if !registered {
		r.step("register", report.Fail,
			fmt.Sprintf("could not register %s; run as administrator, remove any service named %s and retry", name, name), nil)
		return stepErr(KindProcess, "register", fmt.Errorf("%s: %w", name, ErrRegisterFailed))
	}
	r.res.Registered = true

	// 8c. configure
	if err := r.configure(ctx, "auto-start", "start at boot", r.o.deps.SCM.SetAutoStart); err != nil {
		return err
	}
	if err := r.configure(ctx, "account", "run as the local service account", r.o.deps.SCM.SetAccount); err != nil {
		return err
	}

	// 8d. start
	return r.start(ctx)
}

// register attempts one registration strategy. A false result with a nil error
// means the strategy ran and failed; the next strategy may be tried.
func (r *run) register(ctx context.Context, strategy Strategy, daemon, ini string) (bool, error) {
	name := r.res.ServiceName
	switch strategy {
	case NativeInstall:
		res, err := r.runner().Run(ctx, daemon, "--install", name, "--defaults-file="+ini)
		if err != nil {
			r.fallback(fmt.Sprintf("%s --install could not run (%v), falling back to sc create", r.o.s.DaemonExe, err), nil)
			return false, nil
		}
		if !res.OK() {
			r.fallback(fmt.Sprintf("%s --install failed, falling back to sc create", r.o.s.DaemonExe), &res)
			return false, nil
		}
		r.stepOutput("register", report.Success, fmt.Sprintf("service %s registered", name), &res)
		return true, nil

	case SCCreateFallback:
		display, err := winsvc.RenderDisplayName(r.o.s.DisplayName, name, strconv.Itoa(r.res.Port))
		if err != nil {
			return false, stepErr(KindSetup, "register", fmt.Errorf("rendering display name: %w", err))
		}
		res, err := r.o.deps.SCM.Create(ctx, winsvc.CreateParams{
			Name:         name,
			Daemon:       daemon,
			DefaultsFile: ini,
			DisplayName:  display,
		})
		if err != nil {
			return false, stepErr(KindProcess, "register", err)
		}
		if !res.OK() {
			r.stepOutput("register", report.Fail, "sc create failed", &res)
			return false, nil
		}
		r.stepOutput("register", report.Success, fmt.Sprintf("service %s registered with sc create", name), &res)
		return true, nil
	}
	return false, stepErr(KindSetup, "register", fmt.Errorf("unknown registration strategy %d", int(strategy)))
}

// fallback reports a recoverable registration failure. It does not make the
// run partial.
func (r *run) fallback(msg string, res *runner.Result) {
	o := report.StepOutcome{Step: "register", Level: report.Info, Message: msg}
	if res != nil {
		code := res.ExitCode
		o.ExitCode = &code
		o.Output = res.Output
	}
	r.emit(o)
}

func (r *run) configure(ctx context.Context, step, what string, fn func(context.Context, string) (runner.Result, error)) error {
	res, err := fn(ctx, r.res.ServiceName)
	if err != nil {
		return stepErr(KindProcess, step, err)
	}
	if !res.OK() {
		r.warning(KindProcess, step, fmt.Sprintf("could not configure the service to %s", what), &res)
		return nil
	}
	r.step(step, report.Success, fmt.Sprintf("service configured to %s", what), nil)
	return nil
}

// start starts the service. When the start command fails, a listener on the
// port or a running daemon process downgrades the failure to a warning.
func (r *run) start(ctx context.Context) error {
	name := r.res.ServiceName
	res, err := r.o.deps.SCM.Start(ctx, name)
	if err != nil {
		return stepErr(KindProcess, "start", err)
	}
	if res.OK() {
		r.res.Started = true
		r.step("start", report.Success, fmt.Sprintf("service %s started", name), nil)
		return nil
	}

	if r.o.deps.Probe.Probe(ctx, r.res.Port) {
		r.res.Started, r.res.SoftStart = true, true
		r.warning(KindSoft, "start", fmt.Sprintf("start reported failure but port %d accepts connections", r.res.Port), &res)
		return nil
	}
	running, err := r.o.deps.SCM.ProcessRunning(ctx, r.o.s.DaemonExe)
	if err != nil {
		r.log.Debug("process scan unavailable", zap.Error(err))
	}
	if running {
		r.res.Started, r.res.SoftStart = true, true
		r.warning(KindSoft, "start", fmt.Sprintf("start reported failure but %s is running", r.o.s.DaemonExe), &res)
		return nil
	}
	r.warning(KindLifecycle, "start", fmt.Sprintf("service %s did not start", name), &res)
	return nil
}

// setCredential sets the administrative password through the client tool. Any
// failure is a warning accompanied by the command to run by hand.
func (r *run) setCredential(ctx context.Context, bin string) {
	s := r.o.s
	if err := r.o.deps.Sleep(ctx, s.CredentialSettle); err != nil {
		r.warning(KindCredential, "credential", fmt.Sprintf("credential step interrupted: %v", err), nil)
		return
	}

	client := filepath.Join(bin, s.ClientExe)
	pw := r.req.RootPassword()
	manual := creds.ManualCommand(client, s.AdminUser, s.AdminHost, r.res.Port, pw, r.opts.RevealCredential)
	args := creds.ClientArgs(s.AdminUser, r.res.Port, creds.AlterUserStatement(s.AdminUser, s.AdminHost, pw))

	res, err := r.runner().Run(ctx, client, args...)
	switch {
	case err != nil:
		r.warning(KindCredential, "credential", fmt.Sprintf("could not run %s: %v; set the password manually:", s.ClientExe, err), nil)
		report.Printf(r.out, "%s", manual)
		return
	case !res.OK():
		r.warning(KindCredential, "credential", "could not set the administrative password; set it manually:", &res)
		report.Printf(r.out, "%s", manual)
		return
	}
	r.res.CredentialSet = true
	r.step("credential", report.Success, fmt.Sprintf("password set for %s@%s", s.AdminUser, s.AdminHost), nil)

	// 9b. verify
	if r.o.deps.Verify == nil {
		return
	}
	version, err := r.o.deps.Verify(ctx, s.AdminHost, r.res.Port, s.AdminUser, pw, s.VerifyTimeout)
	if err != nil {
		r.log.Warn("verifying credential", zap.Error(err))
		r.warning(KindCredential, "verify", fmt.Sprintf("could not connect with the new password: %v", err), nil)
		return
	}
	r.res.ServerVersion = version
	r.step("verify", report.Success, fmt.Sprintf("connected, server version %s", version), nil)
}

func (r *run) configurePath(ctx context.Context, elevated bool, bin string) {
	if !elevated {
		r.warning(KindSetup, "path", "administrator rights are required to change the machine PATH; skipping", nil)
		return
	}
	if r.o.deps.Path == nil {
		return
	}
	added, err := r.o.deps.Path.Append(ctx, bin)
	switch {
	case err != nil:
		r.warning(KindSetup, "path", fmt.Sprintf("could not update the machine PATH: %v", err), nil)
	case added:
		r.res.EnvPathUpdated = true
		r.step("path", report.Success, fmt.Sprintf("added %s to the machine PATH", bin), nil)
	default:
		r.step("path", report.Info, fmt.Sprintf("%s is already on the machine PATH", bin), nil)
	}
}

// finish reports the summary and records the install.
func (r *run) finish(ctx context.Context) {
	res := r.res
	res.Status = Succeeded
	if r.warn {
		res.Status = Partial
	}

	s := r.o.s
	password := creds.Mask(r.req.RootPassword())
	if r.opts.RevealCredential {
		password = r.req.RootPassword()
	}
	res.Summary = fmt.Sprintf("host: %s\nport: %d\nuser: %s\npassword: %s\nservice: %s\nbin: %s",
		s.AdminHost, res.Port, s.AdminUser, password, res.ServiceName, res.BinDir)
	r.emit(report.StepOutcome{
		Step:      "summary",
		Level:     summaryLevel(res.Status),
		Succeeded: true,
		Message:   fmt.Sprintf("install %s", res.Status),
		Output:    res.Summary,
	})
	r.log.Info("install finished", zap.Stringer("status", res.Status))

	if r.o.deps.Ledger == nil {
		return
	}
	version := res.ServerVersion
	if version == "" {
		if v, ok := ghclient.ParseArchiveVersion(r.req.ArchivePath()); ok {
			version = v.String()
		} else if v, ok := ghclient.ParseArchiveVersion(res.RootDir); ok {
			version = v.String()
		}
	}
	now := r.o.deps.Now()
	err := r.o.deps.Ledger.SaveInstall(ctx, &state.Install{
		Name:        res.ServiceName,
		Port:        res.Port,
		InstallDir:  r.req.InstallDir(),
		RootDir:     res.RootDir,
		Archive:     r.req.ArchivePath(),
		Version:     version,
		RunID:       res.RunID,
		Status:      res.Status.String(),
		Registered:  res.Registered,
		EnvPath:     res.EnvPathUpdated,
		InstalledAt: now,
		UpdatedAt:   now,
	})
	if err != nil {
		r.log.Warn("recording install", zap.Error(err))
	}
	detail := map[string]string{
		"status": res.Status.String(),
		"port":   strconv.Itoa(res.Port),
	}
	if res.Registered {
		detail["strategy"] = res.Strategy.String()
	}
	if len(res.Warnings) > 0 {
		kinds := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			kinds[i] = w.Step + ":" + w.Kind.String()
		}
		detail["warnings"] = strings.Join(kinds, ",")
	}
	r.history(ctx, "install", detail)
}

// fail reports err as InstallFailed and records it in the history.
func (r *run) fail(ctx context.Context, err error) {
	r.res.Status = Failed
	o := report.StepOutcome{
		Step:    "InstallFailed",
		Level:   report.Fail,
		Message: err.Error(),
	}
	var se *StepError
	if errors.As(err, &se) {
		o.ExitCode = se.ExitCode
	}
	r.emit(o)
	r.log.Error("install failed", zap.Error(err))

	if r.o.deps.Ledger == nil {
		return
	}
	detail := map[string]string{"error": err.Error(), "port": strconv.Itoa(r.res.Port)}
	if se != nil {
		detail["step"] = se.Step
		detail["kind"] = se.Kind.String()
	}
	r.history(ctx, "install-failed", detail)
}

func (r *run) history(ctx context.Context, action string, detail map[string]string) {
	err := r.o.deps.Ledger.AppendHistory(ctx, &state.HistoryEntry{
		Service: r.res.ServiceName,
		Action:  action,
		RunID:   r.res.RunID,
		Detail:  detail,
	})
	if err != nil {
		r.log.Warn("recording history", zap.String("action", action), zap.Error(err))
	}
}

func (r *run) runner() runner.CommandRunner {
	return r.o.deps.SCM.Runner()
}

// warning reports a non-fatal failure of the given kind. Tool output, if any,
// is included.
func (r *run) warning(kind Kind, name, msg string, res *runner.Result) {
	r.emitResult(name, report.Warn, msg, res, true)
	se := stepErr(kind, name, errors.New(msg))
	if res != nil && !res.OK() {
		code := res.ExitCode
		se.ExitCode = &code
	}
	r.res.Warnings = append(r.res.Warnings, se)
}

func (r *run) step(name string, level report.Level, msg string, res *runner.Result) {
	r.emitResult(name, level, msg, res, false)
}

func (r *run) stepOutput(name string, level report.Level, msg string, res *runner.Result) {
	r.emitResult(name, level, msg, res, true)
}

func (r *run) emitResult(name string, level report.Level, msg string, res *runner.Result, withOutput bool) {
	o := report.StepOutcome{
		Step:      name,
		Level:     level,
		Succeeded: level == report.Success || level == report.Info,
		Message:   msg,
	}
	if res != nil {
		if !res.OK() {
			code := res.ExitCode
			o.ExitCode = &code
		}
		if withOutput {
			o.Output = res.Output
		}
	}
	r.emit(o)
}

func (r *run) emit(o report.StepOutcome) {
	o.RunID = r.res.RunID
	o.Time = r.o.deps.Now()
	if o.Level == report.Warn {
		r.warn = true
	}
	r.res.Steps = append(r.res.Steps, o)
	report.Emit(r.out, o)
}

func summaryLevel(s Status) report.Level {
	if s == Partial {
		return report.Info
	}
	return report.Success
}

// FindRoot returns the first immediate subdirectory of dir, in name order,
// whose name contains keyword case-insensitively.
func FindRoot(dir, keyword string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", dir, err)
	}
	kw := strings.ToLower(keyword)
	for _, e := range entries {
		if e.IsDir() && strings.Contains(strings.ToLower(e.Name()), kw) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("%s: %w", dir, ErrRootNotFound)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
