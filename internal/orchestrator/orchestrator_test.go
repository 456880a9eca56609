package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecairns22/DolphinDock/internal/archive"
	"github.com/ecairns22/DolphinDock/internal/elevation"
	"github.com/ecairns22/DolphinDock/internal/health"
	"github.com/ecairns22/DolphinDock/internal/lock"
	"github.com/ecairns22/DolphinDock/internal/myini"
	"github.com/ecairns22/DolphinDock/internal/ports"
	"github.com/ecairns22/DolphinDock/internal/report"
	"github.com/ecairns22/DolphinDock/internal/runner"
	"github.com/ecairns22/DolphinDock/internal/state"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

const (
	testPassword = "s3cret-pw"
	rootName     = "mysql-8.0.36-winx64"
)

type fakePorts struct {
	conflicts []ports.Conflict
	err       error
}

func (f fakePorts) Conflicts(context.Context, int) ([]ports.Conflict, error) {
	return f.conflicts, f.err
}

type fakePath struct{ appended []string }

func (f *fakePath) Append(_ context.Context, dir string) (bool, error) {
	f.appended = append(f.appended, dir)
	return true, nil
}

type fakeLedger struct {
	installs []*state.Install
	history  []*state.HistoryEntry
}

func (f *fakeLedger) SaveInstall(_ context.Context, in *state.Install) error {
	f.installs = append(f.installs, in)
	return nil
}

func (f *fakeLedger) AppendHistory(_ context.Context, e *state.HistoryEntry) error {
	f.history = append(f.history, e)
	return nil
}

var installedAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	dir      string
	runner   *runner.FakeRunner
	deps     Deps
	settings Settings
	ledger   *fakeLedger
	path     *fakePath
	probed   bool
	out      *report.Buffer
}

// layout creates an extracted archive tree under the destination directory.
func layout(dirs ...string) archive.Extractor {
	return archive.ExtractorFunc(func(_, dest string) error {
		for _, d := range dirs {
			if err := os.MkdirAll(filepath.Join(dest, d), 0755); err != nil {
				return err
			}
		}
		return nil
	})
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dir:    t.TempDir(),
		runner: runner.NewFakeRunner(),
		ledger: &fakeLedger{},
		path:   &fakePath{},
		out:    &report.Buffer{},
	}
	f.deps = Deps{
		SCM:       winsvc.New(f.runner, ""),
		Extractor: layout(filepath.Join(rootName, "bin"), filepath.Join(rootName, "share")),
		Elevation: elevation.Fixed(true),
		Path:      f.path,
		Ledger:    f.ledger,
		Probe: health.ProberFunc(func(context.Context, int) bool {
			f.probed = true
			return false
		}),
		Verify: func(context.Context, string, int, string, string, time.Duration) (string, error) {
			return "8.0.36", nil
		},
		Sleep: func(context.Context, time.Duration) error { return nil },
		Now:   func() time.Time { return installedAt },
		RunID: func() string { return "run-1" },
	}
	f.settings = DefaultSettings()
	return f
}

func (f *fixture) request(t *testing.T, mutate func(*RequestParams)) InstallRequest {
	t.Helper()
	p := RequestParams{
		ArchivePath:  filepath.Join(f.dir, "mysql-8.0.36-winx64.zip"),
		InstallDir:   filepath.Join(f.dir, "install"),
		RootPassword: testPassword,
		Port:         "3307",
		ConfigureEnv: true,
	}
	if mutate != nil {
		mutate(&p)
	}
	req, err := NewInstallRequest(p)
	require.NoError(t, err)
	return req
}

func (f *fixture) install(t *testing.T, req InstallRequest, opts Options) (*InstallResult, error) {
	t.Helper()
	return New(f.deps, f.settings).Install(context.Background(), req, opts, f.out)
}

func stepNames(steps []report.StepOutcome) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Step
	}
	return names
}

func TestInstallHappyPath(t *testing.T) {
	f := newFixture(t)
	req := f.request(t, nil)

	res, err := f.install(t, req, Options{})
	require.NoError(t, err)

	root := filepath.Join(req.InstallDir(), rootName)
	assert.Equal(t, Succeeded, res.Status)
	assert.Equal(t, "MySQL3307", res.ServiceName)
	assert.Equal(t, root, res.RootDir)
	assert.Equal(t, filepath.Join(root, "bin"), res.BinDir)
	assert.True(t, res.Registered)
	assert.Equal(t, NativeInstall, res.Strategy)
	assert.True(t, res.Started)
	assert.False(t, res.SoftStart)
	assert.True(t, res.CredentialSet)
	assert.Equal(t, "8.0.36", res.ServerVersion)
	assert.True(t, res.EnvPathUpdated)
	assert.Equal(t, []string{filepath.Join(root, "bin")}, f.path.appended)
	assert.DirExists(t, filepath.Join(root, "data"))

	settings, err := myini.Read(filepath.Join(root, "my.ini"))
	require.NoError(t, err)
	assert.Equal(t, 3307, settings.Port)
	assert.Equal(t, filepath.Join(root, "data"), settings.DataDir)

	order := []string{
		"mysqld.exe --defaults-file=",
		"mysqld.exe --remove MySQL3307",
		"mysqld.exe --install MySQL3307",
		"sc.exe config MySQL3307 start= auto",
		`sc.exe config MySQL3307 obj= NT AUTHORITY\LocalService`,
		"net.exe start MySQL3307",
		"mysql.exe -u root --protocol=tcp --port=3307",
	}
	last := -1
	for _, prefix := range order {
		i := f.runner.Index(prefix)
		require.GreaterOrEqual(t, i, 0, "missing call %q", prefix)
		assert.Greater(t, i, last, "call %q out of order", prefix)
		last = i
	}
	assert.Equal(t, root, f.runner.Calls[0].Dir, "initialization runs inside the engine root")
	assert.False(t, f.runner.Called("sc.exe create"))

	for _, s := range res.Steps {
		assert.Equal(t, "run-1", s.RunID)
	}
	assert.Equal(t, "summary", res.Steps[len(res.Steps)-1].Step)

	require.Len(t, f.ledger.installs, 1)
	assert.Equal(t, "MySQL3307", f.ledger.installs[0].Name)
	assert.Equal(t, "8.0.36", f.ledger.installs[0].Version)
	assert.Equal(t, "succeeded", f.ledger.installs[0].Status)
	assert.True(t, f.ledger.installs[0].InstalledAt.Equal(installedAt))
	assert.True(t, f.ledger.installs[0].UpdatedAt.Equal(installedAt))
	require.Len(t, f.ledger.history, 1)
	assert.Equal(t, "install", f.ledger.history[0].Action)
}

func TestStaleServiceRemovalIsReported(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("mysqld.exe --remove", runner.Response{ExitCode: 1, Output: "The service doesn't exist!"})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.Equal(t, Succeeded, res.Status, "a missing stale service is not a warning")

	var removal *report.StepOutcome
	for i := range res.Steps {
		if res.Steps[i].Step == "register" {
			removal = &res.Steps[i]
			break
		}
	}
	require.NotNil(t, removal)
	assert.Equal(t, report.Info, removal.Level)
	assert.Contains(t, removal.Message, "no stale service MySQL3307")
	require.NotNil(t, removal.ExitCode)
	assert.Equal(t, 1, *removal.ExitCode)
	assert.Empty(t, res.Warnings)
}

func TestSummaryMasksCredential(t *testing.T) {
	f := newFixture(t)

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.NotContains(t, f.out.String(), testPassword)
	assert.NotContains(t, res.Summary, testPassword)
	assert.Contains(t, res.Summary, "password: ********")
	assert.Contains(t, res.Summary, "user: root")
	assert.Contains(t, res.Summary, "port: 3307")

	f = newFixture(t)
	res, err = f.install(t, f.request(t, nil), Options{RevealCredential: true})
	require.NoError(t, err)
	assert.Contains(t, res.Summary, "password: "+testPassword)
}

func TestPortConflictAbortsBeforeFilesystemChanges(t *testing.T) {
	f := newFixture(t)
	f.deps.Ports = fakePorts{conflicts: []ports.Conflict{
		{Port: 3307, Source: ports.SourceService, Owner: "MySQL3307"},
	}}
	req := f.request(t, nil)

	res, err := f.install(t, req, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPortConflict))

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindSafety, se.Kind)
	assert.Equal(t, "preflight", se.Step)

	assert.Equal(t, Failed, res.Status)
	assert.NoDirExists(t, req.InstallDir())
	assert.Empty(t, f.runner.Calls)
	assert.Equal(t, "InstallFailed", res.Steps[len(res.Steps)-1].Step)

	assert.Empty(t, f.ledger.installs)
	require.Len(t, f.ledger.history, 1)
	assert.Equal(t, "install-failed", f.ledger.history[0].Action)
	assert.Equal(t, "preflight", f.ledger.history[0].Detail["step"])
}

func TestAllowPortConflictContinues(t *testing.T) {
	f := newFixture(t)
	f.deps.Ports = fakePorts{conflicts: []ports.Conflict{{Port: 3307, Source: ports.SourceListener}}}

	res, err := f.install(t, f.request(t, func(p *RequestParams) { p.AllowPortConflict = true }), Options{})
	require.NoError(t, err)
	assert.Equal(t, Partial, res.Status)
	assert.True(t, res.Registered)
	assert.Equal(t, report.Warn, res.Steps[0].Level)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindSafety, res.Warnings[0].Kind)
	assert.Equal(t, "preflight", res.Warnings[0].Step)
}

func TestIncompletePortCheckWarns(t *testing.T) {
	f := newFixture(t)
	f.deps.Ports = fakePorts{err: errors.New("ledger unavailable")}

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.Equal(t, Partial, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindDiscovery, res.Warnings[0].Kind)
}

func TestFallbackRegistrationAfterNativeInstallFails(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("mysqld.exe --install", runner.Response{ExitCode: 1, Output: "The service already exists!"})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)

	assert.True(t, res.Registered)
	assert.Equal(t, SCCreateFallback, res.Strategy)
	assert.Equal(t, Succeeded, res.Status)
	assert.Equal(t, 1, f.runner.CallCount("sc.exe create MySQL3307"))
	assert.True(t, f.runner.Called("sc.exe config MySQL3307 start= auto"))
	assert.True(t, f.runner.Called("net.exe start MySQL3307"))

	create := f.runner.Calls[f.runner.Index("sc.exe create")]
	assert.Contains(t, create.Args, "MySQL Server 3307")
	assert.Contains(t, strings.Join(create.Args, " "), "--defaults-file=")
}

func TestRegistrationFailsWhenBothStrategiesFail(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("mysqld.exe --install", runner.Response{ExitCode: 1})
	f.runner.SetResponse("sc.exe create", runner.Response{ExitCode: 1073, Output: "[SC] CreateService FAILED 1073"})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRegisterFailed))
	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, 1, f.runner.CallCount("sc.exe create"), "fallback is attempted once")
	assert.False(t, f.runner.Called("net.exe start"))
	assert.False(t, f.runner.Called("mysql.exe"))
}

func TestStartFailureWithListenerIsSoftSuccess(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("net.exe start", runner.Response{ExitCode: 2, Output: "The service is not responding to the control function."})
	f.deps.Probe = health.ProberFunc(func(context.Context, int) bool { return true })

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.True(t, res.Started)
	assert.True(t, res.SoftStart)
	assert.Equal(t, Partial, res.Status)
	assert.False(t, f.runner.Called("tasklist.exe"), "process scan only runs when the probe fails")

	var start *report.StepOutcome
	for i := range res.Steps {
		if res.Steps[i].Step == "start" {
			start = &res.Steps[i]
		}
	}
	require.NotNil(t, start)
	assert.Equal(t, report.Warn, start.Level)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindSoft, res.Warnings[0].Kind)
	require.NotNil(t, res.Warnings[0].ExitCode)
	assert.Equal(t, 2, *res.Warnings[0].ExitCode)
	require.Len(t, f.ledger.history, 1)
	assert.Equal(t, "start:soft", f.ledger.history[0].Detail["warnings"])
}

func TestStartFailureWithRunningProcessIsSoftSuccess(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("net.exe start", runner.Response{ExitCode: 2})
	f.runner.SetResponse("tasklist.exe", runner.Response{Output: `"mysqld.exe","4312","Services","0","412,332 K"`})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.True(t, f.probed)
	assert.True(t, res.SoftStart)
	assert.Equal(t, Partial, res.Status)
}

func TestStartFailureWithoutServerIsWarning(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("net.exe start", runner.Response{ExitCode: 2})
	f.runner.SetResponse("tasklist.exe", runner.Response{Output: "INFO: No tasks are running which match the specified criteria."})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.False(t, res.Started)
	assert.Equal(t, Partial, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindLifecycle, res.Warnings[0].Kind)
	assert.True(t, f.runner.Called("mysql.exe"), "credential step still runs")
}

func TestRootNotFound(t *testing.T) {
	f := newFixture(t)
	f.deps.Extractor = layout("docs", "licenses")

	res, err := f.install(t, f.request(t, nil), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRootNotFound))

	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindDiscovery, se.Kind)
	assert.Equal(t, Failed, res.Status)
	assert.Empty(t, f.runner.Calls)
}

func TestRootMatchIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "MySQL-8.4.0-winx64"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mysql.txt"), nil, 0644))

	root, err := FindRoot(dir, "mysql")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "MySQL-8.4.0-winx64"), root)
}

func TestBinNotFound(t *testing.T) {
	f := newFixture(t)
	f.deps.Extractor = layout(filepath.Join(rootName, "share"))

	_, err := f.install(t, f.request(t, nil), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBinNotFound))
	assert.Empty(t, f.runner.Calls)
}

func TestExtractFailureIsSetupError(t *testing.T) {
	f := newFixture(t)
	f.deps.Extractor = archive.ExtractorFunc(func(string, string) error { return errors.New("zip: not a valid zip file") })

	_, err := f.install(t, f.request(t, nil), Options{})
	var se *StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindSetup, se.Kind)
	assert.Equal(t, "extract", se.Step)
}

func TestInitFailedStopsPipeline(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("mysqld.exe", runner.Response{ExitCode: 1, Output: "[ERROR] [MY-010457] --initialize specified but the data directory has files in it."})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInitFailed))

	var se *StepError
	require.True(t, errors.As(err, &se))
	require.NotNil(t, se.ExitCode)
	assert.Equal(t, 1, *se.ExitCode)
	assert.Equal(t, KindProcess, se.Kind)

	assert.Len(t, f.runner.Calls, 1)
	assert.Contains(t, f.out.String(), "MY-010457")
	assert.Empty(t, f.ledger.installs)
	assert.Equal(t, []string{"prepare", "extract", "locate-root", "verify-bin", "data-dir", "config", "initialize", "InstallFailed"}, stepNames(res.Steps))
}

func TestNotElevatedSkipsPrivilegedSteps(t *testing.T) {
	f := newFixture(t)
	f.deps.Elevation = elevation.Fixed(false)

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)

	assert.False(t, res.Registered)
	assert.False(t, res.EnvPathUpdated)
	assert.Equal(t, Partial, res.Status)
	assert.False(t, f.runner.Called("sc.exe"))
	assert.False(t, f.runner.Called("net.exe"))
	assert.False(t, f.runner.Called("mysqld.exe --install"))
	assert.True(t, f.runner.Called("mysql.exe"), "credential step still runs")
	assert.Empty(t, f.path.appended)
}

func TestCredentialFailureLogsManualCommand(t *testing.T) {
	f := newFixture(t)
	f.runner.SetResponse("mysql.exe -u", runner.Response{ExitCode: 1, Output: "ERROR 2003 (HY000): Can't connect to MySQL server on 'localhost:3307'"})

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.False(t, res.CredentialSet)
	assert.Empty(t, res.ServerVersion, "verification needs the new credential")
	assert.Equal(t, Partial, res.Status)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindCredential, res.Warnings[0].Kind)
	assert.Equal(t, "credential", res.Warnings[0].Step)

	log := f.out.String()
	assert.Contains(t, log, "ALTER USER 'root'@'localhost' IDENTIFIED BY '<password>'; FLUSH PRIVILEGES;")
	assert.NotContains(t, log, testPassword)
}

func TestVerifyFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.deps.Verify = func(context.Context, string, int, string, string, time.Duration) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}

	res, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)
	assert.True(t, res.CredentialSet)
	assert.Equal(t, Partial, res.Status)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, KindCredential, res.Warnings[0].Kind)
	assert.Equal(t, "verify", res.Warnings[0].Step)
	require.Len(t, f.ledger.installs, 1)
	assert.Equal(t, "8.0.36", f.ledger.installs[0].Version, "falls back to the archive name")
}

func TestInstallLockHeld(t *testing.T) {
	f := newFixture(t)
	f.settings.LockDir = filepath.Join(f.dir, "locks")
	held, err := lock.Acquire(f.settings.LockDir, "mysql3307")
	require.NoError(t, err)
	defer held.Release()

	req := f.request(t, nil)
	_, err = f.install(t, req, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInstallInProgress))
	assert.NoDirExists(t, req.InstallDir())
}

func TestInstallLockReleasedAfterRun(t *testing.T) {
	f := newFixture(t)
	f.settings.LockDir = filepath.Join(f.dir, "locks")

	_, err := f.install(t, f.request(t, nil), Options{})
	require.NoError(t, err)

	l, err := lock.Acquire(f.settings.LockDir, "MySQL3307")
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestStepErrorMessage(t *testing.T) {
	err := exitErr(KindProcess, "initialize", 3, ErrInitFailed)
	assert.Equal(t, "initialize: database initialization failed (exit code 3)", err.Error())
	assert.Equal(t, "discovery", KindDiscovery.String())
}
