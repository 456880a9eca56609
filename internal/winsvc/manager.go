package winsvc

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecairns22/DolphinDock/internal/runner"
)

const (
	scExe         = "sc.exe"
	netExe        = "net.exe"
	tasklistExe   = "tasklist.exe"
	wmicExe       = "wmic.exe"
	powershellExe = "powershell.exe"
)

// DefaultAccount is the restricted account new services run under.
const DefaultAccount = `NT AUTHORITY\LocalService`

// Manager issues service control commands through sc.exe, net.exe and tasklist.exe.
// Every method returns the command Result; a non-zero exit code is not an error.
// Errors are returned only when the tool itself could not be launched.
type Manager struct {
	runner  runner.CommandRunner
	account string
}

// New creates a service control manager with the given command runner. An empty
// account selects DefaultAccount.
func New(r runner.CommandRunner, account string) *Manager {
	if account == "" {
		account = DefaultAccount
	}
	return &Manager{runner: r, account: account}
}

// Runner returns the command runner the manager was built with.
func (m *Manager) Runner() runner.CommandRunner {
	return m.runner
}

// QueryAll lists every service in every state.
func (m *Manager) QueryAll(ctx context.Context) (runner.Result, error) {
	return m.run(ctx, scExe, "query", "type=", "service", "state=", "all")
}

// Query returns the status block for one service.
func (m *Manager) Query(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, scExe, "query", name)
}

// QueryConfig returns the configuration block (sc qc) for one service.
func (m *Manager) QueryConfig(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, scExe, "qc", name)
}

// Start starts the service with net start.
func (m *Manager) Start(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, netExe, "start", name)
}

// Stop stops the service with net stop.
func (m *Manager) Stop(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, netExe, "stop", name)
}

// SetAutoStart configures the service to start at boot.
func (m *Manager) SetAutoStart(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, scExe, "config", name, "start=", "auto")
}

// SetAccount assigns the restricted service account with an empty password.
func (m *Manager) SetAccount(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, scExe, "config", name, "obj=", m.account, "password=", "")
}

// Create registers a service directly with the service control manager.
func (m *Manager) Create(ctx context.Context, params CreateParams) (runner.Result, error) {
	binPath, err := RenderBinPath(params)
	if err != nil {
		return runner.Result{}, fmt.Errorf("rendering binPath for %s: %w", params.Name, err)
	}
	return m.run(ctx, scExe, "create", params.Name,
		"binPath=", binPath,
		"type=", "own",
		"start=", "auto",
		"DisplayName=", params.DisplayName)
}

// Delete removes the service registration.
func (m *Manager) Delete(ctx context.Context, name string) (runner.Result, error) {
	return m.run(ctx, scExe, "delete", name)
}

// Processes lists running processes whose image name equals image, as CSV without header.
func (m *Manager) Processes(ctx context.Context, image string) (runner.Result, error) {
	return m.run(ctx, tasklistExe, "/fi", fmt.Sprintf("imagename eq %s", image), "/fo", "csv", "/nh")
}

// ProcessRunning reports whether a process with the given image name is running.
func (m *Manager) ProcessRunning(ctx context.Context, image string) (bool, error) {
	res, err := m.Processes(ctx, image)
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(res.Output), strings.ToLower(image)), nil
}

// InventoryWMIC lists services whose name, display name or command line contain
// keyword, as CSV with a header row.
func (m *Manager) InventoryWMIC(ctx context.Context, keyword string) (runner.Result, error) {
	where := fmt.Sprintf("name like '%%%[1]s%%' or displayname like '%%%[1]s%%' or pathname like '%%%[1]s%%'", keyword)
	return m.run(ctx, wmicExe, "service", "where", where, "get", "name,displayname,state,pathname", "/format:csv")
}

// InventoryCIM is InventoryWMIC for hosts where wmic has been removed.
func (m *Manager) InventoryCIM(ctx context.Context, keyword string) (runner.Result, error) {
	script := fmt.Sprintf("Get-CimInstance Win32_Service | "+
		"Where-Object { $_.Name -like '*%[1]s*' -or $_.DisplayName -like '*%[1]s*' -or $_.PathName -like '*%[1]s*' } | "+
		"Select-Object Name,DisplayName,State,PathName | ConvertTo-Csv -NoTypeInformation", keyword)
	return m.run(ctx, powershellExe, "-NoProfile", "-NonInteractive", "-Command", script)
}

func (m *Manager) run(ctx context.Context, name string, args ...string) (runner.Result, error) {
	res, err := m.runner.Run(ctx, name, args...)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	return res, nil
}
