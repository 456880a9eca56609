package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/archive"
	"github.com/ecairns22/DolphinDock/internal/classify"
	"github.com/ecairns22/DolphinDock/internal/config"
	"github.com/ecairns22/DolphinDock/internal/db"
	"github.com/ecairns22/DolphinDock/internal/discovery"
	"github.com/ecairns22/DolphinDock/internal/elevation"
	"github.com/ecairns22/DolphinDock/internal/envpath"
	"github.com/ecairns22/DolphinDock/internal/health"
	"github.com/ecairns22/DolphinDock/internal/lifecycle"
	"github.com/ecairns22/DolphinDock/internal/logger"
	"github.com/ecairns22/DolphinDock/internal/orchestrator"
	"github.com/ecairns22/DolphinDock/internal/ports"
	"github.com/ecairns22/DolphinDock/internal/report"
	"github.com/ecairns22/DolphinDock/internal/runner"
	"github.com/ecairns22/DolphinDock/internal/state"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// app holds the managers shared by the subcommands. The caller is responsible
// for calling Close.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func() error
	scm      *winsvc.Manager
	elev     elevation.Checker
	disc     *discovery.Discovery
	path     *envpath.Editor
	life     *lifecycle.Manager
}

// buildApp loads config and constructs all managers.
func buildApp(g *globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	log, closeLog, err := logger.New(cfg.System.LogFile, g.verbose)
	if err != nil {
		return nil, err
	}

	enc, err := runner.Encoding(cfg.System.Codepage)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("system.codepage: %w", err)
	}
	r := &runner.OSRunner{Encoding: enc}

	scm := winsvc.New(r, cfg.Install.ServiceAccount)
	elev := elevation.Default(r, log)
	rules := classify.Rules{
		Keyword:           cfg.Engine.Keyword,
		Denylist:          cfg.Discovery.Denylist,
		HostnamePrefixes:  cfg.Discovery.HostnamePrefixes,
		LongNameThreshold: cfg.Discovery.LongNameThreshold,
	}
	disc := discovery.New(scm, classify.New(rules), discovery.Options{
		Keyword:           cfg.Engine.Keyword,
		DaemonExe:         cfg.Engine.DaemonExe,
		ClientExe:         cfg.Engine.ClientExe,
		ProcessRecordName: cfg.Discovery.ProcessRecordName,
	}, log.Named("discovery"))
	path := envpath.New(r, log.Named("envpath"))
	life := lifecycle.New(scm, elev, path, lifecycle.Options{DaemonExe: cfg.Engine.DaemonExe}, log.Named("lifecycle"))

	return &app{
		cfg:      cfg,
		log:      log,
		closeLog: closeLog,
		scm:      scm,
		elev:     elev,
		disc:     disc,
		path:     path,
		life:     life,
	}, nil
}

func (a *app) Close() {
	if err := a.closeLog(); err != nil {
		fmt.Fprintf(os.Stderr, "closing log: %v\n", err)
	}
}

// openStore opens the install ledger, creating its directory when needed.
func (a *app) openStore() (*state.Store, error) {
	if err := os.MkdirAll(filepath.Dir(a.cfg.System.StateDB), 0755); err != nil {
		return nil, fmt.Errorf("creating state dir: %w", err)
	}
	store, err := state.Open(a.cfg.System.StateDB)
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	return store, nil
}

func (a *app) prober() health.Prober {
	return health.TCPProber{Timeout: a.cfg.Timing.ProbeTimeout.Duration}
}

// portChecker combines discovery, the ledger and a live probe. store may be nil.
func (a *app) portChecker(store *state.Store) *ports.Checker {
	var ps ports.PortStore
	if store != nil {
		ps = store
	}
	return ports.New(a.disc, ps, a.prober(), a.cfg.Install.ServicePrefix)
}

// orchestrator builds an install orchestrator. store may be nil, in which case
// nothing is recorded.
func (a *app) orchestrator(store *state.Store) *orchestrator.Orchestrator {
	deps := orchestrator.Deps{
		SCM:       a.scm,
		Extractor: archive.Zip{},
		Elevation: a.elev,
		Path:      a.path,
		Ports:     a.portChecker(store),
		Verify:    db.ServerVersion,
		Probe:     a.prober(),
		Log:       a.log.Named("orchestrator"),
	}
	if store != nil {
		deps.Ledger = store
	}
	c := a.cfg
	return orchestrator.New(deps, orchestrator.Settings{
		Keyword:          c.Engine.Keyword,
		DaemonExe:        c.Engine.DaemonExe,
		ClientExe:        c.Engine.ClientExe,
		AdminUser:        c.Engine.AdminUser,
		AdminHost:        c.Engine.AdminHost,
		ServicePrefix:    c.Install.ServicePrefix,
		DisplayName:      c.Install.DisplayName,
		Charset:          c.Install.Charset,
		SQLMode:          c.Install.SQLMode,
		LockDir:          c.System.LockDir,
		RemoveSettle:     c.Timing.RemoveSettle.Duration,
		CredentialSettle: c.Timing.CredentialSettle.Duration,
		VerifyTimeout:    c.Timing.VerifyTimeout.Duration,
	})
}

// resolveService finds the named service, or lets the operator pick one when
// no name is given on a terminal.
func (a *app) resolveService(ctx context.Context, args []string) (winsvc.Record, error) {
	if len(args) > 0 {
		rec, ok, err := a.disc.Find(ctx, args[0])
		if err != nil {
			return winsvc.Record{}, err
		}
		if !ok {
			return winsvc.Record{}, fmt.Errorf("service %q not found; run 'dolphindock list' to see MySQL services", args[0])
		}
		return rec, nil
	}

	records, err := a.disc.Discover(ctx)
	if err != nil {
		return winsvc.Record{}, err
	}
	if len(records) == 0 {
		return winsvc.Record{}, fmt.Errorf("no MySQL services found")
	}
	return pickService("Select a MySQL service", records)
}

// recordHistory appends a lifecycle action to the ledger. Ledger failures are
// logged, never returned.
func (a *app) recordHistory(ctx context.Context, service, action string, detail map[string]string) {
	store, err := a.openStore()
	if err != nil {
		a.log.Warn("recording history", zap.Error(err))
		return
	}
	defer store.Close()
	if err := store.AppendHistory(ctx, &state.HistoryEntry{Service: service, Action: action, Detail: detail}); err != nil {
		a.log.Warn("recording history", zap.String("action", action), zap.Error(err))
	}
}

// console renders report lines, coloring step lines by level.
type console struct {
	w       io.Writer
	pending *report.Level
}

func newConsole(w io.Writer) *console {
	return &console{w: w}
}

func (c *console) ObserveStep(o report.StepOutcome) {
	l := o.Level
	c.pending = &l
}

func (c *console) Accept(text string) {
	if c.pending == nil {
		fmt.Fprint(c.w, text)
		return
	}
	level := *c.pending
	c.pending = nil
	line := strings.TrimRight(text, "\n")
	fmt.Fprint(c.w, levelColor(level).Sprint(line)+text[len(line):])
}

func levelColor(l report.Level) *color.Color {
	switch l {
	case report.Success:
		return color.New(color.FgGreen)
	case report.Warn:
		return color.New(color.FgYellow)
	case report.Fail:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

func stateColor(s winsvc.State) string {
	switch s {
	case winsvc.Running:
		return color.GreenString(s.String())
	case winsvc.Stopped:
		return color.RedString(s.String())
	case winsvc.Unknown:
		return s.String()
	default:
		return color.YellowString(s.String())
	}
}
