// Package discovery finds database engine services installed on the host.
//
// Three strategies are tried in order and the first one that yields at least one
// record wins; results are never merged across strategies and never cached.
package discovery

import (
	"context"
	"errors"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/classify"
	"github.com/ecairns22/DolphinDock/internal/svctext"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// Options configures a Discovery.
type Options struct {
	Keyword   string // inventory filter, e.g. "mysql"
	DaemonExe string // e.g. "mysqld.exe"
	ClientExe string // e.g. "mysql.exe"

	// ProcessRecordName names the synthetic record reported when only a running
	// daemon process could be found.
	ProcessRecordName        string
	ProcessRecordDisplayName string

	// Blocks parses the service listing; defaults to svctext.SCQuery().
	Blocks svctext.Parser
	// Inventory parses the CSV inventory; defaults to svctext.CSVParser.
	Inventory svctext.Parser
	// Exists reports whether a file exists; defaults to os.Stat.
	Exists func(path string) bool
}

// Discovery composes the service manager, text parsers and classifier.
type Discovery struct {
	scm        *winsvc.Manager
	classifier *classify.Classifier
	opts       Options
	log        *zap.Logger
}

// New creates a Discovery. A nil logger disables diagnostic logging.
func New(scm *winsvc.Manager, c *classify.Classifier, opts Options, log *zap.Logger) *Discovery {
	if opts.Keyword == "" {
		opts.Keyword = "mysql"
	}
	if opts.DaemonExe == "" {
		opts.DaemonExe = opts.Keyword + "d.exe"
	}
	if opts.ClientExe == "" {
		opts.ClientExe = opts.Keyword + ".exe"
	}
	if opts.ProcessRecordName == "" {
		opts.ProcessRecordName = "MySQL (process)"
	}
	if opts.ProcessRecordDisplayName == "" {
		opts.ProcessRecordDisplayName = "MySQL detected from running process"
	}
	if opts.Blocks == nil {
		opts.Blocks = svctext.SCQuery()
	}
	if opts.Inventory == nil {
		opts.Inventory = svctext.CSVParser{}
	}
	if opts.Exists == nil {
		opts.Exists = fileExists
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Discovery{scm: scm, classifier: c, opts: opts, log: log}
}

// Discover returns the engine services found by the first productive strategy.
// An error is returned only when none of the listing tools could be launched.
func (d *Discovery) Discover(ctx context.Context) ([]winsvc.Record, error) {
	var launchErrs []error

	strategies := []struct {
		name string
		run  func(context.Context) ([]winsvc.Record, error)
	}{
		{"service listing", d.fromServiceListing},
		{"service inventory", d.fromInventory},
		{"process list", d.fromProcesses},
	}
	for _, s := range strategies {
		records, err := s.run(ctx)
		if err != nil {
			d.log.Warn("discovery strategy unavailable", zap.String("strategy", s.name), zap.Error(err))
			launchErrs = append(launchErrs, err)
			continue
		}
		if len(records) > 0 {
			d.log.Debug("discovery strategy matched", zap.String("strategy", s.name), zap.Int("records", len(records)))
			return records, nil
		}
	}
	if len(launchErrs) == len(strategies) {
		return nil, errors.Join(launchErrs...)
	}
	return nil, nil
}

// Find runs a fresh discovery and returns the record for name, compared
// case-insensitively.
func (d *Discovery) Find(ctx context.Context, name string) (winsvc.Record, bool, error) {
	records, err := d.Discover(ctx)
	if err != nil {
		return winsvc.Record{}, false, err
	}
	probe := winsvc.NewRecord(name, "", winsvc.Unknown, "")
	for _, r := range records {
		if r.SameService(probe) {
			return r, true, nil
		}
	}
	return winsvc.Record{}, false, nil
}

func (d *Discovery) fromServiceListing(ctx context.Context) ([]winsvc.Record, error) {
	res, err := d.scm.QueryAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []winsvc.Record
	for _, c := range d.opts.Blocks.Parse(res.Output) {
		if !d.classifier.IsCandidate(c.Name, c.DisplayName, "") {
			continue
		}
		out = append(out, winsvc.NewRecord(c.Name, c.DisplayName, c.State, d.configuredBinDir(ctx, c.Name)))
	}
	return out, nil
}

func (d *Discovery) configuredBinDir(ctx context.Context, name string) string {
	res, err := d.scm.QueryConfig(ctx, name)
	if err != nil || !res.OK() {
		return ""
	}
	path, ok := svctext.BinaryPathName(res.Output)
	if !ok {
		return ""
	}
	return svctext.ResolveBinDir(path, d.opts.Exists, d.opts.DaemonExe, d.opts.ClientExe)
}

func (d *Discovery) fromInventory(ctx context.Context) ([]winsvc.Record, error) {
	res, err := d.scm.InventoryWMIC(ctx, d.opts.Keyword)
	if err != nil {
		d.log.Debug("wmic unavailable, trying CIM", zap.Error(err))
		var cimErr error
		res, cimErr = d.scm.InventoryCIM(ctx, d.opts.Keyword)
		if cimErr != nil {
			return nil, errors.Join(err, cimErr)
		}
	}
	if !res.OK() {
		return nil, nil
	}
	var out []winsvc.Record
	for _, c := range d.opts.Inventory.Parse(res.Output) {
		if !d.classifier.IsCandidate(c.Name, c.DisplayName, c.Path) {
			continue
		}
		binDir := svctext.ResolveBinDir(c.Path, d.opts.Exists, d.opts.DaemonExe, d.opts.ClientExe)
		out = append(out, winsvc.NewRecord(c.Name, c.DisplayName, c.State, binDir))
	}
	return out, nil
}

func (d *Discovery) fromProcesses(ctx context.Context) ([]winsvc.Record, error) {
	running, err := d.scm.ProcessRunning(ctx, d.opts.DaemonExe)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, nil
	}
	return []winsvc.Record{
		winsvc.NewRecord(d.opts.ProcessRecordName, d.opts.ProcessRecordDisplayName, winsvc.Running, ""),
	}, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// IsSynthetic reports whether r was synthesized from the process list rather than
// read from the service manager.
func (d *Discovery) IsSynthetic(r winsvc.Record) bool {
	return strings.EqualFold(r.Name(), d.opts.ProcessRecordName)
}
