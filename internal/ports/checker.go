// Package ports detects ports already claimed by an engine instance and suggests
// free ones.
package ports

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ecairns22/DolphinDock/internal/health"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

// PortStore is the subset of state.Store needed by the checker.
type PortStore interface {
	UsedPorts(ctx context.Context) ([]int, error)
	PortOwner(ctx context.Context, port int) (string, error)
}

// ServiceLister is the subset of discovery.Discovery needed by the checker.
type ServiceLister interface {
	Discover(ctx context.Context) ([]winsvc.Record, error)
}

// Source says where a conflict was observed.
type Source string

const (
	SourceService  Source = "service"
	SourceLedger   Source = "ledger"
	SourceListener Source = "listener"
)

// Conflict describes one claim on a port.
type Conflict struct {
	Port   int
	Source Source
	Owner  string // service or install name; empty for a bare listener
}

func (c Conflict) String() string {
	switch c.Source {
	case SourceService:
		return fmt.Sprintf("port %d: service %q is registered for it", c.Port, c.Owner)
	case SourceLedger:
		return fmt.Sprintf("port %d: already recorded for install %q", c.Port, c.Owner)
	default:
		return fmt.Sprintf("port %d: something is already listening", c.Port)
	}
}

// Checker combines discovered services, the install ledger and a live probe.
// Any of the three may be nil.
type Checker struct {
	services ServiceLister
	store    PortStore
	probe    health.Prober
	prefix   string
}

// New creates a checker. prefix is the service name prefix used to derive
// service names from ports.
func New(services ServiceLister, store PortStore, probe health.Prober, prefix string) *Checker {
	return &Checker{services: services, store: store, probe: probe, prefix: prefix}
}

// Conflicts returns every claim on port. Sources that could not be consulted are
// reported in err; conflicts from the remaining sources are still returned.
func (c *Checker) Conflicts(ctx context.Context, port int) ([]Conflict, error) {
	var (
		out  []Conflict
		errs []error
	)

	if c.services != nil {
		records, err := c.services.Discover(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("discovering services: %w", err))
		}
		for _, r := range records {
			if c.namedFor(r.Name(), port) {
				out = append(out, Conflict{Port: port, Source: SourceService, Owner: r.Name()})
			}
		}
	}

	if c.store != nil {
		owner, err := c.store.PortOwner(ctx, port)
		if err != nil {
			errs = append(errs, fmt.Errorf("checking ledger for port %d: %w", port, err))
		} else if owner != "" {
			out = append(out, Conflict{Port: port, Source: SourceLedger, Owner: owner})
		}
	}

	if c.probe != nil && c.probe.Probe(ctx, port) {
		out = append(out, Conflict{Port: port, Source: SourceListener})
	}

	return out, errors.Join(errs...)
}

// Next returns the lowest port in [start, end) with no conflicts.
func (c *Checker) Next(ctx context.Context, start, end int) (int, error) {
	var records []winsvc.Record
	if c.services != nil {
		var err error
		if records, err = c.services.Discover(ctx); err != nil {
			return 0, fmt.Errorf("discovering services: %w", err)
		}
	}

	used := make(map[int]bool)
	if c.store != nil {
		ports, err := c.store.UsedPorts(ctx)
		if err != nil {
			return 0, fmt.Errorf("querying used ports: %w", err)
		}
		for _, p := range ports {
			used[p] = true
		}
	}

	for port := start; port < end; port++ {
		if used[port] || c.anyNamedFor(records, port) {
			continue
		}
		if c.probe != nil && c.probe.Probe(ctx, port) {
			continue
		}
		return port, nil
	}

	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

// namedFor reports whether a service name claims port: the derived name, or any
// name ending in the port digits not preceded by another digit.
func (c *Checker) namedFor(name string, port int) bool {
	digits := strconv.Itoa(port)
	if c.prefix != "" && strings.EqualFold(name, winsvc.DerivedName(c.prefix, digits)) {
		return true
	}
	if !strings.HasSuffix(name, digits) {
		return false
	}
	rest := name[:len(name)-len(digits)]
	if rest == "" {
		return false
	}
	last := rest[len(rest)-1]
	return last < '0' || last > '9'
}

func (c *Checker) anyNamedFor(records []winsvc.Record, port int) bool {
	for _, r := range records {
		if c.namedFor(r.Name(), port) {
			return true
		}
	}
	return false
}
