package winsvc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// State is the run state reported by the service control manager.
type State int

const (
	Unknown State = iota
	Running
	Stopped
	StartPending
	StopPending
	Paused
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case StartPending:
		return "start pending"
	case StopPending:
		return "stop pending"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// Record describes one registered service. Records are values and are never
// modified after construction; a state change is observed by discovering again.
type Record struct {
	name        string
	displayName string
	state       State
	binDir      string
}

// NewRecord builds a Record. binDir, when set, is the directory holding the
// engine executables, never the executable itself.
func NewRecord(name, displayName string, state State, binDir string) Record {
	return Record{name: name, displayName: displayName, state: state, binDir: binDir}
}

func (r Record) Name() string        { return r.name }
func (r Record) DisplayName() string { return r.displayName }
func (r Record) State() State        { return r.state }
func (r Record) BinDir() string      { return r.binDir }

// SameService reports whether both records name the same service.
func (r Record) SameService(other Record) bool {
	return strings.EqualFold(r.name, other.name)
}

func (r Record) String() string {
	label := r.displayName
	if label == "" {
		label = r.name
	}
	return fmt.Sprintf("%s (%s)", label, r.state)
}

// MarshalJSON renders the record for `list --json`.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string `json:"name"`
		DisplayName string `json:"display_name,omitempty"`
		State       string `json:"state"`
		BinDir      string `json:"bin_dir,omitempty"`
	}{r.name, r.displayName, r.state.String(), r.binDir})
}

var validName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidateServiceName checks that a name is safe to pass to sc.exe and net.exe.
func ValidateServiceName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("invalid service name %q: must match %s", name, validName.String())
	}
	return nil
}

// DerivedName returns the service name used for an install on port.
func DerivedName(prefix, port string) string {
	return prefix + port
}
