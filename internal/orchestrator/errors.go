package orchestrator

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid install request")
	ErrPortConflict      = errors.New("port already in use by an engine instance")
	ErrInstallInProgress = errors.New("another install for this service is in progress")
	ErrRootNotFound      = errors.New("engine root directory not found in install directory")
	ErrBinNotFound       = errors.New("executables directory not found under engine root")
	ErrInitFailed        = errors.New("database initialization failed")
	ErrRegisterFailed    = errors.New("service registration failed")
)

// Kind classifies a step failure.
type Kind int

const (
	KindSetup Kind = iota
	KindDiscovery
	KindProcess
	KindSoft
	KindCredential
	KindLifecycle
	KindSafety
)

func (k Kind) String() string {
	switch k {
	case KindSetup:
		return "setup"
	case KindDiscovery:
		return "discovery"
	case KindProcess:
		return "process"
	case KindSoft:
		return "soft"
	case KindCredential:
		return "credential"
	case KindLifecycle:
		return "lifecycle"
	case KindSafety:
		return "safety"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// StepError is returned when a step aborts the install.
type StepError struct {
	Kind     Kind
	Step     string
	ExitCode *int
	Err      error
}

func (e *StepError) Error() string {
	if e.ExitCode != nil {
		return fmt.Sprintf("%s: %v (exit code %d)", e.Step, e.Err, *e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func stepErr(kind Kind, step string, err error) *StepError {
	return &StepError{Kind: kind, Step: step, Err: err}
}

func exitErr(kind Kind, step string, code int, err error) *StepError {
	return &StepError{Kind: kind, Step: step, ExitCode: &code, Err: err}
}
