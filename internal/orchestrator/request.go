package orchestrator

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// RequestParams is the raw input collected from the operator.
type RequestParams struct {
	ArchivePath       string
	InstallDir        string
	RootPassword      string
	Port              string
	ConfigureEnv      bool
	AllowPortConflict bool
}

// InstallRequest is a validated, immutable install request. Build it with
// NewInstallRequest.
type InstallRequest struct {
	archivePath       string
	installDir        string
	rootPassword      string
	port              int
	configureEnv      bool
	allowPortConflict bool
}

// NewInstallRequest validates p. The port must be all digits in 1-65535.
func NewInstallRequest(p RequestParams) (InstallRequest, error) {
	port, err := ParsePort(p.Port)
	if err != nil {
		return InstallRequest{}, err
	}
	if strings.TrimSpace(p.ArchivePath) == "" {
		return InstallRequest{}, fmt.Errorf("%w: archive path is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(p.InstallDir) == "" {
		return InstallRequest{}, fmt.Errorf("%w: install directory is required", ErrInvalidRequest)
	}
	if p.RootPassword == "" {
		return InstallRequest{}, fmt.Errorf("%w: root password is required", ErrInvalidRequest)
	}
	dir, err := filepath.Abs(p.InstallDir)
	if err != nil {
		return InstallRequest{}, fmt.Errorf("%w: install directory: %v", ErrInvalidRequest, err)
	}
	return InstallRequest{
		archivePath:       p.ArchivePath,
		installDir:        dir,
		rootPassword:      p.RootPassword,
		port:              port,
		configureEnv:      p.ConfigureEnv,
		allowPortConflict: p.AllowPortConflict,
	}, nil
}

// ParsePort accepts only decimal digits in the range 1-65535.
func ParsePort(text string) (int, error) {
	if text == "" {
		return 0, fmt.Errorf("%w: port is required", ErrInvalidRequest)
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: port %q must contain only digits", ErrInvalidRequest, text)
		}
	}
	port, err := strconv.Atoi(text)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: port %s is outside 1-65535", ErrInvalidRequest, text)
	}
	return port, nil
}

func (r InstallRequest) ArchivePath() string     { return r.archivePath }
func (r InstallRequest) InstallDir() string      { return r.installDir }
func (r InstallRequest) RootPassword() string    { return r.rootPassword }
func (r InstallRequest) Port() int               { return r.port }
func (r InstallRequest) ConfigureEnv() bool      { return r.configureEnv }
func (r InstallRequest) AllowPortConflict() bool { return r.allowPortConflict }

// String renders the request without the password.
func (r InstallRequest) String() string {
	return fmt.Sprintf("install %s into %s on port %d", r.archivePath, r.installDir, r.port)
}
