package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

const envOverride = "DOLPHINDOCK_CONFIG"

type Config struct {
	Engine    EngineConfig    `toml:"engine"`
	Install   InstallConfig   `toml:"install"`
	Timing    TimingConfig    `toml:"timing"`
	Discovery DiscoveryConfig `toml:"discovery"`
	System    SystemConfig    `toml:"system"`
	GitHub    GitHubConfig    `toml:"github"`
}

type EngineConfig struct {
	Keyword   string `toml:"keyword"`
	DaemonExe string `toml:"daemon_exe"`
	ClientExe string `toml:"client_exe"`
	AdminUser string `toml:"admin_user"`
	AdminHost string `toml:"admin_host"`
}

type InstallConfig struct {
	ServicePrefix     string   `toml:"service_prefix"`
	DisplayName       string   `toml:"display_name"` // template with .Name and .Port
	ServiceAccount    string   `toml:"service_account"`
	DefaultPort       int      `toml:"default_port"`
	PortRangeEnd      int      `toml:"port_range_end"`
	ArchiveCandidates []string `toml:"archive_candidates"`
	Charset           string   `toml:"charset"`
	SQLMode           string   `toml:"sql_mode"`
	PasswordLength    int      `toml:"password_length"`
}

type TimingConfig struct {
	RemoveSettle     Duration `toml:"remove_settle"`
	CredentialSettle Duration `toml:"credential_settle"`
	ProbeTimeout     Duration `toml:"probe_timeout"`
	VerifyTimeout    Duration `toml:"verify_timeout"`
}

type DiscoveryConfig struct {
	Denylist          []string `toml:"denylist"`
	HostnamePrefixes  []string `toml:"hostname_prefixes"`
	LongNameThreshold int      `toml:"long_name_threshold"`
	ProcessRecordName string   `toml:"process_record_name"`
}

type SystemConfig struct {
	Codepage string `toml:"codepage"` // "auto", "utf-8", "cp936", ...
	StateDB  string `toml:"state_db"`
	LockDir  string `toml:"lock_dir"`
	LogFile  string `toml:"log_file"`
}

type GitHubConfig struct {
	Token          string `toml:"token"`
	Owner          string `toml:"owner"`
	Repo           string `toml:"repo"`
	ArchivePattern string `toml:"archive_pattern"`
	MaxPages       int    `toml:"max_pages"`
}

// Duration is a time.Duration written as a string such as "5s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// BaseDir returns the directory holding the default config, ledger and locks.
func BaseDir() string {
	if pd := os.Getenv("ProgramData"); pd != "" {
		return filepath.Join(pd, "DolphinDock")
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "dolphindock")
	}
	return filepath.Join(os.TempDir(), "dolphindock")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	if p := os.Getenv(envOverride); p != "" {
		return p
	}
	return filepath.Join(BaseDir(), "dolphindock.toml")
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	base := BaseDir()
	return &Config{
		Engine: EngineConfig{
			Keyword:   "mysql",
			DaemonExe: "mysqld.exe",
			ClientExe: "mysql.exe",
			AdminUser: "root",
			AdminHost: "localhost",
		},
		Install: InstallConfig{
			ServicePrefix:     "MySQL",
			DisplayName:       "MySQL Server {{.Port}}",
			ServiceAccount:    `NT AUTHORITY\LocalService`,
			DefaultPort:       3306,
			PortRangeEnd:      3406,
			ArchiveCandidates: []string{"mysql.zip", filepath.Join("resources", "installer", "mysql.zip")},
			Charset:           "utf8mb4",
			SQLMode:           "STRICT_TRANS_TABLES,NO_ENGINE_SUBSTITUTION",
			PasswordLength:    16,
		},
		Timing: TimingConfig{
			RemoveSettle:     Duration{2 * time.Second},
			CredentialSettle: Duration{5 * time.Second},
			ProbeTimeout:     Duration{time.Second},
			VerifyTimeout:    Duration{10 * time.Second},
		},
		Discovery: DiscoveryConfig{
			Denylist:          []string{"mysqlrouter", "mysqlnotifier", "mysqlinstaller", "mysqlworkbench"},
			HostnamePrefixes:  []string{"desktop-", "win-", "pc-"},
			LongNameThreshold: 12,
			ProcessRecordName: "MySQL (process)",
		},
		System: SystemConfig{
			Codepage: "auto",
			StateDB:  filepath.Join(base, "state.db"),
			LockDir:  filepath.Join(base, "locks"),
		},
		GitHub: GitHubConfig{
			Owner:          "mysql",
			Repo:           "mysql-server",
			ArchivePattern: "mysql-{{.Version}}-winx64.zip",
			MaxPages:       3,
		},
	}
}

// Load reads configuration from path. An empty path selects DefaultPath, and a
// missing default file yields the built-in defaults. An explicitly named file
// must exist.
func Load(path string) (*Config, error) {
	if path != "" || os.Getenv(envOverride) != "" {
		return LoadFrom(DefaultPathOr(path))
	}
	cfg, err := LoadFrom(DefaultPath())
	if errors.Is(err, os.ErrNotExist) {
		return Defaults(), nil
	}
	return cfg, err
}

// DefaultPathOr returns path, or DefaultPath when path is empty.
func DefaultPathOr(path string) string {
	if path != "" {
		return path
	}
	return DefaultPath()
}

// LoadFrom reads configuration from the given path. Keys absent from the file
// keep their default values.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

var keyword = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks the fields other components rely on.
func (c *Config) Validate() error {
	if c.Engine.Keyword == "" {
		return fmt.Errorf("engine.keyword is required")
	}
	if !keyword.MatchString(c.Engine.Keyword) {
		return fmt.Errorf("engine.keyword %q must be letters, digits, '-' or '_'", c.Engine.Keyword)
	}
	if c.Engine.DaemonExe == "" || c.Engine.ClientExe == "" {
		return fmt.Errorf("engine.daemon_exe and engine.client_exe are required")
	}
	if err := winsvc.ValidateServiceName(c.Install.ServicePrefix); err != nil {
		return fmt.Errorf("install.service_prefix: %w", err)
	}
	if c.Install.DefaultPort < 1 || c.Install.DefaultPort > 65535 {
		return fmt.Errorf("install.default_port %d is outside 1-65535", c.Install.DefaultPort)
	}
	if c.Install.PortRangeEnd <= c.Install.DefaultPort || c.Install.PortRangeEnd > 65536 {
		return fmt.Errorf("install.port_range_end %d must be above default_port and at most 65536", c.Install.PortRangeEnd)
	}
	if c.Install.PasswordLength < 8 {
		return fmt.Errorf("install.password_length must be at least 8")
	}
	for name, d := range map[string]Duration{
		"timing.remove_settle":     c.Timing.RemoveSettle,
		"timing.credential_settle": c.Timing.CredentialSettle,
		"timing.probe_timeout":     c.Timing.ProbeTimeout,
		"timing.verify_timeout":    c.Timing.VerifyTimeout,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// TemplateConfig returns a TOML template with the default values for first-time setup.
func TemplateConfig() string {
	return `[engine]
keyword    = "mysql"
daemon_exe = "mysqld.exe"
client_exe = "mysql.exe"
admin_user = "root"
admin_host = "localhost"

[install]
service_prefix     = "MySQL"
display_name       = "MySQL Server {{.Port}}"
service_account    = 'NT AUTHORITY\LocalService'
default_port       = 3306
port_range_end     = 3406
archive_candidates = ["mysql.zip", 'resources\installer\mysql.zip']
charset            = "utf8mb4"
sql_mode           = "STRICT_TRANS_TABLES,NO_ENGINE_SUBSTITUTION"
password_length    = 16

[timing]
remove_settle     = "2s"
credential_settle = "5s"
probe_timeout     = "1s"
verify_timeout    = "10s"

[discovery]
denylist            = ["mysqlrouter", "mysqlnotifier", "mysqlinstaller", "mysqlworkbench"]
hostname_prefixes   = ["desktop-", "win-", "pc-"]
long_name_threshold = 12
process_record_name = "MySQL (process)"

[system]
# "auto" uses the console code page; set e.g. "cp936" for Chinese Windows.
codepage = "auto"
# state_db and lock_dir default to %ProgramData%\DolphinDock.
# state_db = 'C:\ProgramData\DolphinDock\state.db'
# lock_dir = 'C:\ProgramData\DolphinDock\locks'
log_file = ""

[github]
token           = ""
owner           = "mysql"
repo            = "mysql-server"
archive_pattern = "mysql-{{.Version}}-winx64.zip"
max_pages       = 3
`
}
