// Package myini writes and reads the server option file (my.ini).
package myini

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// DefaultCharset is written as character-set-server.
	DefaultCharset = "utf8mb4"
	// DefaultSQLMode is written as sql-mode.
	DefaultSQLMode = "STRICT_TRANS_TABLES,NO_ENGINE_SUBSTITUTION"
)

// ErrUnsupportedPath is returned for directories the option file cannot hold
// unquoted. The server reads # and ; as comment starts.
var ErrUnsupportedPath = errors.New("path cannot be written to the option file")

// FileNames are the option file names recognized in an installation root.
var FileNames = []string{"my.ini", "my.cnf"}

// Settings are the values written to the option file.
type Settings struct {
	BaseDir string
	DataDir string
	Port    int
	Charset string
	SQLMode string
}

// Escape doubles backslashes for the option file dialect.
func Escape(path string) string {
	return strings.ReplaceAll(path, `\`, `\\`)
}

// Unescape reverses Escape.
func Unescape(value string) string {
	return strings.ReplaceAll(value, `\\`, `\`)
}

// Build renders the option file.
func Build(s Settings) (*ini.File, error) {
	if s.Charset == "" {
		s.Charset = DefaultCharset
	}
	if s.SQLMode == "" {
		s.SQLMode = DefaultSQLMode
	}
	for _, dir := range []string{s.BaseDir, s.DataDir} {
		if strings.ContainsAny(dir, "#;`\n") {
			return nil, fmt.Errorf("%q: %w", dir, ErrUnsupportedPath)
		}
	}
	port := strconv.Itoa(s.Port)

	f := ini.Empty()
	server, err := f.NewSection("mysqld")
	if err != nil {
		return nil, err
	}
	for _, kv := range [][2]string{
		{"basedir", Escape(s.BaseDir)},
		{"datadir", Escape(s.DataDir)},
		{"port", port},
		{"character-set-server", s.Charset},
		{"sql-mode", s.SQLMode},
	} {
		if _, err := server.NewKey(kv[0], kv[1]); err != nil {
			return nil, fmt.Errorf("adding %s: %w", kv[0], err)
		}
	}

	client, err := f.NewSection("client")
	if err != nil {
		return nil, err
	}
	if _, err := client.NewKey("port", port); err != nil {
		return nil, fmt.Errorf("adding client port: %w", err)
	}
	return f, nil
}

// Write renders the option file to path, replacing any existing file.
func Write(path string, s Settings) error {
	f, err := Build(s)
	if err != nil {
		return fmt.Errorf("building %s: %w", path, err)
	}
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Read loads the server settings from an existing option file. Files written
// by other tools are accepted: keys are matched case-insensitively, valueless
// keys are allowed, and a missing server port falls back to the client port.
func Read(path string) (Settings, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
		IgnoreContinuation:      true,
	}, path)
	if err != nil {
		return Settings{}, fmt.Errorf("reading %s: %w", path, err)
	}

	server := f.Section("mysqld")
	s := Settings{
		BaseDir: Unescape(server.Key("basedir").String()),
		DataDir: Unescape(server.Key("datadir").String()),
		Charset: server.Key("character-set-server").String(),
		SQLMode: server.Key("sql-mode").String(),
	}
	if s.SQLMode == "" {
		s.SQLMode = server.Key("sql_mode").String()
	}

	portKey := server.Key("port")
	if portKey.String() == "" {
		portKey = f.Section("client").Key("port")
	}
	if v := portKey.String(); v != "" {
		if s.Port, err = strconv.Atoi(v); err != nil {
			return Settings{}, fmt.Errorf("%s: invalid port %q", path, v)
		}
	}
	return s, nil
}
