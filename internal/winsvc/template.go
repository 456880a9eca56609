package winsvc

import (
	"bytes"
	"text/template"
)

// binPath is the command line stored by `sc create`; both paths are quoted so
// install directories containing spaces survive the service control manager.
const binPathTemplate = `"{{.Daemon}}" --defaults-file="{{.DefaultsFile}}"`

var parsedBinPath = template.Must(template.New("binpath").Parse(binPathTemplate))

// CreateParams holds the values for registering a service directly with sc.exe.
type CreateParams struct {
	Name         string
	Daemon       string // absolute path to the daemon executable
	DefaultsFile string // absolute path to the generated option file
	DisplayName  string
}

// RenderBinPath renders the binPath= argument for the given parameters.
func RenderBinPath(params CreateParams) (string, error) {
	var buf bytes.Buffer
	if err := parsedBinPath.Execute(&buf, params); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderDisplayName expands a display name pattern such as "MySQL Server {{.Port}}".
func RenderDisplayName(pattern, name, port string) (string, error) {
	tmpl, err := template.New("display").Parse(pattern)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Name, Port string }{name, port}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
