package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/lifecycle"
	"github.com/ecairns22/DolphinDock/internal/myini"
)

var credentialKeys = regexp.MustCompile(`(?i)(PASSWORD|SECRET|TOKEN)`)

func inspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [service]",
		Short: "Print the option file of a MySQL installation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			rec, err := a.resolveService(cmd.Context(), args)
			if err != nil {
				return err
			}
			if rec.BinDir() == "" {
				return fmt.Errorf("install directory of %s is unknown", rec.Name())
			}

			root := lifecycle.InstallRoot(rec.BinDir())
			path := optionFile(root)
			if path == "" {
				return fmt.Errorf("no option file (%s) in %s", strings.Join(myini.FileNames, ", "), root)
			}

			w := cmd.OutOrStdout()
			s, err := myini.Read(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Base dir:    %s\n", s.BaseDir)
			fmt.Fprintf(w, "Data dir:    %s\n", s.DataDir)
			fmt.Fprintf(w, "Port:        %d\n", s.Port)
			fmt.Fprintf(w, "Charset:     %s\n", s.Charset)
			fmt.Fprintf(w, "SQL mode:    %s\n", s.SQLMode)

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n=== %s ===\n", path)
			for _, line := range strings.Split(strings.TrimRight(string(data), "\r\n"), "\n") {
				fmt.Fprintln(w, redact(strings.TrimRight(line, "\r")))
			}
			return nil
		},
	}
}

// optionFile returns the first known option file in root, or "".
func optionFile(root string) string {
	for _, name := range myini.FileNames {
		p := filepath.Join(root, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// redact hides the value of credential-looking keys.
func redact(line string) string {
	key, _, ok := strings.Cut(line, "=")
	if ok && credentialKeys.MatchString(key) {
		return strings.TrimSpace(key) + "=****"
	}
	return line
}
