package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/config"
)

func initCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "First-time setup: write config template, create the state database, check privileges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()

			// 1. Write template config if missing
			configPath := config.DefaultPathOr(g.configPath)
			if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
				return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
			}
			if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(configPath, []byte(config.TemplateConfig()), 0644); err != nil {
					return fmt.Errorf("writing config template: %w", err)
				}
				fmt.Fprintf(w, "  wrote config template to %s\n", configPath)
			} else {
				fmt.Fprintf(w, "  config %s exists\n", configPath)
			}

			// 2. Load config
			a, err := buildApp(&globalFlags{configPath: configPath, verbose: g.verbose})
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(w, "  config loaded\n")

			// 3. Lock directory
			if dir := a.cfg.System.LockDir; dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("creating lock dir %s: %w", dir, err)
				}
				fmt.Fprintf(w, "  lock directory %s\n", dir)
			}

			// 4. Initialize state database
			store, err := a.openStore()
			if err != nil {
				return fmt.Errorf("initializing state database: %w", err)
			}
			store.Close()
			fmt.Fprintf(w, "  state database %s: OK\n", a.cfg.System.StateDB)

			// 5. Privileges
			if a.elev.IsElevated(cmd.Context()) {
				fmt.Fprintf(w, "  administrator: %s\n", color.GreenString("yes"))
			} else {
				fmt.Fprintf(w, "  administrator: %s (service registration and PATH changes will be skipped)\n", color.YellowString("no"))
			}

			fmt.Fprintf(w, "\nDolphinDock initialized successfully.\n")
			return nil
		},
	}
}
