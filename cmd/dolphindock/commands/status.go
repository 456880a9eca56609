package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/state"
)

func statusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [service]",
		Short: "Detailed status for a MySQL service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			rec, err := a.resolveService(ctx, args)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Service:     %s\n", rec.Name())
			if rec.DisplayName() != "" {
				fmt.Fprintf(w, "Display:     %s\n", rec.DisplayName())
			}
			fmt.Fprintf(w, "State:       %s\n", stateColor(rec.State()))
			if rec.BinDir() != "" {
				fmt.Fprintf(w, "Bin:         %s\n", rec.BinDir())
			}

			if store, err := a.openStore(); err == nil {
				in, err := store.GetInstall(ctx, rec.Name())
				switch {
				case err == nil:
					fmt.Fprintf(w, "Port:        %d\n", in.Port)
					if in.Version != "" {
						fmt.Fprintf(w, "Version:     %s\n", in.Version)
					}
					fmt.Fprintf(w, "Installed:   %s (%s)\n", in.InstalledAt.Format("2006-01-02 15:04:05"), in.Status)
				case !errors.Is(err, state.ErrNotFound):
					a.log.Warn("reading ledger", zap.Error(err))
				}
				store.Close()
			}

			if a.disc.IsSynthetic(rec) {
				return nil
			}
			block, err := a.life.Status(ctx, rec.Name())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "\n%s\n", block)
			return nil
		},
	}
}
