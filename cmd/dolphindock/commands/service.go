package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/health"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

func startCmd(g *globalFlags) *cobra.Command {
	var wait time.Duration
	cmd := controlCmd(g, "start", "Start a MySQL service", func(a *app, cmd *cobra.Command, rec winsvc.Record) (bool, error) {
		ok, err := a.life.Start(cmd.Context(), rec.Name(), newConsole(cmd.OutOrStdout()))
		if err != nil || !ok || wait <= 0 {
			return ok, err
		}
		return true, a.waitForServer(cmd, rec.Name(), wait)
	})
	cmd.Flags().DurationVar(&wait, "wait", 0, "Wait up to this long for the server to accept connections on its recorded port")
	return cmd
}

// waitForServer polls the port recorded for name in the ledger. Services the
// ledger does not know are not waited for.
func (a *app) waitForServer(cmd *cobra.Command, name string, timeout time.Duration) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	in, err := store.GetInstall(cmd.Context(), name)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No recorded port for %s; not waiting.\n", name)
		return nil
	}
	if err := health.WaitForPort(cmd.Context(), a.prober(), in.Port, timeout, time.Second); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is accepting connections on port %d\n", name, in.Port)
	return nil
}

func stopCmd(g *globalFlags) *cobra.Command {
	return controlCmd(g, "stop", "Stop a MySQL service", func(a *app, cmd *cobra.Command, rec winsvc.Record) (bool, error) {
		return a.life.Stop(cmd.Context(), rec.Name(), newConsole(cmd.OutOrStdout()))
	})
}

// controlCmd builds a command that resolves one service and applies op to it.
func controlCmd(g *globalFlags, use, short string, op func(*app, *cobra.Command, winsvc.Record) (bool, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [service]",
		Short: short,
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
			if a.disc.IsSynthetic(rec) {
				return fmt.Errorf("%s was detected from a running process and has no service to %s", rec.Name(), use)
			}
			ok, err := op(a, cmd, rec)
			if err != nil {
				return err
			}
			a.recordHistory(cmd.Context(), rec.Name(), use, map[string]string{"ok": fmt.Sprint(ok)})
			if !ok {
				return fmt.Errorf("%s %s failed", use, rec.Name())
			}
			return nil
		},
	}
}
