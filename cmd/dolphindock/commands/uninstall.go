package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ecairns22/DolphinDock/internal/state"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

func uninstallCmd(g *globalFlags) *cobra.Command {
	var (
		deleteDir bool
		yes       bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall [service]",
		Short: "Stop and remove a MySQL service",
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
				return fmt.Errorf("%s was detected from a running process and has no service to remove", rec.Name())
			}

			title := fmt.Sprintf("Remove service %s?", rec.Name())
			if deleteDir && rec.BinDir() != "" {
				title = fmt.Sprintf("Remove service %s and delete its install directory?", rec.Name())
			}
			ok, err := confirm(title, yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return a.uninstall(cmd, rec, deleteDir)
		},
	}

	cmd.Flags().BoolVar(&deleteDir, "delete-dir", false, "Also delete the install directory")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func (a *app) uninstall(cmd *cobra.Command, rec winsvc.Record, deleteDir bool) error {
	ctx := cmd.Context()
	out := newConsole(cmd.OutOrStdout())

	removed, err := a.life.Uninstall(ctx, rec, out)
	if err != nil {
		return err
	}
	a.recordHistory(ctx, rec.Name(), "uninstall", map[string]string{"ok": fmt.Sprint(removed)})
	if !removed {
		return fmt.Errorf("could not remove service %s", rec.Name())
	}

	if store, err := a.openStore(); err == nil {
		if err := store.DeleteInstall(ctx, rec.Name()); err != nil && !errors.Is(err, state.ErrNotFound) {
			a.log.Warn("removing install from ledger", zap.Error(err))
		}
		store.Close()
	}

	if deleteDir {
		return a.deleteDir(cmd, rec)
	}
	return nil
}
