package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/lifecycle"
	"github.com/ecairns22/DolphinDock/internal/winsvc"
)

func deleteDirCmd(g *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete-dir [service]",
		Short: "Delete the install directory of a MySQL service",
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
			ok, err := confirm(fmt.Sprintf("Delete %s?", lifecycle.InstallRoot(rec.BinDir())), yes)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			return a.deleteDir(cmd, rec)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")
	return cmd
}

func (a *app) deleteDir(cmd *cobra.Command, rec winsvc.Record) error {
	ctx := cmd.Context()
	deleted, err := a.life.DeleteInstallDir(ctx, rec, newConsole(cmd.OutOrStdout()))
	a.recordHistory(ctx, rec.Name(), "delete-dir", map[string]string{
		"root": lifecycle.InstallRoot(rec.BinDir()),
		"ok":   fmt.Sprint(deleted),
	})
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("could not delete the install directory of %s", rec.Name())
	}
	return nil
}
