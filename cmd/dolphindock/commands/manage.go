package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	actionStatus    = "status"
	actionStart     = "start"
	actionStop      = "stop"
	actionUninstall = "uninstall"
	actionDeleteDir = "delete install directory"
	actionInspect   = "inspect option file"
	actionQuit      = "quit"
)

func manageCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "manage",
		Short: "Pick a MySQL service and act on it interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isInteractive() {
				return fmt.Errorf("%w: use the list, start, stop and uninstall commands instead", errNotInteractive)
			}
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			out := newConsole(cmd.OutOrStdout())

			for {
				rec, err := a.resolveService(ctx, nil)
				if err != nil {
					return err
				}

				actions := []string{actionStatus}
				if !a.disc.IsSynthetic(rec) {
					actions = append(actions, actionStart, actionStop, actionUninstall)
				}
				if rec.BinDir() != "" {
					actions = append(actions, actionInspect, actionDeleteDir)
				}
				actions = append(actions, actionQuit)

				action, err := pickAction(fmt.Sprintf("%s [%s]", rec.Name(), rec.State()), actions)
				if err != nil {
					return err
				}

				switch action {
				case actionStatus:
					if a.disc.IsSynthetic(rec) {
						fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", rec.Name(), rec.State())
						break
					}
					block, err := a.life.Status(ctx, rec.Name())
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), block)
				case actionStart:
					_, err = a.life.Start(ctx, rec.Name(), out)
				case actionStop:
					_, err = a.life.Stop(ctx, rec.Name(), out)
				case actionUninstall:
					var ok bool
					if ok, err = confirm(fmt.Sprintf("Remove service %s?", rec.Name()), false); err == nil && ok {
						err = a.uninstall(cmd, rec, false)
					}
				case actionDeleteDir:
					var ok bool
					if ok, err = confirm(fmt.Sprintf("Delete the install directory of %s?", rec.Name()), false); err == nil && ok {
						err = a.deleteDir(cmd, rec)
					}
				case actionInspect:
					inspect := inspectCmd(g)
					inspect.SetOut(cmd.OutOrStdout())
					inspect.SetContext(ctx)
					err = inspect.RunE(inspect, []string{rec.Name()})
				case actionQuit:
					return nil
				}
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
			}
		},
	}
}
