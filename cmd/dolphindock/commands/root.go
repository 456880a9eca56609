package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	verbose    bool
	noColor    bool
}

// Root returns the root cobra command with all subcommands attached.
func Root() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "dolphindock",
		Short: "Install and manage MySQL server services on Windows",
		Long: "DolphinDock installs MySQL from a zip archive as a Windows service, and finds,\n" +
			"starts, stops and removes MySQL services already on the machine.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}
	cmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default %ProgramData%\\DolphinDock\\dolphindock.toml)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "V", false, "Write debug logs to stderr")
	cmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(initCmd(g))
	cmd.AddCommand(installCmd(g))
	cmd.AddCommand(listCmd(g))
	cmd.AddCommand(statusCmd(g))
	cmd.AddCommand(startCmd(g))
	cmd.AddCommand(stopCmd(g))
	cmd.AddCommand(uninstallCmd(g))
	cmd.AddCommand(deleteDirCmd(g))
	cmd.AddCommand(inspectCmd(g))
	cmd.AddCommand(manageCmd(g))
	cmd.AddCommand(historyCmd(g))
	cmd.AddCommand(latestCmd(g))
	cmd.AddCommand(versionCmd())

	return cmd
}
