package commands

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/archive"
	ghclient "github.com/ecairns22/DolphinDock/internal/github"
)

func latestCmd(g *globalFlags) *cobra.Command {
	var archivePath string

	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Report the newest MySQL server release and compare it with the local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			gc := a.cfg.GitHub
			gh, err := ghclient.New(gc.Token, gc.Owner, gc.Repo, gc.ArchivePattern, gc.MaxPages)
			if err != nil {
				return fmt.Errorf("creating github client: %w", err)
			}
			rel, err := gh.LatestServerTag(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Latest release:  %s (%s)\n", rel.Version, rel.Tag)
			fmt.Fprintf(w, "Windows archive: %s\n", rel.ArchiveName)

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			local, err := archive.Find(archivePath, wd, a.cfg.Install.ArchiveCandidates)
			if err != nil {
				if archivePath != "" {
					return err
				}
				return nil
			}
			v, ok := ghclient.ParseArchiveVersion(local)
			if !ok {
				fmt.Fprintf(w, "Local archive:   %s (version unknown)\n", local)
				return nil
			}
			switch v.Compare(rel.Version) {
			case -1:
				fmt.Fprintf(w, "Local archive:   %s %s\n", v, color.YellowString("(update available)"))
			default:
				fmt.Fprintf(w, "Local archive:   %s %s\n", v, color.GreenString("(up to date)"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&archivePath, "archive", "", "Local archive to compare")
	return cmd
}
