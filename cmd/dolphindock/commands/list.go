package commands

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ecairns22/DolphinDock/internal/state"
)

func listCmd(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show MySQL services found on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			records, err := a.disc.Discover(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No MySQL services found. Run 'dolphindock install' to create one.")
				return nil
			}

			managed := map[string]*state.Install{}
			if store, err := a.openStore(); err == nil {
				if installs, err := store.ListInstalls(cmd.Context()); err == nil {
					for _, in := range installs {
						managed[strings.ToLower(in.Name)] = in
					}
				}
				store.Close()
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDISPLAY NAME\tPORT\tBIN\tSTATE")
			for _, r := range records {
				port := "—"
				if in, ok := managed[strings.ToLower(r.Name())]; ok {
					port = fmt.Sprint(in.Port)
				}
				bin := r.BinDir()
				if bin == "" {
					bin = "—"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name(), r.DisplayName(), port, bin, stateColor(r.State()))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print services as JSON")
	return cmd
}
