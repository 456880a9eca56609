package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func historyCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history [service]",
		Short: "Show recorded installs and lifecycle actions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var service string
			if len(args) > 0 {
				service = args[0]
			}
			entries, err := store.ListHistory(cmd.Context(), service)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history recorded.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSERVICE\tACTION\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Service, e.Action, formatDetail(e.Detail))
			}
			return w.Flush()
		},
	}
}

func formatDetail(detail map[string]string) string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + detail[k]
	}
	return strings.Join(parts, " ")
}
