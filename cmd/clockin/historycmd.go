package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <workerId>",
		Short: "Show a worker's recent clock-ins",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Controller.Report(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			fmt.Fprintf(out, "%s (%s), last %d days\n", report.WorkerName, report.WorkerID, report.Days)
			fmt.Fprint(out, report.History.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "days of history (default HISTORY_DAYS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	return cmd
}
