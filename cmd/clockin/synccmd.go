package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push records without a LastUpdated marker to AppSheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Syncer == nil {
				return errors.New("AppSheet is not configured (APPSHEET_APP_ID, APPSHEET_API_KEY)")
			}
			n, err := a.Syncer.SyncUnsynced(cmd.Context(), batch)
			fmt.Fprintf(cmd.OutOrStdout(), "synced %d records\n", n)
			return err
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 100, "rows per AppSheet request")

	return cmd
}
