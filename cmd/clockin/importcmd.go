package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"carolinalumpers.com/clockin/infrastructure/filesystem"
	"carolinalumpers.com/clockin/lambdas/clockin/helper"
	"github.com/spf13/cobra"
)

type ImportOptions struct {
	*RootOptions
	Bucket string
}

func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file | s3://bucket/key | key>",
		Short: "Backfill scans from a device log CSV",
		Long: `Backfill scans from a device log CSV with columns id,workerId,timestamp,deviceId.

A bare key is read from --bucket (default IMPORT_BUCKET) when one is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Bucket, "bucket", "", "S3 bucket holding device logs")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, location string, out io.Writer) error {
	a, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bucket := opts.Bucket
	if bucket == "" {
		bucket = a.Config.Import.Bucket
	}
	if bucket != "" && !strings.HasPrefix(location, "s3://") {
		location = "s3://" + bucket + "/" + location
	}

	rc, err := filesystem.Open(ctx, location)
	if err != nil {
		return err
	}
	defer rc.Close()

	summary, err := helper.Import(ctx, rc, a.Config.Location(), a.Controller, a.Logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "rows: %d accepted: %d\n", summary.Rows, summary.Accepted)
	for reason, n := range summary.Rejected {
		fmt.Fprintf(out, "  %s: %d\n", reason, n)
	}
	if n := summary.Failed(); n > 0 {
		return fmt.Errorf("%d scans failed and can be retried", n)
	}
	return nil
}
