package main

import (
	"fmt"
	"time"

	"carolinalumpers.com/clockin/security"
	"github.com/spf13/cobra"
)

func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	var identity security.DeviceIdentity
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <deviceId>",
		Short: "Mint a device token for a kiosk or scanner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			identity.DeviceID = args[0]
			token, err := security.CreateDeviceToken(&identity, cfg.SigningSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity.Name, "name", "", "device display name")
	cmd.Flags().StringVar(&identity.Site, "site", "", "site the device is installed at")
	cmd.Flags().DurationVar(&ttl, "ttl", 365*24*time.Hour, "token lifetime")

	return cmd
}
