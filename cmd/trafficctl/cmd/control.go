package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/traffic-light-server/internal/client"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current light state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), st)
		})
	},
}

var manualCmd = &cobra.Command{
	Use:       "manual <red|yellow|green|off>",
	Short:     "Hold one color until told otherwise",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"red", "yellow", "green", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return modeCommand(cmd, "manual", args[0])
	},
}

var autoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Start the red, green, yellow cycle from red",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return modeCommand(cmd, "auto", "")
	},
}

var offCmd = &cobra.Command{
	Use:   "off",
	Short: "Turn all lights off",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return modeCommand(cmd, "off", "")
	},
}

var emergencyCmd = &cobra.Command{
	Use:   "emergency",
	Short: "Force manual red from any mode",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			st, err := c.Emergency(ctx)
			if err != nil {
				return err
			}
			return printStatus(cmd.OutOrStdout(), st)
		})
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Change phase durations; only the flags given are sent",
	Example: `  trafficctl settings --red 8s --green 3s
  trafficctl settings --yellow 1500ms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := settingsRequest(cmd)
		if err != nil {
			return err
		}
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			s, err := c.UpdateSettings(ctx, req)
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), s)
		})
	},
}

func init() {
	settingsCmd.Flags().Duration("red", 0, "red phase duration")
	settingsCmd.Flags().Duration("yellow", 0, "yellow phase duration")
	settingsCmd.Flags().Duration("green", 0, "green phase duration")

	rootCmd.AddCommand(statusCmd, manualCmd, autoCmd, offCmd, emergencyCmd, settingsCmd)
}

func modeCommand(cmd *cobra.Command, mode, color string) error {
	return withClient(cmd, func(ctx context.Context, c *client.Client) error {
		st, err := c.Command(ctx, mode, color)
		if err != nil {
			return err
		}
		return printStatus(cmd.OutOrStdout(), st)
	})
}

// settingsRequest builds a partial update from the flags the user actually
// set. Range checks are left to the server.
func settingsRequest(cmd *cobra.Command) (wire.SettingsRequest, error) {
	var req wire.SettingsRequest
	for name, dst := range map[string]**int64{
		"red":    &req.RedDurationMs,
		"yellow": &req.YellowDurationMs,
		"green":  &req.GreenDurationMs,
	} {
		if !cmd.Flags().Changed(name) {
			continue
		}
		d, err := cmd.Flags().GetDuration(name)
		if err != nil {
			return req, err
		}
		ms := d.Milliseconds()
		*dst = &ms
	}
	if req.RedDurationMs == nil && req.YellowDurationMs == nil && req.GreenDurationMs == nil {
		return req, fmt.Errorf("set at least one of --red, --yellow, --green")
	}
	return req, nil
}
