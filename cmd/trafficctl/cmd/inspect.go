package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/traffic-light-server/internal/client"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List timing presets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			list, err := c.Patterns(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}

			keys := make([]string, 0, len(list))
			for k := range list {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tSEQUENCE\tTIMING (ms)")
			for _, k := range keys {
				p := list[k]
				timing := make([]string, 0, len(p.Timing))
				for _, ms := range p.Timing {
					timing = append(timing, fmt.Sprint(ms))
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k, p.Name,
					strings.Join(p.Sequence, ","), strings.Join(timing, ","))
			}
			return tw.Flush()
		})
	},
}

var applyPatternCmd = &cobra.Command{
	Use:   "apply-pattern <key>",
	Short: "Copy a preset's timing into the current settings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			s, err := c.ApplyPattern(ctx, args[0])
			if err != nil {
				return err
			}
			return printSettings(cmd.OutOrStdout(), s)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show uptime and counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			st, err := c.Stats(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "uptime:       %s\n", (time.Duration(st.Uptime * float64(time.Second))).Round(time.Second))
			fmt.Fprintf(w, "auto active:  %t\n", st.AutoModeActive)
			fmt.Fprintf(w, "mode changes: %d\n", st.TotalModeChanges)
			fmt.Fprintf(w, "auto cycles:  %d\n", st.AutoCycles)
			fmt.Fprintf(w, "rejected:     %d\n", st.RejectedCommands)
			return printStatus(w, st.CurrentStatus)
		})
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent state changes, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client) error {
			entries, err := c.History(ctx, historyLimit)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tVERSION\tEVENT\tSOURCE\tMODE\tCOLOR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
					e.At.Format(time.TimeOnly), e.Version, e.Type, e.Source, e.Mode, e.Color)
			}
			return tw.Flush()
		})
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries to show")

	rootCmd.AddCommand(patternsCmd, applyPatternCmd, statsCmd, historyCmd)
}
