// Package cmd provides the trafficctl command line for operating a
// traffic-light server.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DoyleJ11/traffic-light-server/internal/client"
	wire "github.com/DoyleJ11/traffic-light-server/pkg/types"
)

var (
	serverURL string
	timeout   time.Duration
	asJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "trafficctl",
	Short: "Operate a traffic-light server from the command line.",
	Long: `trafficctl drives a running traffic-light server through its HTTP API: ` +
		`switch modes, trigger the emergency override, tune phase durations and ` +
		`inspect stats and history.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultServer := os.Getenv("TRAFFIC_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "base URL of the traffic-light server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "print raw JSON responses")
}

// withClient runs fn with a client for --server and a context bounded by
// --timeout.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	c, err := client.New(serverURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	return fn(ctx, c)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(w io.Writer, st wire.TrafficStatus) error {
	if asJSON {
		return printJSON(w, st)
	}
	fmt.Fprintf(w, "mode:    %s\n", st.Mode)
	fmt.Fprintf(w, "color:   %s\n", st.Color)
	if st.Mode == "auto" {
		fmt.Fprintf(w, "step:    %d\n", st.AutoStep)
	}
	fmt.Fprintf(w, "version: %d\n", st.Version)
	fmt.Fprintf(w, "updated: %s\n", st.LastUpdate.Format(time.RFC3339))
	return printSettings(w, st.Settings)
}

func printSettings(w io.Writer, s wire.Settings) error {
	if asJSON {
		return printJSON(w, s)
	}
	_, err := fmt.Fprintf(w, "timing:  red=%dms yellow=%dms green=%dms\n",
		s.RedDurationMs, s.YellowDurationMs, s.GreenDurationMs)
	return err
}
