package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "mqtt-panel",
	Short: "MQTT session manager for the IoT panel dashboard",
	Long: `mqtt-panel keeps broker connections for the dashboard, routes inbound messages to
switch and uri launcher panels and publishes switch and button commands.

Configuration is read from .env, the optional --config file and the environment.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (yaml, json, toml or env)")
	rootCmd.AddCommand(serveCmd, exportCmd, importCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
