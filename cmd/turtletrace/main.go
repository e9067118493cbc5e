// Package main is the entry point for the turtletrace debug server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:          "turtletrace",
	Short:        "Source line tracing for turtle graphics programs",
	Long:         `turtletrace serves the editor site and correlates runtime events from a running turtle program with the source lines that caused them.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to configuration file (TOML or YAML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
