package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := color.New(color.FgYellow, color.Bold)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", name.Sprint("turtletrace"), version)
		fmt.Fprintf(out, "Commit: %s\n", commit)
		fmt.Fprintf(out, "Built: %s\n", date)
		return nil
	},
}
