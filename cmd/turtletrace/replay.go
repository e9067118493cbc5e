package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/turtletrace/internal/app"
	"github.com/dshills/turtletrace/internal/replay"
)

var (
	replayMaps    string
	replayNoColor bool
	replayJSON    bool
)

func init() {
	replayCmd.Flags().StringVar(&replayMaps, "maps", "", "directory holding <file>.map source maps")
	replayCmd.Flags().BoolVar(&replayNoColor, "no-color", false, "disable colored output")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print editor commands as JSON Lines")
}

var replayCmd = &cobra.Command{
	Use:   "replay <log.jsonl>",
	Short: "Replay a recorded event log and print the editor commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := appOptions(cmd)
		if err != nil {
			return err
		}
		cfg, err := app.LoadConfig(opts)
		if err != nil {
			return err
		}

		playerOpts := replay.Options{
			Engine: app.EngineOptions(cfg),
			Logger: app.NewLogger(cfg, cmd.ErrOrStderr()),
		}
		if replayMaps != "" {
			playerOpts.Maps = os.DirFS(replayMaps)
		}

		var (
			send    func(any)
			jsonOut *replay.JSONWriter
		)
		if replayJSON {
			jsonOut = replay.NewJSONWriter(cmd.OutOrStdout())
			send = jsonOut.Send
		} else {
			send = replay.NewConsole(cmd.OutOrStdout(), !replayNoColor && !color.NoColor).Send
		}
		player, err := replay.NewPlayer(playerOpts, send)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stats, err := player.PlayFile(ctx, args[0])
		if err != nil {
			return err
		}
		if jsonOut != nil {
			if err := jsonOut.Err(); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d messages applied, %d rejected\n", stats.Messages, stats.Rejected)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d messages applied, %d rejected\n", stats.Messages, stats.Rejected)
		}
		if stats.Rejected > 0 {
			return fmt.Errorf("%d lines of %s were rejected", stats.Rejected, args[0])
		}
		return nil
	},
}
