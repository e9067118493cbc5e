package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/turtletrace/internal/app"
)

var (
	serveAddr string
	serveSite string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8088)")
	serveCmd.Flags().StringVar(&serveSite, "site", "", "directory of static site files")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the editor site and the debug websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := appOptions(cmd)
		if err != nil {
			return err
		}
		opts.Addr = serveAddr
		opts.SiteDir = serveSite

		application, err := app.New(opts)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return application.Run(ctx)
	},
}

// appOptions reads the persistent flags shared by every command.
func appOptions(cmd *cobra.Command) (app.Options, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return app.Options{}, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return app.Options{}, err
	}
	return app.Options{
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogOutput:  cmd.ErrOrStderr(),
	}, nil
}
