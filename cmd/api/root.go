package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cloudfiles/webapp/internal/config"
)

// env is the loaded configuration shared by all subcommands.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	e := &env{}
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:   "webapp",
		Short: "File upload service backed by object storage.",
		Long: `webapp accepts file uploads over HTTP, stores the bytes in an object store
(MinIO, AWS S3 or a local directory) and keeps name, URL and upload date in
PostgreSQL or SQLite. Running it without a subcommand starts the server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.logger = config.SetupLogger(cfg)
			return nil
		},
	}

	serveCmd := newServeCommand(e)
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newMigrateCommand(e))
	return rootCmd
}
