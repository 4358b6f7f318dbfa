package main

import (
	"github.com/spf13/cobra"

	"github.com/cloudfiles/webapp/internal/config"
	"github.com/cloudfiles/webapp/internal/db"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending metadata store migrations and exit.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return db.Migrate(e.cfg.DBDriver, migrationTarget(e.cfg), e.logger)
		},
	}
}

// migrationTarget is the connection URL for postgres or the file path for sqlite.
func migrationTarget(cfg *config.Config) string {
	if cfg.DBDriver == config.DriverSQLite {
		return cfg.SQLitePath
	}
	return cfg.DatabaseURL
}
