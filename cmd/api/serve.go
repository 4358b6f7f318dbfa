package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudfiles/webapp/internal/config"
	"github.com/cloudfiles/webapp/internal/db"
	"github.com/cloudfiles/webapp/internal/file"
	"github.com/cloudfiles/webapp/internal/health"
	"github.com/cloudfiles/webapp/internal/server"
	"github.com/cloudfiles/webapp/internal/storage"
)

func newServeCommand(e *env) *cobra.Command {
	var skipMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), e.cfg, e.logger, !skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations on startup")
	return cmd
}

// metadataStore is the opened metadata database seen through each package's repository.
type metadataStore struct {
	files  file.Repository
	health health.Repository
	close  func()
}

func openMetadataStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*metadataStore, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		return &metadataStore{
			files:  file.NewPostgresRepository(pool),
			health: health.NewPostgresRepository(pool),
			close:  pool.Close,
		}, nil
	case config.DriverSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return &metadataStore{
			files:  file.NewSQLiteRepository(conn),
			health: health.NewSQLiteRepository(conn),
			close:  func() { conn.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) error {
	meta, err := openMetadataStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("metadata store: %w", err)
	}
	defer meta.close()

	if migrate {
		if err := db.Migrate(cfg.DBDriver, migrationTarget(cfg), logger); err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
	}

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("object storage init failed: %w", err)
	}

	// Wire dependencies: repository → service → handler
	fileSvc := file.NewService(meta.files, store, logger)
	healthSvc := health.NewService(meta.health, logger)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Handlers{
			File:   file.NewHandler(fileSvc, int64(cfg.MaxUploadSize)),
			Health: health.NewHandler(healthSvc),
		}, logger),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"max_upload", cfg.MaxUploadSize.String(),
		)
		logger.Info("swagger UI available", "url", "http://localhost:"+cfg.Port+"/swagger/index.html")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
