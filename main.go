package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medvault-server/config"
	"medvault-server/internal/api"
	"medvault-server/internal/appointment"
	"medvault-server/internal/auth"
	"medvault-server/internal/database"
	"medvault-server/internal/drive"
	"medvault-server/internal/logger"
	"medvault-server/internal/medication"
	"medvault-server/internal/storage"

	"github.com/spf13/cobra"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "medvault-server",
		Short:         "Personal health records server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to Config.json (default: next to the executable, then the working directory)")

	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Create or update the database schema", RunE: runMigrate},
		&cobra.Command{Use: "users", Short: "List registered accounts", RunE: runUsers},
		treeCommand(),
	)

	if err := root.Execute(); err != nil {
		logger.Error.Printf("%v", err)
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

// setup loads configuration, starts the logger and opens the database.
func setup() (*config.Config, *database.Client, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Development); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Open(&cfg.Database, cfg.Collections)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return cfg, db, nil
}

func openBlobStore(ctx context.Context, cfg *config.Config) (drive.BlobStore, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Info.Println("Using in-memory byte storage; uploads are lost on restart")
		return storage.NewMemory(), nil
	}
	return storage.NewMinIO(ctx, &cfg.MinIO)
}

func newDrive(cfg *config.Config, db *database.Client, blobs drive.BlobStore) *drive.Service {
	return drive.NewService(drive.NewRepository(db), blobs, drive.Options{
		QuotaBytes:    cfg.Drive.QuotaBytes,
		URLExpiration: cfg.Drive.GetURLExpiration(),
		CacheSize:     cfg.Drive.IndexCacheSize,
		CacheTTL:      cfg.Drive.GetIndexTTL(),
	})
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()

	// Run migrations
	ctx := cmd.Context()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	router := api.SetupRouter(cfg, api.Services{
		Auth:         auth.NewService(db, &cfg.JWT),
		Files:        newDrive(cfg, db, blobs),
		Medications:  medication.NewRepository(db),
		Appointments: appointment.NewRepository(db),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info.Printf("Server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info.Println("Server exited")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Migrate(cmd.Context())
}
