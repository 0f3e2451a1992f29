package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/cache/redis"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/storage/sqlite"
	"github.com/vc-scout/backend/pkg/config"
	appLogger "github.com/vc-scout/backend/pkg/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vcscout",
	Short: "VC Scout discovery backend",
	Long: `VC Scout serves the company directory, thesis-scored enrichment and
per-user lists behind the discovery dashboard.

Configuration comes from config.yaml, .env and VCSCOUT_* variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		appLogger.Sync()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, seedCmd, exportCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase opens the SQLite store and brings its schema up to date.
func openDatabase(ctx context.Context) (*sqlite.Client, error) {
	db, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite client: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// openEnrichmentStore returns the shared Redis store when enabled, otherwise
// a process-local one. The returned close func is never nil.
func openEnrichmentStore() (enrichment.Store, *redis.Client, func(), error) {
	if !cfg.Redis.Enabled {
		appLogger.Info("Redis disabled, enrichment cache is process-local")
		return enrichment.NewMemoryStore(), nil, func() {}, nil
	}

	client, err := redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, nil, nil, err
	}
	return client, client, func() {
		if err := client.Close(); err != nil {
			appLogger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}, nil
}
