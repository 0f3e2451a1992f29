package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/seed"
	appLogger "github.com/vc-scout/backend/pkg/logger"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the company catalogue from a JSON file",
	Long: `Upsert every company in a JSON array by id. Existing notes are kept;
records without an id or name are skipped.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "data/companies.json", "path to the companies JSON array")
}

func runSeed(cmd *cobra.Command, args []string) error {
	db, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := seed.NewImporter(db).ImportFile(cmd.Context(), seedFile)
	if err != nil {
		return err
	}

	appLogger.Info("Seed complete",
		zap.String("file", seedFile),
		zap.Int("upserted", stats.Upserted),
		zap.Int("skipped", stats.Skipped),
	)
	return nil
}
