package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/export"
	"github.com/vc-scout/backend/internal/lists"
)

var (
	exportUser   string
	exportList   string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a saved list to CSV, JSON or YAML",
	Long: `Write the companies in one of a user's lists. Cached enrichment is
included when the Redis store is enabled.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "owner email")
	exportCmd.Flags().StringVar(&exportList, "list", "", "list id")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "csv, json or yaml")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file, - for stdout")
	_ = exportCmd.MarkFlagRequired("user")
	_ = exportCmd.MarkFlagRequired("list")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(exportUser)))
	if err != nil {
		return fmt.Errorf("failed to find user %q: %w", exportUser, err)
	}

	store, _, closeStore, err := openEnrichmentStore()
	if err != nil {
		return err
	}
	defer closeStore()

	enrichments, err := store.All(ctx, user.ID)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	svc := lists.NewService(db, companies.NewService(db))
	return svc.Export(ctx, user.ID, exportList, format, enrichments, w)
}
