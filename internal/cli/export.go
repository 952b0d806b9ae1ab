package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/lexophile/internal/infra/storage/jsonfile"
	"github.com/vietddude/lexophile/internal/infra/storage/sqlite"
)

var dbPath string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export successful records into a SQLite database",
	Run:   runExport,
}

func init() {
	exportCmd.Flags().StringVar(&dbPath, "db", "lexophile.db", "SQLite database path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) {
	cfg, logger, closer := loadConfig()
	defer func() {
		_ = closer.Close()
	}()

	store := jsonfile.NewStore(cfg.Processing.Output, cfg.Processing.Source, logger)
	doc, err := store.Load()
	if err != nil {
		logger.Error("Failed to load store", "path", store.Path(), "error", err)
		_ = closer.Close()
		os.Exit(1)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		logger.Error("Failed to open database", "path", dbPath, "error", err)
		_ = closer.Close()
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	n, err := sqlite.Export(db, doc)
	if err != nil {
		logger.Error("Export failed", "error", err)
		_ = db.Close()
		_ = closer.Close()
		os.Exit(1)
	}
	logger.Info("Export complete", "db", dbPath, "words", n, "total", len(doc.Words))
}
