package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/lexophile/internal/infra/storage/jsonfile"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute store metadata without calling the API",
	Run:   runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) {
	cfg, logger, closer := loadConfig()
	defer func() {
		_ = closer.Close()
	}()

	store := jsonfile.NewStore(cfg.Processing.Output, cfg.Processing.Source, logger)
	if err := store.Refresh(); err != nil {
		logger.Error("Failed to refresh store", "path", store.Path(), "error", err)
		_ = closer.Close()
		os.Exit(1)
	}
	logger.Info("Metadata refreshed", "path", store.Path())
}
