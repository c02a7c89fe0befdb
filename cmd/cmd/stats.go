package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prepdeck/internal/config"
	"prepdeck/internal/logger"
	"prepdeck/internal/store"
)

var pyqStatsCmd = &cobra.Command{
	Use:   "pyq-stats",
	Short: "Print coverage statistics for the previous-year-question table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		d, err := setup(ctx)
		if err != nil {
			return err
		}
		defer d.close()

		stats := d.questions.Stats(ctx)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics for the local card archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Init(cfg.App.LogLevel)

		archive, err := store.NewStore(cfg.App.DataDir)
		if err != nil {
			return fmt.Errorf("failed to open card archive: %w", err)
		}
		defer archive.Close()

		stats, err := archive.GetStats()
		if err != nil {
			return err
		}

		fmt.Printf("Knowledge cards: %d\n", stats.CardCount)
		fmt.Printf("Selection runs:  %d\n", stats.RunCount)
		for triage, count := range stats.TriageCounts {
			fmt.Printf("  %-14s %d\n", triage+":", count)
		}
		fmt.Printf("Database size:   %d bytes\n", stats.DatabaseSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pyqStatsCmd)
	rootCmd.AddCommand(statsCmd)
}
