package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prepdeck/internal/logger"
	"prepdeck/internal/selector"
	"prepdeck/internal/store"
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Run the full daily pipeline: enrich, then curate the top articles",
	RunE:  runSelect,
}

func init() {
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	d, err := setup(ctx)
	if err != nil {
		return err
	}
	defer d.close()

	cards, err := enrichPipeline(ctx, d)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		fmt.Println("Nothing to select: no cards were produced")
		return nil
	}

	sel := selector.New(d.client, selector.Options{
		Target:         d.cfg.Selection.Target,
		DedupThreshold: d.cfg.Selection.DedupThreshold,
		GSMinimums:     d.cfg.Selection.GSMinimums,
	})
	selected := sel.SelectTopArticles(ctx, cards)

	archive, err := store.NewStore(d.cfg.App.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open card archive: %w", err)
	}
	defer archive.Close()

	runDate := time.Now().UTC().Format("2006-01-02")
	runID, err := archive.SaveSelectionRun(runDate, selected, len(cards))
	if err != nil {
		return fmt.Errorf("failed to record selection run: %w", err)
	}
	log := logger.With("cli")
	log.Info().Str("run_id", runID).Msg("selection run recorded")

	fmt.Printf("Selected %d of %d cards for %s (run %s)\n", len(selected), len(cards), runDate, runID)
	for i, card := range selected {
		fmt.Printf("%2d. [%s %s] %s\n", i+1, card.GSPaper, card.PriorityTriage, card.HeadlineLayer)
	}
	return nil
}
