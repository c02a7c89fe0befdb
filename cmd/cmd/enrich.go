package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"prepdeck/internal/core"
	"prepdeck/internal/feeds"
	"prepdeck/internal/logger"
	"prepdeck/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch configured feeds and enrich today's articles into knowledge cards",
	RunE:  runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("Enriched %d knowledge cards\n", len(cards))
	return nil
}

// enrichPipeline fetches feeds, runs consensus Pass 1 scoring, completes
// surviving articles into cards, and persists them. Per-article failures are
// logged and skipped; only infrastructure errors abort the run.
func enrichPipeline(ctx context.Context, d *deps) ([]*core.KnowledgeCard, error) {
	log := logger.With("cli")

	fetcher := feeds.NewFetcher(logger.With("feeds"))
	articles := fetcher.FetchAll(ctx, d.cfg.Feeds.Sources)
	if len(articles) == 0 {
		log.Warn().Msg("no articles fetched from any source")
		return nil, nil
	}

	archive, err := store.NewStore(d.cfg.App.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open card archive: %w", err)
	}
	defer archive.Close()

	results := d.engine.RunPass1Batch(ctx, articles)

	var cards []*core.KnowledgeCard
	filtered, failed := 0, 0
	for _, result := range results {
		card, err := d.engine.CompleteFromPass1(ctx, result.Article, result.Result)
		if err != nil {
			failed++
			log.Error().Err(err).Str("title", result.Article.Title).Msg("card generation failed")
			continue
		}
		if card == nil {
			filtered++
			continue
		}
		if err := archive.SaveCard(card); err != nil {
			log.Error().Err(err).Str("title", card.Title).Msg("failed to persist card")
		}
		cards = append(cards, card)
	}

	log.Info().
		Int("fetched", len(articles)).
		Int("scored", len(results)).
		Int("filtered", filtered).
		Int("failed", failed).
		Int("cards", len(cards)).
		Msg("enrichment run complete")
	return cards, nil
}
