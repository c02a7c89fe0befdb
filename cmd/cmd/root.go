// Package cmd defines the prepdeck CLI.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"prepdeck/internal/config"
	"prepdeck/internal/enrich"
	"prepdeck/internal/llm"
	"prepdeck/internal/logger"
	"prepdeck/internal/pyq"
	"prepdeck/internal/syllabus"
)

var rootCmd = &cobra.Command{
	Use:   "prepdeck",
	Short: "prepdeck turns daily news into UPSC knowledge cards",
	Long: `prepdeck ingests news and editorial feeds, scores every article for
UPSC exam relevance with consensus LLM scoring, matches it against the GS
syllabus and previous-year questions, and curates a fixed-size daily set of
knowledge cards.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// deps bundles the shared services every pipeline command needs.
type deps struct {
	cfg       *config.Config
	client    llm.Client
	engine    *enrich.Engine
	questions *pyq.Service
	pyqStore  *pyq.PostgresStore
}

// setup loads config, initializes logging, and wires the enrichment engine.
// The question store is optional; without a DSN the pipeline runs with empty
// connections layers.
func setup(ctx context.Context) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.App.LogLevel)
	log := logger.With("cli")

	client, err := llm.NewGeminiClient(ctx, cfg.Gemini.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	syl, err := syllabus.New(cfg.Syllabus.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load syllabus: %w", err)
	}

	d := &deps{cfg: cfg, client: client}
	if cfg.PYQ.DatabaseURL != "" {
		pyqStore, err := pyq.NewPostgresStore(ctx, cfg.PYQ.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to question store: %w", err)
		}
		d.pyqStore = pyqStore
		d.questions = pyq.NewService(pyqStore)
	} else {
		log.Warn().Msg("no question database configured, cards will have no PYQ references")
		d.questions = pyq.NewService(nil)
	}

	d.engine = enrich.New(client, syl, d.questions, enrich.Options{
		RelevanceThreshold: cfg.Pipeline.RelevanceThreshold,
		MustKnowSources:    cfg.Pipeline.MustKnowSet(),
		BatchSize:          cfg.Pipeline.BatchSize,
	})
	return d, nil
}

func (d *deps) close() {
	if d.pyqStore != nil {
		d.pyqStore.Close()
	}
}
