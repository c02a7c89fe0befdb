package config

import (
	"testing"

	"prepdeck/internal/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Pipeline.RelevanceThreshold != 40 {
		t.Errorf("Expected default threshold 40, got %d", cfg.Pipeline.RelevanceThreshold)
	}
	if cfg.Pipeline.BatchSize != 10 {
		t.Errorf("Expected default batch size 10, got %d", cfg.Pipeline.BatchSize)
	}
	if cfg.Selection.Target != 30 {
		t.Errorf("Expected default target 30, got %d", cfg.Selection.Target)
	}
	if cfg.Selection.DedupThreshold != 0.40 {
		t.Errorf("Expected default dedup threshold 0.40, got %v", cfg.Selection.DedupThreshold)
	}
	if cfg.Selection.GSMinimums["GS4"] != 1 {
		t.Errorf("Expected GS4 minimum 1, got %d", cfg.Selection.GSMinimums["GS4"])
	}
}

func TestMustKnowSet(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	set := cfg.Pipeline.MustKnowSet()
	if len(set) != 4 {
		t.Fatalf("Expected 4 default must-know sources, got %d", len(set))
	}
	if !set[core.Source{Site: "hindu", Section: "editorial"}] {
		t.Error("Expected hindu/editorial in the must-know set")
	}
	if set[core.Source{Site: "hindu", Section: "sport"}] {
		t.Error("Unexpected source in the must-know set")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PREPDECK_PIPELINE_RELEVANCE_THRESHOLD", "55")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DATABASE_URL", "postgres://localhost/pyq")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Pipeline.RelevanceThreshold != 55 {
		t.Errorf("Expected env-overridden threshold 55, got %d", cfg.Pipeline.RelevanceThreshold)
	}
	if cfg.Gemini.APIKey != "test-key" {
		t.Errorf("Expected GEMINI_API_KEY honored, got %q", cfg.Gemini.APIKey)
	}
	if cfg.PYQ.DatabaseURL != "postgres://localhost/pyq" {
		t.Errorf("Expected DATABASE_URL honored, got %q", cfg.PYQ.DatabaseURL)
	}
}
