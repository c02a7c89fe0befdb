package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"prepdeck/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testCard(url string, relevance int, triage core.Triage) *core.KnowledgeCard {
	return &core.KnowledgeCard{
		RawArticle: core.RawArticle{
			Title:         "RBI holds repo rate",
			URL:           url,
			SourceSite:    "hindu",
			Section:       "business",
			PublishedDate: "2026-08-29",
		},
		EnrichmentResult: core.EnrichmentResult{
			UPSCRelevance: relevance,
			GSPaper:       "GS3",
			Keywords:      []string{"repo rate", "inflation"},
		},
		HeadlineLayer:   "RBI holds repo rate at 6.5%",
		FactsLayer:      []string{"f1", "f2", "f3", "f4", "f5"},
		ContextLayer:    "Background on the MPC framework.",
		MainsAngleLayer: "Growth versus inflation trade-off.",
		Connections: core.ConnectionsLayer{
			PYQCount:  2,
			YearRange: "2019-2022",
		},
		PriorityTriage: triage,
	}
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	dbPath := filepath.Join(tmpDir, "prepdeck.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	if _, err := NewStore(invalidPath); err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestSaveCard_GetCard(t *testing.T) {
	store := newTestStore(t)

	card := testCard("https://example.com/rbi", 82, core.TriageMustKnow)
	if err := store.SaveCard(card); err != nil {
		t.Fatalf("SaveCard failed: %v", err)
	}

	got, err := store.GetCard(card.ArticleID())
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected card, got nil")
	}
	if got.Title != card.Title || got.UPSCRelevance != 82 {
		t.Errorf("Card round-trip mismatch: %+v", got)
	}
	if got.PriorityTriage != core.TriageMustKnow {
		t.Errorf("Expected must_know triage, got %q", got.PriorityTriage)
	}
	if !reflect.DeepEqual(got.FactsLayer, card.FactsLayer) {
		t.Errorf("Facts layer mismatch: %+v", got.FactsLayer)
	}
	if got.Connections.YearRange != "2019-2022" {
		t.Errorf("Connections layer mismatch: %+v", got.Connections)
	}
}

func TestGetCardMiss(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetCard("deadbeef")
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing card, got %+v", got)
	}
}

func TestSaveCardUpsert(t *testing.T) {
	store := newTestStore(t)

	card := testCard("https://example.com/rbi", 60, core.TriageShouldKnow)
	if err := store.SaveCard(card); err != nil {
		t.Fatalf("SaveCard failed: %v", err)
	}
	card.UPSCRelevance = 85
	card.PriorityTriage = core.TriageMustKnow
	if err := store.SaveCard(card); err != nil {
		t.Fatalf("SaveCard upsert failed: %v", err)
	}

	got, err := store.GetCard(card.ArticleID())
	if err != nil {
		t.Fatalf("GetCard failed: %v", err)
	}
	if got.UPSCRelevance != 85 || got.PriorityTriage != core.TriageMustKnow {
		t.Errorf("Expected updated card, got %+v", got)
	}

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.CardCount != 1 {
		t.Errorf("Expected 1 card after upsert, got %d", stats.CardCount)
	}
}

func TestListCardsByTriage(t *testing.T) {
	store := newTestStore(t)

	for _, card := range []*core.KnowledgeCard{
		testCard("https://example.com/a", 70, core.TriageMustKnow),
		testCard("https://example.com/b", 90, core.TriageMustKnow),
		testCard("https://example.com/c", 50, core.TriageGoodToKnow),
	} {
		if err := store.SaveCard(card); err != nil {
			t.Fatalf("SaveCard failed: %v", err)
		}
	}

	ids, err := store.ListCardsByTriage(core.TriageMustKnow)
	if err != nil {
		t.Fatalf("ListCardsByTriage failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 must_know cards, got %d", len(ids))
	}
	// Strongest first
	want := (&core.RawArticle{URL: "https://example.com/b"}).ArticleID()
	if ids[0] != want {
		t.Errorf("Expected highest-relevance card first, got %q", ids[0])
	}
}

func TestSelectionRunRoundTrip(t *testing.T) {
	store := newTestStore(t)

	selected := []*core.KnowledgeCard{
		testCard("https://example.com/a", 70, core.TriageMustKnow),
		testCard("https://example.com/b", 90, core.TriageShouldKnow),
	}

	runID, err := store.SaveSelectionRun("2026-08-30", selected, 70)
	if err != nil {
		t.Fatalf("SaveSelectionRun failed: %v", err)
	}

	run, err := store.GetSelectionRun(runID)
	if err != nil {
		t.Fatalf("GetSelectionRun failed: %v", err)
	}
	if run == nil {
		t.Fatal("Expected run, got nil")
	}
	if run.RunDate != "2026-08-30" || run.CandidateCount != 70 || run.SelectedCount != 2 {
		t.Errorf("Run metadata mismatch: %+v", run)
	}
	if len(run.ArticleIDs) != 2 {
		t.Errorf("Expected 2 article IDs, got %v", run.ArticleIDs)
	}

	missing, err := store.GetSelectionRun("nope")
	if err != nil {
		t.Fatalf("GetSelectionRun failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing run, got %+v", missing)
	}
}

func TestGetStats(t *testing.T) {
	store := newTestStore(t)

	_ = store.SaveCard(testCard("https://example.com/a", 70, core.TriageMustKnow))
	_ = store.SaveCard(testCard("https://example.com/b", 50, core.TriageGoodToKnow))
	_, _ = store.SaveSelectionRun("2026-08-30", nil, 0)

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.CardCount != 2 || stats.RunCount != 1 {
		t.Errorf("Unexpected counts: %+v", stats)
	}
	if stats.TriageCounts["must_know"] != 1 || stats.TriageCounts["good_to_know"] != 1 {
		t.Errorf("Unexpected triage counts: %+v", stats.TriageCounts)
	}
	if stats.DatabaseSize == 0 {
		t.Error("Expected non-zero database size")
	}
}
