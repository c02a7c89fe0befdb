// Package store persists knowledge cards and selection runs to a local
// SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"prepdeck/internal/core"
)

// Store is the SQLite-backed card archive.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "prepdeck.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	cardsTable := `
	CREATE TABLE IF NOT EXISTS knowledge_cards (
		article_id TEXT PRIMARY KEY,
		url TEXT,
		title TEXT,
		source_site TEXT,
		section TEXT,
		published_date TEXT,
		upsc_relevance INTEGER,
		gs_paper TEXT,
		priority_triage TEXT,
		headline_layer TEXT,
		facts_layer TEXT,
		context_layer TEXT,
		connections_layer TEXT,
		mains_angle_layer TEXT,
		keywords TEXT,
		date_created DATETIME
	);`

	runsTable := `
	CREATE TABLE IF NOT EXISTS selection_runs (
		id TEXT PRIMARY KEY,
		run_date TEXT,
		article_ids TEXT,
		candidate_count INTEGER,
		selected_count INTEGER,
		date_created DATETIME
	);`

	for _, table := range []string{cardsTable, runsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveCard upserts a knowledge card keyed by its article ID.
func (s *Store) SaveCard(card *core.KnowledgeCard) error {
	facts, _ := json.Marshal(card.FactsLayer)
	connections, _ := json.Marshal(card.Connections)
	keywords, _ := json.Marshal(card.Keywords)

	query := `
	INSERT OR REPLACE INTO knowledge_cards
	(article_id, url, title, source_site, section, published_date,
	 upsc_relevance, gs_paper, priority_triage,
	 headline_layer, facts_layer, context_layer, connections_layer, mains_angle_layer,
	 keywords, date_created)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query,
		card.ArticleID(),
		card.URL,
		card.Title,
		card.SourceSite,
		card.Section,
		card.PublishedDate,
		card.UPSCRelevance,
		card.GSPaper,
		string(card.PriorityTriage),
		card.HeadlineLayer,
		string(facts),
		card.ContextLayer,
		string(connections),
		card.MainsAngleLayer,
		string(keywords),
		time.Now().UTC(),
	)
	return err
}

// GetCard retrieves a card by article ID. A missing card is (nil, nil).
func (s *Store) GetCard(articleID string) (*core.KnowledgeCard, error) {
	query := `
	SELECT article_id, url, title, source_site, section, published_date,
	       upsc_relevance, gs_paper, priority_triage,
	       headline_layer, facts_layer, context_layer, connections_layer, mains_angle_layer,
	       keywords
	FROM knowledge_cards WHERE article_id = ?`

	row := s.db.QueryRow(query, articleID)

	var card core.KnowledgeCard
	var id, triage, facts, connections, keywords string

	err := row.Scan(
		&id,
		&card.URL,
		&card.Title,
		&card.SourceSite,
		&card.Section,
		&card.PublishedDate,
		&card.UPSCRelevance,
		&card.GSPaper,
		&triage,
		&card.HeadlineLayer,
		&facts,
		&card.ContextLayer,
		&connections,
		&card.MainsAngleLayer,
		&keywords,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan card: %w", err)
	}

	card.PriorityTriage = core.Triage(triage)
	json.Unmarshal([]byte(facts), &card.FactsLayer)
	json.Unmarshal([]byte(connections), &card.Connections)
	json.Unmarshal([]byte(keywords), &card.Keywords)
	return &card, nil
}

// ListCardsByTriage returns article IDs for a triage level, strongest first.
func (s *Store) ListCardsByTriage(triage core.Triage) ([]string, error) {
	rows, err := s.db.Query(
		"SELECT article_id FROM knowledge_cards WHERE priority_triage = ? ORDER BY upsc_relevance DESC",
		string(triage))
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan card id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveSelectionRun records the outcome of one daily selection.
func (s *Store) SaveSelectionRun(runDate string, selected []*core.KnowledgeCard, candidateCount int) (string, error) {
	ids := make([]string, len(selected))
	for i, card := range selected {
		ids[i] = card.ArticleID()
	}
	idsJSON, _ := json.Marshal(ids)

	runID := uuid.NewString()
	query := `
	INSERT INTO selection_runs (id, run_date, article_ids, candidate_count, selected_count, date_created)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.Exec(query, runID, runDate, string(idsJSON),
		candidateCount, len(selected), time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to save selection run: %w", err)
	}
	return runID, nil
}

// SelectionRun is one recorded daily selection.
type SelectionRun struct {
	ID             string
	RunDate        string
	ArticleIDs     []string
	CandidateCount int
	SelectedCount  int
}

// GetSelectionRun retrieves a run by ID. A missing run is (nil, nil).
func (s *Store) GetSelectionRun(runID string) (*SelectionRun, error) {
	row := s.db.QueryRow(
		"SELECT id, run_date, article_ids, candidate_count, selected_count FROM selection_runs WHERE id = ?",
		runID)

	var run SelectionRun
	var idsJSON string
	err := row.Scan(&run.ID, &run.RunDate, &idsJSON, &run.CandidateCount, &run.SelectedCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan selection run: %w", err)
	}
	json.Unmarshal([]byte(idsJSON), &run.ArticleIDs)
	return &run, nil
}

// ArchiveStats summarizes the local archive.
type ArchiveStats struct {
	CardCount    int
	RunCount     int
	TriageCounts map[string]int
	DatabaseSize int64
}

// GetStats returns counts over the archive.
func (s *Store) GetStats() (*ArchiveStats, error) {
	stats := &ArchiveStats{TriageCounts: make(map[string]int)}

	if err := s.db.QueryRow("SELECT COUNT(*) FROM knowledge_cards").Scan(&stats.CardCount); err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM selection_runs").Scan(&stats.RunCount); err != nil {
		return nil, fmt.Errorf("failed to count runs: %w", err)
	}

	rows, err := s.db.Query("SELECT priority_triage, COUNT(*) FROM knowledge_cards GROUP BY priority_triage")
	if err != nil {
		return nil, fmt.Errorf("failed to count triage levels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var triage string
		var count int
		if err := rows.Scan(&triage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan triage count: %w", err)
		}
		stats.TriageCounts[triage] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if fileInfo, err := os.Stat(s.path); err == nil {
		stats.DatabaseSize = fileInfo.Size()
	}
	return stats, nil
}
