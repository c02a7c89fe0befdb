package pyq

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// questionColumns coalesces nullable columns so rows scan directly into
// Question values.
var questionColumns = []string{
	"id",
	"coalesce(question_text, '')",
	"coalesce(year, 0)",
	"coalesce(exam_type, '')",
	"coalesce(subject, '')",
	"coalesce(topics, '{}')",
	"coalesce(upsc_relevance, 0)",
}

// PostgresStore implements Store over the pyq_questions table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to Postgres and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func baseSelect() sq.SelectBuilder {
	return sq.Select(questionColumns...).
		From("pyq_questions").
		PlaceholderFormat(sq.Dollar)
}

// ByTopicOverlap returns rows whose topic-tag array intersects topics,
// most recent first.
func (s *PostgresStore) ByTopicOverlap(ctx context.Context, topics []string, limit int) ([]Question, error) {
	query := baseSelect().
		Where(sq.Expr("topics && ?", topics)).
		OrderBy("year DESC").
		Limit(uint64(limit))
	return s.run(ctx, query)
}

// BySubjects returns rows whose subject is one of subjects, most recent
// first.
func (s *PostgresStore) BySubjects(ctx context.Context, subjects []string, limit int) ([]Question, error) {
	query := baseSelect().
		Where(sq.Eq{"subject": subjects}).
		OrderBy("year DESC").
		Limit(uint64(limit))
	return s.run(ctx, query)
}

// ByText returns rows whose question text contains keyword, case
// insensitively, most recent first.
func (s *PostgresStore) ByText(ctx context.Context, keyword string, limit int) ([]Question, error) {
	query := baseSelect().
		Where(sq.ILike{"question_text": "%" + keyword + "%"}).
		OrderBy("year DESC").
		Limit(uint64(limit))
	return s.run(ctx, query)
}

// All returns every row, for stats aggregation.
func (s *PostgresStore) All(ctx context.Context) ([]Question, error) {
	return s.run(ctx, baseSelect())
}

func (s *PostgresStore) run(ctx context.Context, query sq.SelectBuilder) ([]Question, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.QuestionText, &q.Year, &q.ExamType,
			&q.Subject, &q.Topics, &q.UPSCRelevance); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}
