package vectorindex

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq" // PostgreSQL driver and array helpers
	"github.com/sirupsen/logrus"
)

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// PGIndex is a pgvector-backed Index
type PGIndex struct {
	db         *sql.DB
	table      string
	dimensions int
	log        *logrus.Entry
}

// Open connects to PostgreSQL and verifies the connection
func Open(databaseURL, table string, dimensions int, log *logrus.Logger) (*PGIndex, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	idx, err := New(db, table, dimensions, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// New wraps an existing connection
func New(db *sql.DB, table string, dimensions int, log *logrus.Logger) (*PGIndex, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid vector table name %q", table)
	}
	if dimensions < 1 {
		return nil, fmt.Errorf("vector dimensions must be positive, got %d", dimensions)
	}
	return &PGIndex{
		db:         db,
		table:      table,
		dimensions: dimensions,
		log:        log.WithField("component", "vectorindex"),
	}, nil
}

// EnsureSchema creates the pgvector extension, table and ANN index if missing
func (p *PGIndex) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			updated_at TIMESTAMPTZ NOT NULL
		)`, p.table, p.dimensions),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`, p.table, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_metadata_idx ON %s USING gin (metadata)`, p.table, p.table),
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare vector schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (p *PGIndex) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Insert upserts a vector and its metadata
func (p *PGIndex) Insert(ctx context.Context, id string, vector []float32, metadata map[string]any) error {
	if len(vector) != p.dimensions {
		return fmt.Errorf("vector for %s has %d dimensions, index expects %d", id, len(vector), p.dimensions)
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, metadata, updated_at)
		VALUES ($1, $2::vector, $3::jsonb, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`, p.table)

	if _, err := p.db.ExecContext(ctx, query, id, pgvectorString(vector), string(meta), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to insert vector %s: %w", id, err)
	}

	p.log.WithField("id", id).Debug("Stored vector")
	return nil
}

// Query finds the topK nearest vectors by cosine similarity
func (p *PGIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]any) ([]Match, error) {
	if topK < 1 {
		return nil, nil
	}

	// pgvector's <=> is cosine distance, so similarity is 1 - distance
	query, args, err := p.buildQuery(vector, topK, filter)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			m    Match
			meta []byte
		)
		if err := rows.Scan(&m.ID, &meta, &m.Score); err != nil {
			p.log.WithError(err).Warn("Failed to scan vector row")
			continue
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &m.Metadata); err != nil {
				p.log.WithError(err).WithField("id", m.ID).Warn("Failed to decode vector metadata")
			}
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return matches, nil
}

func (p *PGIndex) buildQuery(vector []float32, topK int, filter map[string]any) (string, []any, error) {
	args := []any{pgvectorString(vector)}
	where := ""
	if len(filter) > 0 {
		f, err := json.Marshal(filter)
		if err != nil {
			return "", nil, fmt.Errorf("failed to marshal filter: %w", err)
		}
		args = append(args, string(f))
		where = "WHERE metadata @> $2::jsonb"
	}
	args = append(args, topK)

	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1::vector) AS similarity
		FROM %s
		%s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d
	`, p.table, where, len(args))
	return query, args, nil
}

// DeleteByIDs removes vectors; unknown ids are ignored
func (p *PGIndex) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, p.table)
	if _, err := p.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete vectors: %w", err)
	}
	return nil
}

// Count returns the number of stored vectors
func (p *PGIndex) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, p.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return n, nil
}

// pgvectorString converts a float32 slice to pgvector text format
func pgvectorString(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, val := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(val), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
