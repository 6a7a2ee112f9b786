package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/smallnest/researchgraph/rag"
)

// DefaultTextSearchConfig is the text search configuration used by Searcher.
const DefaultTextSearchConfig = "english"

// Searcher implements rag.Searcher with Postgres full-text search. Documents
// are ranked by ts_rank of their content against plainto_tsquery(query).
type Searcher struct {
	pool      DBPool
	tableName string
	config    string
}

var _ rag.Searcher = (*Searcher)(nil)

// NewSearcher connects to Postgres and returns a searcher. Call InitSchema
// before first use.
func NewSearcher(ctx context.Context, opts Options) (*Searcher, error) {
	pool, err := Connect(ctx, opts.ConnString)
	if err != nil {
		return nil, err
	}
	return NewSearcherWithPool(pool, opts.TableName), nil
}

// NewSearcherWithPool creates a searcher over an existing pool.
func NewSearcherWithPool(pool DBPool, tableName string) *Searcher {
	if tableName == "" {
		tableName = "documents"
	}
	return &Searcher{
		pool:      pool,
		tableName: tableName,
		config:    DefaultTextSearchConfig,
	}
}

// InitSchema creates the documents table and its full-text index.
func (s *Searcher) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			metadata JSONB
		);
		CREATE INDEX IF NOT EXISTS idx_%s_fts ON %s USING GIN (to_tsvector('%s', content));
	`, s.tableName, s.tableName, s.tableName, s.config)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *Searcher) Close() {
	s.pool.Close()
}

// AddDocuments inserts docs into the documents table.
func (s *Searcher) AddDocuments(ctx context.Context, docs []rag.Document) error {
	query := fmt.Sprintf("INSERT INTO %s (source, content, metadata) VALUES ($1, $2, $3)", s.tableName)
	for i, doc := range docs {
		md, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata of document %d: %w", i, err)
		}
		if _, err := s.pool.Exec(ctx, query, doc.Source(), doc.Content, md); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", i, err)
		}
	}
	return nil
}

// Search returns up to k documents matching query, best first. The rank is
// stored under rag.MetadataSearchScore.
func (s *Searcher) Search(ctx context.Context, query string, k int) ([]rag.Document, error) {
	if k <= 0 {
		return []rag.Document{}, nil
	}

	sql := fmt.Sprintf(`
		SELECT source, content, metadata, ts_rank(to_tsvector('%[2]s', content), plainto_tsquery('%[2]s', $1)) AS rank
		FROM %[1]s
		WHERE to_tsvector('%[2]s', content) @@ plainto_tsquery('%[2]s', $1)
		ORDER BY rank DESC, id ASC
		LIMIT $2
	`, s.tableName, s.config)

	rows, err := s.pool.Query(ctx, sql, query, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	docs := []rag.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

func scanDocument(row pgx.Row) (rag.Document, error) {
	var (
		source, content string
		mdJSON          []byte
		rank            float64
	)
	if err := row.Scan(&source, &content, &mdJSON, &rank); err != nil {
		return rag.Document{}, fmt.Errorf("failed to scan document row: %w", err)
	}

	doc := rag.NewDocument(content, source)
	if len(mdJSON) > 0 {
		var md map[string]any
		if err := json.Unmarshal(mdJSON, &md); err != nil {
			return rag.Document{}, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
		for k, v := range md {
			if _, ok := doc.Metadata[k]; !ok {
				doc.Metadata[k] = v
			}
		}
	}
	doc.Metadata[rag.MetadataSearchScore] = rank
	return doc, nil
}
