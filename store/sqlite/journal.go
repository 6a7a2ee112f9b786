package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smallnest/researchgraph/activity"
	"github.com/smallnest/researchgraph/log"
)

// Journal is an activity.Sink that appends every entry to a table, so the
// activity of past runs can be read back after the process exits.
type Journal struct {
	db        *sql.DB
	tableName string
	logger    log.Logger
}

var _ activity.Sink = (*Journal)(nil)

// NewJournal opens the database and creates the journal table.
func NewJournal(opts Options, logger log.Logger) (*Journal, error) {
	db, err := Open(opts.Path)
	if err != nil {
		return nil, err
	}
	j, err := NewJournalWithDB(context.Background(), db, opts.TableName, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewJournalWithDB creates the journal table in an open database. A nil
// logger discards write failures.
func NewJournalWithDB(ctx context.Context, db *sql.DB, tableName string, logger log.Logger) (*Journal, error) {
	if tableName == "" {
		tableName = "activity"
	}
	if logger == nil {
		logger = log.NoOpLogger{}
	}
	j := &Journal{db: db, tableName: tableName, logger: logger}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			stage TEXT NOT NULL,
			level TEXT NOT NULL,
			message TEXT NOT NULL,
			time DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id, seq);
	`, tableName, tableName, tableName)
	if _, err := db.ExecContext(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return j, nil
}

// Append writes e. Sinks cannot fail, so write errors are logged.
func (j *Journal) Append(e activity.Entry) {
	query := fmt.Sprintf("INSERT INTO %s (run_id, stage, level, message, time) VALUES (?, ?, ?, ?, ?)", j.tableName)
	if _, err := j.db.Exec(query, e.RunID, e.Stage, string(e.Level), e.Message, e.Time); err != nil {
		j.logger.Warn("failed to journal activity for run %s: %v", e.RunID, err)
	}
}

// Entries returns the entries of a run in the order they were appended.
func (j *Journal) Entries(ctx context.Context, runID string) ([]activity.Entry, error) {
	query := fmt.Sprintf(`
		SELECT run_id, stage, level, message, time
		FROM %s
		WHERE run_id = ?
		ORDER BY seq ASC
	`, j.tableName)

	rows, err := j.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	defer rows.Close()

	entries := []activity.Entry{}
	for rows.Next() {
		var (
			e     activity.Entry
			level string
		)
		if err := rows.Scan(&e.RunID, &e.Stage, &level, &e.Message, &e.Time); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		e.Level = activity.Level(level)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}
	return entries, nil
}

// Runs returns the IDs of journaled runs, most recent first.
func (j *Journal) Runs(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT run_id FROM %s GROUP BY run_id ORDER BY MAX(seq) DESC LIMIT ?
	`, j.tableName)

	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection
func (j *Journal) Close() error {
	return j.db.Close()
}
