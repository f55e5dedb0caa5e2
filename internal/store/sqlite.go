package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/draftscan/internal/model"
	"github.com/sells-group/draftscan/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS baselines (
	document_id TEXT PRIMARY KEY,
	revision_id TEXT NOT NULL,
	content     TEXT NOT NULL,
	saved_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetBaseline(ctx context.Context, documentID string) (*model.Baseline, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, revision_id, content, saved_at FROM baselines WHERE document_id = ?`,
		documentID,
	)
	b, err := scanBaseline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get baseline %s", documentID)
	}
	return b, nil
}

func (s *SQLiteStore) SaveBaseline(ctx context.Context, documentID, content string) (*model.Baseline, error) {
	b := &model.Baseline{
		DocumentID: documentID,
		RevisionID: uuid.New().String(),
		Content:    content,
		SavedAt:    time.Now().UTC(),
	}
	// Watchers and one-shot commands may write the same file concurrently;
	// a write that outlasts busy_timeout is retried.
	err := resilience.Do(ctx, resilience.BusyRetryConfig(), func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO baselines (document_id, revision_id, content, saved_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (document_id) DO UPDATE SET revision_id = excluded.revision_id,
			 content = excluded.content, saved_at = excluded.saved_at`,
			b.DocumentID, b.RevisionID, b.Content, b.SavedAt,
		)
		return err
	})
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save baseline %s", documentID)
	}
	return b, nil
}

func (s *SQLiteStore) DeleteBaseline(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM baselines WHERE document_id = ?`, documentID)
	return eris.Wrapf(err, "sqlite: delete baseline %s", documentID)
}

func (s *SQLiteStore) ListBaselines(ctx context.Context) ([]model.Baseline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, revision_id, content, saved_at FROM baselines ORDER BY document_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list baselines")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Baseline
	for rows.Next() {
		b, err := scanBaseline(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan baseline")
		}
		out = append(out, *b)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate baselines")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBaseline(row scannable) (*model.Baseline, error) {
	var b model.Baseline
	if err := row.Scan(&b.DocumentID, &b.RevisionID, &b.Content, &b.SavedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
