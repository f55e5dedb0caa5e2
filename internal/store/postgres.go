package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/draftscan/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_baseline":    `SELECT document_id, revision_id, content, saved_at FROM baselines WHERE document_id = $1`,
	"save_baseline":   `INSERT INTO baselines (document_id, revision_id, content, saved_at) VALUES ($1, $2, $3, $4) ON CONFLICT (document_id) DO UPDATE SET revision_id = $2, content = $3, saved_at = $4`,
	"delete_baseline": `DELETE FROM baselines WHERE document_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS baselines (
	document_id TEXT PRIMARY KEY,
	revision_id TEXT NOT NULL,
	content     TEXT NOT NULL,
	saved_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetBaseline(ctx context.Context, documentID string) (*model.Baseline, error) {
	var b model.Baseline
	err := s.pool.QueryRow(ctx, preparedStatements["get_baseline"], documentID).
		Scan(&b.DocumentID, &b.RevisionID, &b.Content, &b.SavedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get baseline %s", documentID)
	}
	return &b, nil
}

func (s *PostgresStore) SaveBaseline(ctx context.Context, documentID, content string) (*model.Baseline, error) {
	b := &model.Baseline{
		DocumentID: documentID,
		RevisionID: uuid.New().String(),
		Content:    content,
		SavedAt:    time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx, preparedStatements["save_baseline"],
		b.DocumentID, b.RevisionID, b.Content, b.SavedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save baseline %s", documentID)
	}
	return b, nil
}

func (s *PostgresStore) DeleteBaseline(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx, preparedStatements["delete_baseline"], documentID)
	return eris.Wrapf(err, "postgres: delete baseline %s", documentID)
}

func (s *PostgresStore) ListBaselines(ctx context.Context) ([]model.Baseline, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT document_id, revision_id, content, saved_at FROM baselines ORDER BY document_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list baselines")
	}
	defer rows.Close()

	var out []model.Baseline
	for rows.Next() {
		var b model.Baseline
		if err := rows.Scan(&b.DocumentID, &b.RevisionID, &b.Content, &b.SavedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan baseline")
		}
		out = append(out, b)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate baselines")
}
