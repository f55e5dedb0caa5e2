package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetBaseline_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT document_id, revision_id, content, saved_at FROM baselines WHERE document_id = \$1`).
		WithArgs("missing.tex").
		WillReturnError(pgx.ErrNoRows)

	b, err := s.GetBaseline(context.Background(), "missing.tex")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBaseline_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT document_id, revision_id, content, saved_at FROM baselines`).
		WithArgs("paper.tex").
		WillReturnRows(pgxmock.NewRows([]string{"document_id", "revision_id", "content", "saved_at"}).
			AddRow("paper.tex", "rev-1", "\\section{Intro}\n", savedAt))

	b, err := s.GetBaseline(context.Background(), "paper.tex")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "rev-1", b.RevisionID)
	assert.Equal(t, "\\section{Intro}\n", b.Content)
	assert.Equal(t, savedAt, b.SavedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBaseline_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT document_id`).
		WithArgs("paper.tex").
		WillReturnError(errors.New("connection reset"))

	_, err := s.GetBaseline(context.Background(), "paper.tex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get baseline")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBaseline_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO baselines .* ON CONFLICT \(document_id\) DO UPDATE`).
		WithArgs("paper.tex", pgxmock.AnyArg(), "body", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	b, err := s.SaveBaseline(context.Background(), "paper.tex", "body")
	require.NoError(t, err)
	assert.Equal(t, "paper.tex", b.DocumentID)
	assert.Len(t, b.RevisionID, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveBaseline_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO baselines`).
		WithArgs("paper.tex", pgxmock.AnyArg(), "body", pgxmock.AnyArg()).
		WillReturnError(errors.New("disk full"))

	_, err := s.SaveBaseline(context.Background(), "paper.tex", "body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save baseline")
}

func TestPostgresStore_DeleteBaseline(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM baselines WHERE document_id = \$1`).
		WithArgs("paper.tex").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteBaseline(context.Background(), "paper.tex"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListBaselines(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT document_id, revision_id, content, saved_at FROM baselines ORDER BY document_id`).
		WillReturnRows(pgxmock.NewRows([]string{"document_id", "revision_id", "content", "saved_at"}).
			AddRow("a.tex", "r1", "a", now).
			AddRow("b.tex", "r2", "b", now))

	all, err := s.ListBaselines(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a.tex", all[0].DocumentID)
	assert.Equal(t, "r2", all[1].RevisionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS baselines`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CloseWithoutPool(t *testing.T) {
	s := &PostgresStore{}
	assert.NoError(t, s.Close())
}
