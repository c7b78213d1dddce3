package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/audit"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return Wrap(sqlDB, zap.NewNop()), mock
}

func TestAttemptRepository_Insert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttemptRepository(db, zap.NewNop())

	event := &audit.Event{
		ID:         uuid.New(),
		RunID:      "run-1",
		Kind:       audit.KindAttempt,
		Purpose:    "session",
		Rank:       2,
		Label:      "[2] invocation instance + environment token",
		Outcome:    "failure",
		Error:      "login: HTTP 401",
		DurationMs: 120,
		Attempts:   1,
		Timestamp:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec("INSERT INTO resolution_attempts").
		WithArgs(event.ID, "run-1", "attempt", "session", 2, event.Label, "failure",
			sql.NullString{String: "login: HTTP 401", Valid: true}, int64(120), 1, event.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepository_InsertSuccessHasNullError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttemptRepository(db, nil)

	event := &audit.Event{ID: uuid.New(), RunID: "run-2", Kind: audit.KindResolution, Purpose: "backend", Outcome: "success"}

	mock.ExpectExec("INSERT INTO resolution_attempts").
		WithArgs(event.ID, "run-2", "resolution", "backend", 0, "", "success",
			sql.NullString{}, int64(0), 0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttemptRepository_InsertError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAttemptRepository(db, zap.NewNop())

	mock.ExpectExec("INSERT INTO resolution_attempts").WillReturnError(errors.New("relation does not exist"))

	err := repo.Insert(context.Background(), &audit.Event{ID: uuid.New()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert resolution attempt")
}

func TestDB_InitAuditSchema(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS resolution_attempts").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, db.InitAuditSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDB_HealthCheck(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()
	db := Wrap(sqlDB, zap.NewNop())

	mock.ExpectPing()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, db.HealthCheck(context.Background()))
}
