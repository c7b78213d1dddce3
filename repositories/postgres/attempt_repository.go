package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/audit"
)

// AttemptRepository implements the audit.Repository interface
type AttemptRepository struct {
	db     *DB
	logger *zap.Logger
}

var _ audit.Repository = (*AttemptRepository)(nil)

// NewAttemptRepository creates a new attempt repository
func NewAttemptRepository(db *DB, logger *zap.Logger) *AttemptRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttemptRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts one audit event
func (r *AttemptRepository) Insert(ctx context.Context, event *audit.Event) error {
	query := `
		INSERT INTO resolution_attempts (
			id, run_id, kind, purpose, rank, label, outcome,
			error_message, duration_ms, attempts, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID,
		event.RunID,
		string(event.Kind),
		event.Purpose,
		event.Rank,
		event.Label,
		event.Outcome,
		nullString(event.Error),
		event.DurationMs,
		event.Attempts,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution attempt: %w", err)
	}

	r.logger.Debug("resolution attempt inserted",
		zap.String("id", event.ID.String()),
		zap.String("run_id", event.RunID),
		zap.String("kind", string(event.Kind)))
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
