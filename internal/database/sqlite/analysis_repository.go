package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/jmoiron/sqlx"
)

// AnalysisRepository implements database.AnalysisRepository.
type AnalysisRepository struct {
	db *sqlx.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *sqlx.DB) database.AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// NewRepositories creates all repository instances over one connection.
func NewRepositories(db *sqlx.DB) *database.Repositories {
	return &database.Repositories{
		Sessions: NewSessionRepository(db),
		Analyses: NewAnalysisRepository(db),
	}
}

func (r *AnalysisRepository) Create(ctx context.Context, record *database.AnalysisRecord) error {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	query := `
		INSERT INTO analyses (id, session_id, state, error, result, created_at, updated_at)
		VALUES (:id, :session_id, :state, :error, :result, :created_at, :updated_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) UpdateState(ctx context.Context, id, state string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE analyses SET state = ?, updated_at = ? WHERE id = ?`,
		state, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update analysis state: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) SetResult(ctx context.Context, id, state string, result []byte) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE analyses SET state = ?, result = ?, updated_at = ? WHERE id = ?`,
		state, result, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to store analysis result: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) SetError(ctx context.Context, id, state, message string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE analyses SET state = ?, error = ?, updated_at = ? WHERE id = ?`,
		state, message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to store analysis error: %w", err)
	}
	return nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*database.AnalysisRecord, error) {
	var record database.AnalysisRecord
	err := r.db.GetContext(ctx, &record,
		`SELECT id, session_id, state, error, result, created_at, updated_at FROM analyses WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &record, nil
}

func (r *AnalysisRepository) ListBySession(ctx context.Context, sessionID string) ([]database.AnalysisRecord, error) {
	var records []database.AnalysisRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT id, session_id, state, error, created_at, updated_at FROM analyses WHERE session_id = ? ORDER BY created_at DESC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses for session: %w", err)
	}
	return records, nil
}

func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]database.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []database.AnalysisRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT id, session_id, state, error, created_at, updated_at FROM analyses ORDER BY created_at DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return records, nil
}

func (r *AnalysisRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired analyses: %w", err)
	}
	deleted, _ := res.RowsAffected()
	return deleted, nil
}
