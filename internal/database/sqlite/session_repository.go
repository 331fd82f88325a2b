package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/database"
	"github.com/jmoiron/sqlx"
)

// SessionRepository implements database.SessionRepository.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sqlx.DB) database.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *database.Session) error {
	query := `
		INSERT INTO sessions (id, dataset_path, row_count, answers, created_at)
		VALUES (:id, :dataset_path, :row_count, :answers, :created_at)
	`
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*database.Session, error) {
	var session database.Session
	err := r.db.GetContext(ctx, &session,
		`SELECT id, dataset_path, row_count, answers, created_at FROM sessions WHERE id = ?`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]database.Session, error) {
	var sessions []database.Session
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT id, dataset_path, row_count, answers, created_at FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	var paths []string
	err := r.db.SelectContext(ctx, &paths,
		`SELECT dataset_path FROM sessions WHERE created_at < ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired sessions: %w", err)
	}
	if len(paths) == 0 {
		return nil, nil
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff); err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return paths, nil
}
