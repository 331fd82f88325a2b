package database

import (
	"context"
	"time"
)

// Session is one uploaded dataset plus questionnaire answers, the unit the
// retention sweep expires.
type Session struct {
	ID          string    `db:"id" json:"id"`
	DatasetPath string    `db:"dataset_path" json:"dataset_path"`
	RowCount    int       `db:"row_count" json:"row_count"`
	Answers     string    `db:"answers" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// AnalysisRecord is one analysis run. Result holds the full JSON document
// once the run completes and stays NULL while in flight or failed.
type AnalysisRecord struct {
	ID        string    `db:"id" json:"analysis_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	State     string    `db:"state" json:"state"`
	Error     string    `db:"error" json:"error,omitempty"`
	Result    []byte    `db:"result" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionRepository persists upload sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	List(ctx context.Context) ([]Session, error)
	// DeleteOlderThan removes expired sessions and returns their dataset
	// paths so callers can remove the files too.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

// AnalysisRepository persists analysis runs and their results.
type AnalysisRepository interface {
	Create(ctx context.Context, record *AnalysisRecord) error
	UpdateState(ctx context.Context, id, state string) error
	SetResult(ctx context.Context, id, state string, result []byte) error
	SetError(ctx context.Context, id, state, message string) error
	GetByID(ctx context.Context, id string) (*AnalysisRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]AnalysisRecord, error)
	List(ctx context.Context, limit int) ([]AnalysisRecord, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repositories holds all repository instances. Concrete implementations
// live in the sqlite subpackage.
type Repositories struct {
	Sessions SessionRepository
	Analyses AnalysisRepository
}
