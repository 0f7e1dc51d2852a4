// Package archive keeps an outbox of submission attempts so runs that never
// reached the backend can be sent again later.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Status of an archived submission
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusRejected  Status = "rejected"
	// StatusUnconfirmed: sent but never answered. Held out of resubmission
	// since the backend may already have recorded it.
	StatusUnconfirmed Status = "unconfirmed"
)

// Submission is one archived run
type Submission struct {
	ID         uuid.UUID `json:"id"`
	SessionID  string    `json:"session_id"`
	Nickname   string    `json:"nickname"`
	ModelID    string    `json:"model_id,omitempty"`
	Score      float64   `json:"score"`
	FinalStage int       `json:"final_stage"`
	Payload    []byte    `json:"-"`
	Status     Status    `json:"status"`
	RemoteID   string    `json:"remote_id,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
	Attempts   int       `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewSubmission creates a pending submission with a fresh id
func NewSubmission(sessionID, nickname, modelID string, score float64, finalStage int, payload []byte) *Submission {
	now := time.Now().UTC()
	return &Submission{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Nickname:   nickname,
		ModelID:    modelID,
		Score:      score,
		FinalStage: finalStage,
		Payload:    append([]byte(nil), payload...),
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Repository persists submissions in PostgreSQL
// ⭐ SSOT: 제출 아웃박스 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new archive repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const schemaSQL = `
	CREATE SCHEMA IF NOT EXISTS arcade;

	CREATE TABLE IF NOT EXISTS arcade.submissions (
		id          UUID PRIMARY KEY,
		session_id  TEXT NOT NULL,
		nickname    TEXT NOT NULL,
		model_id    TEXT NOT NULL DEFAULT '',
		score       DOUBLE PRECISION NOT NULL,
		final_stage INTEGER NOT NULL DEFAULT 0,
		payload     JSONB NOT NULL,
		status      TEXT NOT NULL DEFAULT 'pending',
		remote_id   TEXT NOT NULL DEFAULT '',
		last_error  TEXT NOT NULL DEFAULT '',
		attempts    INTEGER NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS submissions_pending_idx
		ON arcade.submissions (created_at) WHERE status = 'pending';

	ALTER TABLE arcade.submissions ALTER COLUMN score TYPE DOUBLE PRECISION;
`

// EnsureSchema creates the outbox table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Save inserts a submission
func (r *Repository) Save(ctx context.Context, s *Submission) error {
	query := `
		INSERT INTO arcade.submissions (
			id, session_id, nickname, model_id, score, final_stage,
			payload, status, attempts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	payload := s.Payload
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.SessionID,
		s.Nickname,
		s.ModelID,
		s.Score,
		s.FinalStage,
		payload,
		string(s.Status),
		s.Attempts,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}

	return nil
}

// ListPending returns the oldest pending submissions first
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*Submission, error) {
	query := `
		SELECT
			id, session_id, nickname, model_id, score, final_stage,
			payload, status, remote_id, last_error, attempts, created_at, updated_at
		FROM arcade.submissions
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending submissions: %w", err)
	}
	defer rows.Close()

	var out []*Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return out, nil
}

// Get retrieves a submission by id
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*Submission, error) {
	query := `
		SELECT
			id, session_id, nickname, model_id, score, final_stage,
			payload, status, remote_id, last_error, attempts, created_at, updated_at
		FROM arcade.submissions
		WHERE id = $1
	`

	s, err := scanSubmission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return s, nil
}

// MarkSubmitted records a successful submission
func (r *Repository) MarkSubmitted(ctx context.Context, id uuid.UUID, remoteID string) error {
	return r.update(ctx, "mark submitted", `
		UPDATE arcade.submissions
		SET status = 'submitted', remote_id = $2, last_error = '', attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`, id, remoteID)
}

// MarkRejected records a submission the backend refused. It is not retried.
func (r *Repository) MarkRejected(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, "mark rejected", `
		UPDATE arcade.submissions
		SET status = 'rejected', last_error = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`, id, message)
}

// MarkUnconfirmed records a submission whose outcome is unknown. It is not retried.
func (r *Repository) MarkUnconfirmed(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, "mark unconfirmed", `
		UPDATE arcade.submissions
		SET status = 'unconfirmed', last_error = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`, id, message)
}

// MarkAttempt records a failed attempt; the submission stays pending
func (r *Repository) MarkAttempt(ctx context.Context, id uuid.UUID, message string) error {
	return r.update(ctx, "mark attempt", `
		UPDATE arcade.submissions
		SET last_error = $2, attempts = attempts + 1, updated_at = NOW()
		WHERE id = $1
	`, id, message)
}

func (r *Repository) update(ctx context.Context, op, query string, args ...interface{}) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, pgx.ErrNoRows)
	}
	return nil
}

func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	var status string

	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.Nickname,
		&s.ModelID,
		&s.Score,
		&s.FinalStage,
		&s.Payload,
		&status,
		&s.RemoteID,
		&s.LastError,
		&s.Attempts,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = Status(status)
	return &s, nil
}
