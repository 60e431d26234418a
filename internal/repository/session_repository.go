package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// SessionRepository handles durable session records.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// CreateSession inserts a new session and returns its durable id.
func (r *SessionRepository) CreateSession(ctx context.Context, subject string, totalQuestions int) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (subject, total_questions, status)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		subject, totalQuestions, model.SessionStatusInProgress,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// SubmitSession marks a session COMPLETED with its finalized values. The
// session id is the idempotency key: a session already COMPLETED is left
// untouched and the call reports success, so a finalize retry after a
// partially applied write cannot double-complete the attempt.
func (r *SessionRepository) SubmitSession(ctx context.Context, sessionID uuid.UUID, sub model.Submission) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = $2,
		     end_time = $3,
		     answered_questions = $4,
		     score = $5,
		     percentage = $6,
		     time_taken_minutes = $7
		 WHERE id = $1 AND status <> $2`,
		sessionID, model.SessionStatusCompleted,
		sub.EndTime, sub.AnsweredCount, sub.Score, sub.Percentage, sub.TimeTakenMinutes,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, getErr := r.GetByID(ctx, sessionID)
		if getErr != nil {
			return fmt.Errorf("session %s not found: %w", sessionID, getErr)
		}
		if existing.Status == model.SessionStatusCompleted {
			return nil // duplicate submit, already finalized
		}
		return fmt.Errorf("session %s not updatable in status %s", sessionID, existing.Status)
	}
	return nil
}

// DeleteSession removes an abandoned session and its answer rows.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetByID retrieves a session record.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*model.Session, error) {
	s := &model.Session{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, subject, total_questions, status, start_time, end_time,
		        score, percentage, answered_questions, time_taken_minutes
		 FROM sessions
		 WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.Subject, &s.TotalQuestions, &s.Status, &s.StartTime, &s.EndTime,
		&s.Score, &s.Percentage, &s.AnsweredQuestions, &s.TimeTakenMinutes)
	if err != nil {
		return nil, err
	}
	return s, nil
}
