package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// AnswerRepository persists per-answer rows, idempotent on
// (session_id, question_id).
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or overwrites the answer row. Grading columns use
// COALESCE so a live autosave that lands after the graded finalize row
// cannot null out the grading.
func (r *AnswerRepository) Upsert(ctx context.Context, rec model.AnswerUpsert) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO session_answers
		   (session_id, question_id, raw_answer, is_correct, marks_awarded, time_spent_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (session_id, question_id) DO UPDATE
		 SET raw_answer = EXCLUDED.raw_answer,
		     is_correct = COALESCE(EXCLUDED.is_correct, session_answers.is_correct),
		     marks_awarded = COALESCE(EXCLUDED.marks_awarded, session_answers.marks_awarded),
		     time_spent_seconds = COALESCE(EXCLUDED.time_spent_seconds, session_answers.time_spent_seconds),
		     updated_at = NOW()`,
		rec.SessionID, rec.QuestionID, rec.RawAnswer,
		rec.IsCorrect, rec.MarksAwarded, rec.TimeSpentSeconds,
	)
	if err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}
