package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// QuestionRepository handles question bank data access. Options are stored
// in their canonical keyed shape; rows never carry legacy option formats.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// QuestionsForSubject returns up to count questions for a subject. Rows
// are sampled randomly so repeated attempts see varied papers.
func (r *QuestionRepository) QuestionsForSubject(ctx context.Context, subjectCode string, count int) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, subject, text, type, options, correct_answer,
		        marks, negative_marks, explanation
		 FROM questions
		 WHERE subject = $1
		 ORDER BY random()
		 LIMIT $2`, subjectCode, count,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var options []byte
		if err := rows.Scan(&q.ID, &q.Subject, &q.Text, &q.Type, &options,
			&q.CorrectAnswer, &q.Marks, &q.NegativeMarks, &q.Explanation); err != nil {
			return nil, err
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// SubjectCodes returns subjects that have at least one question.
func (r *QuestionRepository) SubjectCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT subject FROM questions GROUP BY subject ORDER BY subject`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

// Insert stores a question with already-normalized options.
func (r *QuestionRepository) Insert(ctx context.Context, q *model.Question) error {
	var options []byte
	if q.Options != nil {
		var err error
		options, err = json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("encode options: %w", err)
		}
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (subject, text, type, options, correct_answer,
		                        marks, negative_marks, explanation)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		q.Subject, q.Text, q.Type, options, q.CorrectAnswer,
		q.Marks, q.NegativeMarks, q.Explanation,
	).Scan(&q.ID)
}
