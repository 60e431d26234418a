package exam

import (
	"context"

	"github.com/google/uuid"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// QuestionSource provides questions for a session. Implementations load
// from the question bank and return canonical, already-normalized questions.
type QuestionSource interface {
	// QuestionsForSubject returns up to count questions for subjectCode.
	QuestionsForSubject(ctx context.Context, subjectCode string, count int) ([]model.Question, error)
	// SubjectCodes returns subjects that have at least one question.
	SubjectCodes(ctx context.Context) ([]string, error)
}

// SessionStore durably persists the session record. The session record is
// written exactly once at finalize time; SubmitSession must be idempotent
// on the session id so a retry after a partial failure cannot
// double-complete an attempt.
type SessionStore interface {
	CreateSession(ctx context.Context, subject string, totalQuestions int) (uuid.UUID, error)
	SubmitSession(ctx context.Context, sessionID uuid.UUID, sub model.Submission) error
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error
}

// AnswerSink persists individual answers, idempotent on
// (session id, question id). Calls are best-effort: the in-memory answer
// store stays authoritative and every answer is re-sent at finalize time.
type AnswerSink interface {
	UpsertAnswer(ctx context.Context, rec model.AnswerUpsert) error
}

// ResultPresenter is the read-only consumer of a finalized attempt. It has
// no write-back contract into the runtime.
type ResultPresenter interface {
	Present(ctx context.Context, outcome model.SessionOutcome) error
}
