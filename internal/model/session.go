package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates mock-test session states.
type SessionStatus string

const (
	SessionStatusInitializing SessionStatus = "INITIALIZING"
	SessionStatusInProgress   SessionStatus = "IN_PROGRESS"
	SessionStatusSubmitting   SessionStatus = "SUBMITTING"
	SessionStatusCompleted    SessionStatus = "COMPLETED"
	SessionStatusError        SessionStatus = "ERROR"
)

// Session is one candidate's single timed attempt at a subject's question
// set. Mutated only by the lifecycle controller; immutable once COMPLETED.
type Session struct {
	ID                uuid.UUID     `json:"id"`
	Subject           string        `json:"subject"`
	TotalQuestions    int           `json:"total_questions"`
	Status            SessionStatus `json:"status"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           *time.Time    `json:"end_time,omitempty"`
	Score             *float64      `json:"score,omitempty"`
	Percentage        *float64      `json:"percentage,omitempty"`
	AnsweredQuestions int           `json:"answered_questions"`
	TimeTakenMinutes  *float64      `json:"time_taken_minutes,omitempty"`
}

// Submission carries the finalized attempt values persisted exactly once
// per session. The session id doubles as the idempotency key.
type Submission struct {
	EndTime          time.Time `json:"end_time"`
	AnsweredCount    int       `json:"answered_count"`
	Score            float64   `json:"score"`
	Percentage       float64   `json:"percentage"`
	TimeTakenMinutes float64   `json:"time_taken_minutes"`
}

// AnswerUpsert is one per-answer persistence row, idempotent on
// (SessionID, QuestionID). Grading fields are nil for live autosaves and
// filled in when answers are re-sent at finalize time.
type AnswerUpsert struct {
	SessionID        uuid.UUID `json:"session_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	QuestionNumber   int       `json:"question_number"`
	RawAnswer        string    `json:"raw_answer"`
	IsCorrect        *bool     `json:"is_correct,omitempty"`
	MarksAwarded     *float64  `json:"marks_awarded,omitempty"`
	TimeSpentSeconds *int      `json:"time_spent_seconds,omitempty"`
}

// CreateSessionRequest is the payload for starting a new session.
type CreateSessionRequest struct {
	Subject       string `json:"subject" binding:"required,min=1,max=100"`
	QuestionCount int    `json:"question_count" binding:"omitempty,min=1,max=200"`
}

// RecordAnswerRequest is the payload for recording an answer. An empty
// answer string is a valid recorded value; clearing is a separate call.
type RecordAnswerRequest struct {
	Answer string `json:"answer" binding:"max=100"`
}

// NavigateRequest is the payload for moving to another question.
type NavigateRequest struct {
	QuestionNumber int `json:"question_number" binding:"required,min=1"`
}
