package model

import (
	"time"

	"github.com/google/uuid"
)

// SubjectAnalysis is the per-subject slice of a result.
type SubjectAnalysis struct {
	Total      int     `json:"total"`
	Correct    int     `json:"correct"`
	Wrong      int     `json:"wrong"`
	Unanswered int     `json:"unanswered"`
	Score      float64 `json:"score"`
}

// ResultSet is the computed scoring summary for a session. It is produced
// once per finalize attempt and is a pure function of the question list
// and the answer map.
type ResultSet struct {
	Score               float64                    `json:"score"`
	MaxScore            float64                    `json:"max_score"`
	Percentage          int                        `json:"percentage"`
	CorrectAnswers      int                        `json:"correct_answers"`
	WrongAnswers        int                        `json:"wrong_answers"`
	Unanswered          int                        `json:"unanswered"`
	SubjectWiseAnalysis map[string]SubjectAnalysis `json:"subject_wise_analysis"`
}

// TimeEntry records cumulative seconds spent on one question.
type TimeEntry struct {
	QuestionNumber   int `json:"question_number"`
	TimeSpentSeconds int `json:"time_spent_seconds"`
}

// SessionOutcome bundles everything the results page needs: the computed
// result, the raw questions (with answers and explanations, now that the
// attempt is over), the candidate's raw answers, and the time ledger.
type SessionOutcome struct {
	SessionID   uuid.UUID      `json:"session_id"`
	Subject     string         `json:"subject"`
	Result      ResultSet      `json:"result"`
	Questions   []Question     `json:"questions"`
	Answers     map[int]string `json:"answers"`
	TimeSpent   []TimeEntry    `json:"time_spent"`
	CompletedAt time.Time      `json:"completed_at"`
}
