package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType enumerates supported question formats.
type QuestionType string

const (
	// QuestionTypeMCQ is a multiple-choice question with one correct option.
	QuestionTypeMCQ QuestionType = "MCQ"
	// QuestionTypeNAT is a numerical-answer question compared by normalized
	// string equality. Wrong NAT answers carry no penalty.
	QuestionTypeNAT QuestionType = "NAT"
)

// Option is a single choice of an MCQ question in canonical form.
type Option struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Question is a single mock-test question. Immutable once loaded.
// Options is always the canonical keyed shape (choice-id -> Option);
// raw option payloads are normalized at ingestion and never re-parsed.
type Question struct {
	ID            uuid.UUID         `json:"id"`
	Subject       string            `json:"subject"`
	Text          string            `json:"text"`
	Type          QuestionType      `json:"type"`
	Options       map[string]Option `json:"options,omitempty"`
	CorrectAnswer string            `json:"correct_answer"`
	Marks         float64           `json:"marks"`
	// NegativeMarks <= 0 means the penalty was never configured; the
	// scoring engine then falls back to the marks-derived default.
	NegativeMarks float64 `json:"negative_marks"`
	Explanation   string  `json:"explanation,omitempty"`
}

// QuestionForCandidate is a question stripped of the correct answer and
// explanation, safe to send to a candidate mid-session.
type QuestionForCandidate struct {
	ID             uuid.UUID         `json:"id"`
	QuestionNumber int               `json:"question_number"`
	Subject        string            `json:"subject"`
	Text           string            `json:"text"`
	Type           QuestionType      `json:"type"`
	Options        map[string]Option `json:"options,omitempty"`
	Marks          float64           `json:"marks"`
}

// ForCandidate returns the sanitized view of q at 1-based position num.
func (q Question) ForCandidate(num int) QuestionForCandidate {
	return QuestionForCandidate{
		ID:             q.ID,
		QuestionNumber: num,
		Subject:        q.Subject,
		Text:           q.Text,
		Type:           q.Type,
		Options:        q.Options,
		Marks:          q.Marks,
	}
}

// IngestQuestionRequest is the payload for loading a question into the bank.
// Options accepts any of the legacy shapes; it is normalized on ingestion.
type IngestQuestionRequest struct {
	Subject       string          `json:"subject" binding:"required,min=1,max=100"`
	Text          string          `json:"text" binding:"required,min=1,max=5000"`
	Type          string          `json:"type" binding:"required,oneof=MCQ NAT"`
	Options       json.RawMessage `json:"options" binding:"omitempty"`
	CorrectAnswer string          `json:"correct_answer" binding:"required,max=100"`
	Marks         float64         `json:"marks" binding:"required,gt=0"`
	NegativeMarks float64         `json:"negative_marks" binding:"omitempty,gte=0"`
	Explanation   string          `json:"explanation" binding:"omitempty,max=5000"`
}

// IngestQuestionsRequest is the payload for bulk question ingestion.
type IngestQuestionsRequest struct {
	Questions []IngestQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}
