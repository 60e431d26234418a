package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prepnest/mocktest-backend/internal/model"
	"github.com/prepnest/mocktest-backend/internal/repository"
)

// QuestionService owns the question bank: ingestion with option
// normalization, and sampling for new sessions.
type QuestionService struct {
	questions *repository.QuestionRepository
	log       zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questions: questions,
		log:       log.With().Str("component", "question_service").Logger(),
	}
}

// QuestionsForSubject returns up to count randomly sampled questions.
func (s *QuestionService) QuestionsForSubject(ctx context.Context, subjectCode string, count int) ([]model.Question, error) {
	return s.questions.QuestionsForSubject(ctx, subjectCode, count)
}

// SubjectCodes returns subjects that have at least one question.
func (s *QuestionService) SubjectCodes(ctx context.Context) ([]string, error) {
	return s.questions.SubjectCodes(ctx)
}

// Ingest normalizes and stores a batch of questions. Options arrive in any
// of the historical payload shapes and are converted to the canonical
// keyed form exactly once, here; the rest of the system never sees a raw
// option payload. The batch is all-or-nothing per question: a bad entry
// fails the request with its index so the caller can fix the payload.
func (s *QuestionService) Ingest(ctx context.Context, req model.IngestQuestionsRequest) ([]model.Question, error) {
	ingested := make([]model.Question, 0, len(req.Questions))

	for i, in := range req.Questions {
		q := model.Question{
			Subject:       in.Subject,
			Text:          in.Text,
			Type:          model.QuestionType(in.Type),
			CorrectAnswer: in.CorrectAnswer,
			Marks:         in.Marks,
			NegativeMarks: in.NegativeMarks,
			Explanation:   in.Explanation,
		}

		if len(in.Options) > 0 {
			options, err := model.NormalizeOptions(in.Options)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			q.Options = options
		}

		if q.Type == model.QuestionTypeMCQ {
			if len(q.Options) == 0 {
				return nil, fmt.Errorf("question %d: MCQ question has no options", i+1)
			}
			if _, ok := q.Options[q.CorrectAnswer]; !ok {
				return nil, fmt.Errorf("question %d: correct answer %q is not an option key", i+1, q.CorrectAnswer)
			}
		}

		if err := s.questions.Insert(ctx, &q); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
		ingested = append(ingested, q)
	}

	s.log.Info().Int("count", len(ingested)).Msg("Questions ingested")
	return ingested, nil
}
