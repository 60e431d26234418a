package exam

import (
	"math"
	"strings"

	"github.com/prepnest/mocktest-backend/internal/model"
)

// ScoreAttempt grades an attempt. It is a pure function: identical inputs
// always produce an identical ResultSet, so a finalize retry can never
// disagree with the attempt it repeats.
//
// answers is keyed by 1-based question position. A missing entry and an
// entry that trims to "" both count as unanswered. Wrong MCQ answers
// subtract the question's negative marks; when the penalty was never
// configured the fallback is a third of the marks for one-mark questions
// and two thirds otherwise. Wrong NAT answers carry no penalty.
func ScoreAttempt(questions []model.Question, answers map[int]string) model.ResultSet {
	res := model.ResultSet{
		SubjectWiseAnalysis: make(map[string]model.SubjectAnalysis, 4),
	}

	var score float64
	for i, q := range questions {
		num := i + 1
		res.MaxScore += q.Marks

		sub := res.SubjectWiseAnalysis[q.Subject]
		sub.Total++

		candidate := strings.TrimSpace(answers[num])
		correct := strings.TrimSpace(q.CorrectAnswer)

		switch {
		case candidate == "":
			res.Unanswered++
			sub.Unanswered++
		case candidate == correct:
			res.CorrectAnswers++
			sub.Correct++
			score += q.Marks
			sub.Score += q.Marks
		default:
			res.WrongAnswers++
			sub.Wrong++
			if q.Type == model.QuestionTypeMCQ {
				p := penalty(q)
				score -= p
				sub.Score -= p
			}
		}

		res.SubjectWiseAnalysis[q.Subject] = sub
	}

	for subject, sub := range res.SubjectWiseAnalysis {
		sub.Score = round2(sub.Score)
		res.SubjectWiseAnalysis[subject] = sub
	}

	if score < 0 {
		score = 0
	}
	res.Score = round2(score)
	if res.MaxScore > 0 {
		res.Percentage = int(math.Round(res.Score / res.MaxScore * 100))
	}
	return res
}

// penalty returns the marks deducted for a wrong MCQ answer.
func penalty(q model.Question) float64 {
	if q.NegativeMarks > 0 && !math.IsNaN(q.NegativeMarks) {
		return q.NegativeMarks
	}
	if q.Marks == 1 {
		return q.Marks / 3
	}
	return 2 * q.Marks / 3
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
