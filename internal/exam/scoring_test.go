package exam

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/prepnest/mocktest-backend/internal/model"
)

func mcq(subject, correct string, marks, negative float64) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Subject:       subject,
		Text:          "q",
		Type:          model.QuestionTypeMCQ,
		CorrectAnswer: correct,
		Marks:         marks,
		NegativeMarks: negative,
	}
}

func nat(subject, correct string, marks float64) model.Question {
	return model.Question{
		ID:            uuid.New(),
		Subject:       subject,
		Text:          "q",
		Type:          model.QuestionTypeNAT,
		CorrectAnswer: correct,
		Marks:         marks,
	}
}

func TestScoreFiveMCQWithNegativeMarking(t *testing.T) {
	questions := []model.Question{
		mcq("EC", "A", 1, 0.33),
		mcq("EC", "B", 1, 0.33),
		mcq("EC", "C", 1, 0.33),
		mcq("EC", "D", 1, 0.33),
		mcq("EC", "A", 1, 0.33),
	}
	answers := map[int]string{
		1: "A", // correct
		2: "B", // correct
		3: "D", // wrong
	}

	res := ScoreAttempt(questions, answers)

	if res.CorrectAnswers != 2 || res.WrongAnswers != 1 || res.Unanswered != 2 {
		t.Fatalf("partition = %d/%d/%d, want 2/1/2",
			res.CorrectAnswers, res.WrongAnswers, res.Unanswered)
	}
	if res.Score != 1.67 {
		t.Fatalf("score = %v, want 1.67", res.Score)
	}
	if res.MaxScore != 5 {
		t.Fatalf("max score = %v, want 5", res.MaxScore)
	}
	if res.Percentage != 33 {
		t.Fatalf("percentage = %d, want 33", res.Percentage)
	}
}

func TestScoreWrongNATHasNoPenalty(t *testing.T) {
	questions := []model.Question{nat("EC", "14", 2)}
	answers := map[int]string{1: "15"}

	res := ScoreAttempt(questions, answers)

	if res.WrongAnswers != 1 {
		t.Fatalf("wrong = %d, want 1", res.WrongAnswers)
	}
	if res.Score != 0 {
		t.Fatalf("score = %v, want 0 (NAT carries no penalty)", res.Score)
	}
}

func TestScoreNegativeMarkFallback(t *testing.T) {
	cases := []struct {
		marks float64
		want  float64 // expected score after one wrong answer + one correct 3-mark anchor
	}{
		{1, 3 - 1.0/3},   // fallback 1/3 of marks
		{2, 3 - 4.0/3},   // fallback 2/3 of marks
		{1.5, 3 - 1.0},   // fallback 2/3 of 1.5
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("marks=%v", tc.marks), func(t *testing.T) {
			questions := []model.Question{
				mcq("ME", "A", 3, 1), // answered correctly to stay above the floor
				mcq("ME", "A", tc.marks, 0),
			}
			answers := map[int]string{1: "A", 2: "B"}

			res := ScoreAttempt(questions, answers)
			want := round2(tc.want)
			if res.Score != want {
				t.Fatalf("score = %v, want %v", res.Score, want)
			}
		})
	}
}

func TestScoreFlooredAtZero(t *testing.T) {
	questions := []model.Question{
		mcq("CS", "A", 1, 2),
		mcq("CS", "A", 1, 2),
	}
	answers := map[int]string{1: "B", 2: "C"}

	res := ScoreAttempt(questions, answers)
	if res.Score != 0 {
		t.Fatalf("score = %v, want 0 (floored)", res.Score)
	}
	if res.Percentage != 0 {
		t.Fatalf("percentage = %d, want 0", res.Percentage)
	}
}

func TestScorePartitionInvariant(t *testing.T) {
	questions := []model.Question{
		mcq("CS", "A", 1, 0.33),
		mcq("CS", "B", 2, 0),
		nat("MA", "7", 2),
		nat("MA", "0.5", 1),
		mcq("GA", "C", 1, 0.33),
	}
	answerSets := []map[int]string{
		{},
		{1: "A"},
		{1: "A", 2: "X", 3: "7", 4: "", 5: "   "},
		{1: "B", 2: "B", 3: "8", 4: "0.5", 5: "C"},
	}

	for i, answers := range answerSets {
		res := ScoreAttempt(questions, answers)
		if got := res.CorrectAnswers + res.WrongAnswers + res.Unanswered; got != len(questions) {
			t.Fatalf("set %d: partition sums to %d, want %d", i, got, len(questions))
		}
	}
}

func TestScoreTrimsBothSides(t *testing.T) {
	questions := []model.Question{nat("MA", " 14 ", 2)}
	answers := map[int]string{1: "14  "}

	res := ScoreAttempt(questions, answers)
	if res.CorrectAnswers != 1 {
		t.Fatal("trim-normalized equality not applied to both sides")
	}
}

func TestScoreSubjectWiseAnalysis(t *testing.T) {
	questions := []model.Question{
		mcq("EC", "A", 1, 0.33),
		mcq("EC", "B", 1, 0.33),
		nat("MA", "3", 2),
	}
	answers := map[int]string{1: "A", 2: "C", 3: "3"}

	res := ScoreAttempt(questions, answers)

	ec := res.SubjectWiseAnalysis["EC"]
	if ec.Total != 2 || ec.Correct != 1 || ec.Wrong != 1 || ec.Unanswered != 0 {
		t.Fatalf("EC analysis = %+v", ec)
	}
	if ec.Score != 0.67 {
		t.Fatalf("EC score = %v, want 0.67", ec.Score)
	}

	ma := res.SubjectWiseAnalysis["MA"]
	if ma.Total != 1 || ma.Correct != 1 || ma.Score != 2 {
		t.Fatalf("MA analysis = %+v", ma)
	}
}

func TestScoreDeterministic(t *testing.T) {
	questions := []model.Question{
		mcq("EC", "A", 1, 0.33),
		mcq("CS", "B", 2, 0),
		nat("MA", "7", 2),
	}
	answers := map[int]string{1: "B", 2: "B", 3: "6"}

	first := ScoreAttempt(questions, answers)
	second := ScoreAttempt(questions, answers)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}
