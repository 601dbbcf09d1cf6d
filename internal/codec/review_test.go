package codec

import (
	"testing"

	"github.com/stemsi/exstem-portal/internal/model"
)

func TestIsOptionCorrectSingleChoiceIsOneBased(t *testing.T) {
	q := &model.Question{Type: model.QuestionTypeSingleChoice, Answer: "2"}

	if !IsOptionCorrect(q, 1) {
		t.Error("option index 1 should match 1-based correct answer 2")
	}
	if IsOptionCorrect(q, 2) {
		t.Error("option index 2 should not match 1-based correct answer 2")
	}
}

func TestStatus(t *testing.T) {
	testCases := []struct {
		name string
		q    model.AnswerSheetQuestion
		want model.AnswerStatus
	}{
		{
			name: "multi correct",
			q:    sheetQuestion(model.QuestionTypeMultiFlag, "1-2-1-2-0", "1-2-1-2-0"),
			want: model.AnswerStatusCorrect,
		},
		{
			name: "multi incorrect",
			q:    sheetQuestion(model.QuestionTypeMultiFlag, "1-2-1-2-0", "1-1-0-0-0"),
			want: model.AnswerStatusIncorrect,
		},
		{
			name: "multi unattempted",
			q:    sheetQuestion(model.QuestionTypeMultiFlagAlt, "1-2-1-2-0", "0-0-0-0-0"),
			want: model.AnswerStatusUnattempted,
		},
		{
			name: "single correct",
			q:    sheetQuestion(model.QuestionTypeSingleChoice, "3", "2"),
			want: model.AnswerStatusCorrect,
		},
		{
			name: "single incorrect",
			q:    sheetQuestion(model.QuestionTypeSingleChoiceAlt, "3", "3"),
			want: model.AnswerStatusIncorrect,
		},
		{
			name: "single unattempted",
			q:    sheetQuestion(model.QuestionTypeSingleChoice, "3", "-1"),
			want: model.AnswerStatusUnattempted,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(&tc.q); got != tc.want {
				t.Errorf("Status() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestReview(t *testing.T) {
	multi := sheetQuestion(model.QuestionTypeMultiFlag, "1-2-1-0-0", "1-1-0-0-0")
	multi.Option1, multi.Option2, multi.Option3 = "a", "b", "c"
	single := sheetQuestion(model.QuestionTypeSingleChoice, "1", "0")
	single.Option1, single.Option2 = "yes", " "
	blank := sheetQuestion(model.QuestionTypeSingleChoice, "1", "-1")

	review := Review(&model.AnswerSheet{
		Syllabus:  "Anatomy",
		Questions: []model.AnswerSheetQuestion{multi, single, blank},
	})

	if len(review.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(review.Questions))
	}
	if got := len(review.Questions[0].Options); got != 3 {
		t.Errorf("expected 3 options on multi question, got %d", got)
	}
	if got := len(review.Questions[1].Options); got != 1 {
		t.Errorf("blank options should be dropped, got %d", got)
	}

	opt := review.Questions[0].Options[1]
	if opt.Letter != "B" || opt.Correct || !opt.Selected {
		t.Errorf("unexpected option B: %+v", opt)
	}
	if !review.Questions[1].Options[0].Correct || !review.Questions[1].Options[0].Selected {
		t.Errorf("single choice option A should be correct and selected: %+v", review.Questions[1].Options[0])
	}

	want := model.ReviewStats{Attempted: 2, Correct: 1, Incorrect: 1, Unattempted: 1}
	if review.Stats != want {
		t.Errorf("Stats = %+v, want %+v", review.Stats, want)
	}
	if review.Questions[2].Number != 3 {
		t.Errorf("expected numbering from 1, got %d", review.Questions[2].Number)
	}
}

func sheetQuestion(t model.QuestionType, correct, given string) model.AnswerSheetQuestion {
	return model.AnswerSheetQuestion{
		Question:    model.Question{Type: t, Answer: correct},
		GivenAnswer: given,
	}
}
