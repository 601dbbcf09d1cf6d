package codec

import (
	"strings"

	"github.com/stemsi/exstem-portal/internal/model"
)

// IsOptionCorrect reports whether option idx (zero-based) is a correct option
// of q.
//
// NOTE: single-choice correct answers are encoded 1-based by the remote
// service while given answers are 0-based, hence idx+1. This asymmetry is
// kept until the service contract says otherwise.
func IsOptionCorrect(q *model.Question, idx int) bool {
	switch q.Type.Group() {
	case model.GroupMultiFlag:
		if idx < 0 || idx >= model.MaxOptions {
			return false
		}
		return DecodeMultiFlag(q.Answer)[idx] == 1
	case model.GroupSingleChoice:
		correct, ok := DecodeSingleChoice(q.Answer)
		return ok && idx+1 == correct
	default:
		return false
	}
}

// IsOptionSelected reports whether the student marked option idx true (multi-flag)
// or chose it (single-choice).
func IsOptionSelected(q *model.AnswerSheetQuestion, idx int) bool {
	switch q.Type.Group() {
	case model.GroupMultiFlag:
		if idx < 0 || idx >= model.MaxOptions {
			return false
		}
		return DecodeMultiFlag(q.GivenAnswer)[idx] == 1
	case model.GroupSingleChoice:
		given, ok := DecodeSingleChoice(q.GivenAnswer)
		return ok && given == idx
	default:
		return false
	}
}

// Status classifies a reviewed question.
func Status(q *model.AnswerSheetQuestion) model.AnswerStatus {
	switch q.Type.Group() {
	case model.GroupMultiFlag:
		given := DecodeMultiFlag(q.GivenAnswer)
		attempted := false
		for _, v := range given {
			if v != 0 {
				attempted = true
				break
			}
		}
		if !attempted {
			return model.AnswerStatusUnattempted
		}
		if given == DecodeMultiFlag(q.Answer) {
			return model.AnswerStatusCorrect
		}
		return model.AnswerStatusIncorrect
	case model.GroupSingleChoice:
		given, ok := DecodeSingleChoice(q.GivenAnswer)
		if !ok {
			return model.AnswerStatusUnattempted
		}
		if IsOptionCorrect(&q.Question, given) {
			return model.AnswerStatusCorrect
		}
		return model.AnswerStatusIncorrect
	default:
		return model.AnswerStatusUnattempted
	}
}

// Review decodes a whole answer sheet.
func Review(sheet *model.AnswerSheet) model.Review {
	out := model.Review{
		Date:      sheet.Date,
		Syllabus:  sheet.Syllabus,
		Questions: make([]model.ReviewedQuestion, 0, len(sheet.Questions)),
	}

	for i := range sheet.Questions {
		q := &sheet.Questions[i]
		status := Status(q)

		rq := model.ReviewedQuestion{
			ID:          q.ID,
			Number:      i + 1,
			Type:        q.Type,
			Text:        q.Text,
			Status:      status,
			Explanation: q.Explanation,
		}
		for idx, text := range q.OptionSlots() {
			if strings.TrimSpace(text) == "" {
				continue
			}
			rq.Options = append(rq.Options, model.ReviewedOption{
				Index:    idx,
				Letter:   string(rune('A' + idx)),
				Text:     text,
				Correct:  IsOptionCorrect(&q.Question, idx),
				Selected: IsOptionSelected(q, idx),
			})
		}
		out.Questions = append(out.Questions, rq)

		switch status {
		case model.AnswerStatusCorrect:
			out.Stats.Attempted++
			out.Stats.Correct++
		case model.AnswerStatusIncorrect:
			out.Stats.Attempted++
			out.Stats.Incorrect++
		default:
			out.Stats.Unattempted++
		}
	}
	return out
}
