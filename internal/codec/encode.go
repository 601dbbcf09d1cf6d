// Package codec converts answers between their in-memory form and the compact
// strings the remote exam service speaks.
//
// Multi-flag questions encode as five dash-joined tokens, one per option slot:
// "1" marked true, "2" marked false, "0" untouched. Single-choice questions
// encode as the zero-based option index, or "-1" when nothing is chosen.
// Unknown question types encode as the empty string. Encoding never fails.
package codec

import (
	"strconv"
	"strings"

	"github.com/stemsi/exstem-portal/internal/model"
)

const (
	TokenUntouched = "0"
	TokenTrue      = "1"
	TokenFalse     = "2"

	// Unanswered is the single-choice encoding of "no option chosen".
	Unanswered = "-1"

	Separator = "-"
)

// Encode returns the wire form of a for a question of type t. An answer whose
// group does not match the type is treated as unanswered.
func Encode(t model.QuestionType, a model.Answer) string {
	switch t.Group() {
	case model.GroupMultiFlag:
		return encodeMultiFlag(a)
	case model.GroupSingleChoice:
		return encodeSingleChoice(a)
	default:
		return ""
	}
}

func encodeMultiFlag(a model.Answer) string {
	tokens := [model.MaxOptions]string{}
	for i := range tokens {
		tokens[i] = TokenUntouched
	}
	if a.Group == model.GroupMultiFlag {
		for idx, m := range a.Marks {
			if idx < 0 || idx >= model.MaxOptions {
				continue
			}
			switch m {
			case model.MarkTrue:
				tokens[idx] = TokenTrue
			case model.MarkFalse:
				tokens[idx] = TokenFalse
			}
		}
	}
	return strings.Join(tokens[:], Separator)
}

func encodeSingleChoice(a model.Answer) string {
	if a.Group != model.GroupSingleChoice || a.Choice == nil || *a.Choice < 0 {
		return Unanswered
	}
	return strconv.Itoa(*a.Choice)
}

// EncodeAll builds the submission list: exactly one entry per question, in
// payload order, whether or not the question was answered.
func EncodeAll(questions []model.Question, answers map[int64]model.Answer) []model.AnswerEntry {
	entries := make([]model.AnswerEntry, 0, len(questions))
	for _, q := range questions {
		entries = append(entries, model.AnswerEntry{
			QuestionID: q.ID,
			Type:       q.Type,
			Answer:     Encode(q.Type, answers[q.ID]),
		})
	}
	return entries
}

// Summarize counts answered questions per group.
func Summarize(questions []model.Question, answers map[int64]model.Answer) model.SubmissionSummary {
	var s model.SubmissionSummary
	for _, q := range questions {
		a, ok := answers[q.ID]
		answered := ok && a.Group == q.Type.Group() && a.Answered()

		switch q.Type.Group() {
		case model.GroupMultiFlag:
			s.MultiFlagTotal++
			if answered {
				s.MultiFlagAnswered++
			}
		case model.GroupSingleChoice:
			s.SingleChoiceTotal++
			if answered {
				s.SingleChoiceAnswered++
			}
		}
	}
	s.TotalAnswered = s.MultiFlagAnswered + s.SingleChoiceAnswered
	s.TotalQuestions = s.MultiFlagTotal + s.SingleChoiceTotal
	return s
}
