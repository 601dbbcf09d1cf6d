package codec

import (
	"strconv"
	"strings"

	"github.com/stemsi/exstem-portal/internal/model"
)

// DecodeMultiFlag splits a multi-flag string into its five slot values.
// Missing or malformed slots decode as 0.
func DecodeMultiFlag(s string) [model.MaxOptions]int {
	var out [model.MaxOptions]int
	if s == "" {
		return out
	}
	for i, part := range strings.Split(s, Separator) {
		if i >= model.MaxOptions {
			break
		}
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		out[i] = n
	}
	return out
}

// DecodeSingleChoice parses a single-choice string. It returns false when the
// string is malformed or encodes "unanswered".
func DecodeSingleChoice(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return -1, false
	}
	return n, true
}

// Decode rebuilds an Answer from its wire form.
func Decode(t model.QuestionType, s string) model.Answer {
	switch t.Group() {
	case model.GroupMultiFlag:
		marks := make(map[int]model.Mark)
		for i, v := range DecodeMultiFlag(s) {
			switch strconv.Itoa(v) {
			case TokenTrue:
				marks[i] = model.MarkTrue
			case TokenFalse:
				marks[i] = model.MarkFalse
			}
		}
		return model.MultiFlagAnswer(marks)
	case model.GroupSingleChoice:
		idx, _ := DecodeSingleChoice(s)
		return model.SingleChoiceAnswer(idx)
	default:
		return model.Answer{}
	}
}
