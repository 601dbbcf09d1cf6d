package model

// Mark is the state of one option of a multi-flag question.
type Mark uint8

const (
	MarkUnset Mark = iota
	MarkTrue
	MarkFalse
)

// Answer is the in-memory answer to one question. Group selects which of
// Marks or Choice is meaningful; the other is ignored.
type Answer struct {
	Group  AnswerGroup  `json:"group"`
	Marks  map[int]Mark `json:"marks,omitempty"`
	Choice *int         `json:"choice,omitempty"`
}

// MultiFlagAnswer builds a multi-flag answer from option marks.
func MultiFlagAnswer(marks map[int]Mark) Answer {
	return Answer{Group: GroupMultiFlag, Marks: marks}
}

// SingleChoiceAnswer builds a single-choice answer selecting option idx.
// A negative idx clears the selection.
func SingleChoiceAnswer(idx int) Answer {
	if idx < 0 {
		return Answer{Group: GroupSingleChoice}
	}
	return Answer{Group: GroupSingleChoice, Choice: &idx}
}

// Answered reports whether the answer carries any user input.
func (a Answer) Answered() bool {
	switch a.Group {
	case GroupMultiFlag:
		for _, m := range a.Marks {
			if m == MarkTrue || m == MarkFalse {
				return true
			}
		}
		return false
	case GroupSingleChoice:
		return a.Choice != nil && *a.Choice >= 0
	default:
		return false
	}
}

// Merge applies update on top of a and returns the result. Multi-flag
// updates are merged per option, MarkUnset removing the option; single-choice
// updates replace the selection. An update of an unknown group leaves a as is.
func (a Answer) Merge(update Answer) Answer {
	switch update.Group {
	case GroupMultiFlag:
		marks := make(map[int]Mark, len(a.Marks)+len(update.Marks))
		if a.Group == GroupMultiFlag {
			for k, v := range a.Marks {
				marks[k] = v
			}
		}
		for k, v := range update.Marks {
			if v == MarkUnset {
				delete(marks, k)
				continue
			}
			marks[k] = v
		}
		return Answer{Group: GroupMultiFlag, Marks: marks}
	case GroupSingleChoice:
		return SingleChoiceAnswer(update.choice())
	default:
		return a
	}
}

func (a Answer) choice() int {
	if a.Choice == nil {
		return -1
	}
	return *a.Choice
}
