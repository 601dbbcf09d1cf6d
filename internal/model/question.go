package model

import "strings"

// QuestionType is the remote service's type code for a question.
type QuestionType string

const (
	QuestionTypeMultiFlag       QuestionType = "1"
	QuestionTypeSingleChoice    QuestionType = "2"
	QuestionTypeMultiFlagAlt    QuestionType = "3"
	QuestionTypeSingleChoiceAlt QuestionType = "4"
)

// MaxOptions is the number of option slots a question can carry.
const MaxOptions = 5

// AnswerGroup classifies question types by how they are answered.
type AnswerGroup string

const (
	GroupUnknown      AnswerGroup = ""
	GroupMultiFlag    AnswerGroup = "multi_flag"
	GroupSingleChoice AnswerGroup = "single_choice"
)

// Group returns the behavioral group of the type code.
func (t QuestionType) Group() AnswerGroup {
	switch t {
	case QuestionTypeMultiFlag, QuestionTypeMultiFlagAlt:
		return GroupMultiFlag
	case QuestionTypeSingleChoice, QuestionTypeSingleChoiceAlt:
		return GroupSingleChoice
	default:
		return GroupUnknown
	}
}

// Valid reports whether t is one of the four known type codes.
func (t QuestionType) Valid() bool {
	return t.Group() != GroupUnknown
}

// Question is a single question of an exam payload, as served by the remote API.
type Question struct {
	ID          int64        `json:"id"`
	Type        QuestionType `json:"type"`
	Text        string       `json:"question"`
	Option1     string       `json:"option1,omitempty"`
	Option2     string       `json:"option2,omitempty"`
	Option3     string       `json:"option3,omitempty"`
	Option4     string       `json:"option4,omitempty"`
	Option5     string       `json:"option5,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	Explanation string       `json:"explaination,omitempty"`
}

// OptionSlots returns all five option slots in order, empty where absent.
func (q *Question) OptionSlots() [MaxOptions]string {
	return [MaxOptions]string{q.Option1, q.Option2, q.Option3, q.Option4, q.Option5}
}

// Options returns the non-blank options in slot order.
func (q *Question) Options() []string {
	slots := q.OptionSlots()
	opts := make([]string, 0, MaxOptions)
	for _, o := range slots {
		if strings.TrimSpace(o) != "" {
			opts = append(opts, o)
		}
	}
	return opts
}
