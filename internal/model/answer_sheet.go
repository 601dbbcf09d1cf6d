package model

// AnswerSheet is a graded attempt returned by the remote service for review.
type AnswerSheet struct {
	Date      string                `json:"date,omitempty"`
	Syllabus  string                `json:"syllabus,omitempty"`
	Questions []AnswerSheetQuestion `json:"question_sheet"`
}

// AnswerSheetQuestion is a question with the student's encoded answer.
// The embedded Answer field holds the correct-answer encoding.
type AnswerSheetQuestion struct {
	Question
	GivenAnswer string `json:"given_answer"`
}

// AnswerStatus classifies a reviewed question.
type AnswerStatus string

const (
	AnswerStatusCorrect     AnswerStatus = "correct"
	AnswerStatusIncorrect   AnswerStatus = "incorrect"
	AnswerStatusUnattempted AnswerStatus = "unattempted"
)

// ReviewedOption is one option of a reviewed question.
type ReviewedOption struct {
	Index    int    `json:"index"`
	Letter   string `json:"letter"`
	Text     string `json:"text"`
	Correct  bool   `json:"correct"`
	Selected bool   `json:"selected"`
}

// ReviewedQuestion is one decoded question of an answer sheet.
type ReviewedQuestion struct {
	ID          int64            `json:"id"`
	Number      int              `json:"number"`
	Type        QuestionType     `json:"type"`
	Text        string           `json:"question"`
	Status      AnswerStatus     `json:"status"`
	Options     []ReviewedOption `json:"options"`
	Explanation string           `json:"explanation,omitempty"`
}

// ReviewStats aggregates statuses over an answer sheet.
type ReviewStats struct {
	Attempted   int `json:"attempted"`
	Correct     int `json:"correct"`
	Incorrect   int `json:"incorrect"`
	Unattempted int `json:"unattempted"`
}

// Review is a decoded answer sheet.
type Review struct {
	Date      string             `json:"date,omitempty"`
	Syllabus  string             `json:"syllabus,omitempty"`
	Questions []ReviewedQuestion `json:"questions"`
	Stats     ReviewStats        `json:"stats"`
}
