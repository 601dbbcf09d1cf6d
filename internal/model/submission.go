package model

import "time"

// AnswerEntry is one question's encoded answer as sent to the remote service.
type AnswerEntry struct {
	QuestionID int64        `json:"q"`
	Type       QuestionType `json:"t"`
	Answer     string       `json:"a"`
}

// SubmissionRequest is the body of the answer submit call.
type SubmissionRequest struct {
	QuestionSetID int64         `json:"question_id"`
	Answers       []AnswerEntry `json:"answers"`
}

// SubmissionResult is the remote service's reply to a submit.
type SubmissionResult struct {
	Error   bool   `json:"error"`
	Message string `json:"message,omitempty"`
}

// SubmitReason records what triggered a submission.
type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
	SubmitForced  SubmitReason = "forced"
)

// SubmissionSummary counts answered questions per group.
type SubmissionSummary struct {
	SingleChoiceAnswered int `json:"single_choice_answered"`
	SingleChoiceTotal    int `json:"single_choice_total"`
	MultiFlagAnswered    int `json:"multi_flag_answered"`
	MultiFlagTotal       int `json:"multi_flag_total"`
	TotalAnswered        int `json:"total_answered"`
	TotalQuestions       int `json:"total_questions"`
}

// Receipt describes how a session was completed.
type Receipt struct {
	QuestionSetID int64             `json:"question_id"`
	Reason        SubmitReason      `json:"reason"`
	Summary       SubmissionSummary `json:"summary"`
	Result        *SubmissionResult `json:"result,omitempty"`
	Unconfirmed   bool              `json:"submission_unconfirmed"`
	CompletedAt   time.Time         `json:"completed_at"`
}
