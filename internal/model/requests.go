package model

// LoadExamRequest is the payload for loading a question set into the session.
type LoadExamRequest struct {
	QuestionSetID int64 `json:"question_id" binding:"required,min=1"`
}

// SetAnswerRequest is the payload for answering one question. Marks is used
// by multi-flag questions (null unsets an option), Choice by single-choice
// questions (-1 clears the selection). Type, when sent, must match the
// question's type.
type SetAnswerRequest struct {
	Type   QuestionType  `json:"type" binding:"omitempty,qtype"`
	Marks  map[int]*bool `json:"marks" binding:"omitempty,dive,keys,min=0,max=4,endkeys"`
	Choice *int          `json:"choice" binding:"omitempty,min=-1,max=4"`
}

// SubmitExamRequest is the payload for submitting the exam from the UI.
type SubmitExamRequest struct {
	Reason string `json:"reason" binding:"omitempty,submit_reason"`
}

// CreateSessionRequest exchanges a remote API token for a portal token.
type CreateSessionRequest struct {
	RemoteToken string `json:"remote_token" binding:"required,min=8,max=2048"`
	StudentID   string `json:"student_id" binding:"required,max=64"`
}
