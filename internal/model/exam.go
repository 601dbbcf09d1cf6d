package model

// ExamPayload is a question set fetched from the remote exam service.
// It is immutable for the lifetime of a session.
type ExamPayload struct {
	QuestionSetID int64      `json:"question_id"`
	Questions     []Question `json:"question_sheet"`
	ExamTime      int        `json:"examtime"`
	Syllabus      string     `json:"syllabus,omitempty"`
	StartTime     string     `json:"start_time,omitempty"`
	EndTime       string     `json:"end_time,omitempty"`
}

// QuestionByID looks up a question of the payload.
func (p *ExamPayload) QuestionByID(id int64) (*Question, bool) {
	for i := range p.Questions {
		if p.Questions[i].ID == id {
			return &p.Questions[i], true
		}
	}
	return nil, false
}
