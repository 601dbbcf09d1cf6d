package websocket

import "github.com/stemsi/exstem-portal/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer Action = "answer"
	ActionSubmit Action = "submit"
	ActionPing   Action = "ping"
)

// RequestPayload is any client message; fields are used per action.
type RequestPayload struct {
	Action     Action             `json:"action"`
	QuestionID int64              `json:"question_id,omitempty"`
	Type       model.QuestionType `json:"type,omitempty"`
	Marks      map[int]*bool      `json:"marks,omitempty"`
	Choice     *int               `json:"choice,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState     Event = "state"
	EventAck       Event = "ack"
	EventCompleted Event = "completed"
	EventError     Event = "error"
	EventPong      Event = "pong"
)

// StateResponse carries the session status, pushed every tick.
type StateResponse struct {
	Event  Event               `json:"event"`
	Status model.SessionStatus `json:"status"`
}

// AckResponse confirms a saved answer.
type AckResponse struct {
	Event      Event `json:"event"`
	QuestionID int64 `json:"question_id"`
}

// CompletedResponse is sent once a submission completes the exam.
type CompletedResponse struct {
	Event   Event          `json:"event"`
	Receipt *model.Receipt `json:"receipt"`
	Error   string         `json:"error,omitempty"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
