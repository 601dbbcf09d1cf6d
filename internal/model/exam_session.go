package model

import "time"

// SessionState enumerates the exam session lifecycle states.
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateLoaded     SessionState = "loaded"
	SessionStateInProgress SessionState = "in_progress"
	SessionStateCompleted  SessionState = "completed"
)

// ClockState is the persisted part of the exam timer. Remaining time is never
// stored as authoritative; it is derived from these two fields.
type ClockState struct {
	StartedAt       time.Time `json:"exam_start_time"`
	DurationSeconds int64     `json:"original_exam_duration"`
}

// SessionSnapshot is the serialized session mirrored into the snapshot store
// so an exam attempt survives a process restart.
type SessionSnapshot struct {
	State         SessionState     `json:"state"`
	QuestionSetID int64            `json:"question_id,omitempty"`
	Payload       *ExamPayload     `json:"exam_data,omitempty"`
	Answers       map[int64]Answer `json:"selected_answers,omitempty"`
	ExamStarted   bool             `json:"exam_started"`
	ExamCompleted bool             `json:"exam_completed"`
	Clock         *ClockState      `json:"clock,omitempty"`
	TimeRemaining int64            `json:"time_remaining"`
	Receipt       *Receipt         `json:"receipt,omitempty"`
	SavedAt       time.Time        `json:"saved_at"`
}

// SessionStatus is the read-only view of a session handed to the UI.
type SessionStatus struct {
	State            SessionState       `json:"state"`
	QuestionSetID    int64              `json:"question_id,omitempty"`
	ExamStarted      bool               `json:"exam_started"`
	ExamCompleted    bool               `json:"exam_completed"`
	HasActiveExam    bool               `json:"has_active_exam"`
	TimeRemaining    int64              `json:"time_remaining"`
	TimeDisplay      string             `json:"time_display"`
	TimeRunningLow   bool               `json:"time_running_low"`
	Submitting       bool               `json:"submitting"`
	Summary          *SubmissionSummary `json:"summary,omitempty"`
	Receipt          *Receipt           `json:"receipt,omitempty"`
	LastError        string             `json:"last_error,omitempty"`
	TimeoutAttempts  int                `json:"timeout_attempts,omitempty"`
	Unconfirmed      bool               `json:"submission_unconfirmed"`
}
