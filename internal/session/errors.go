package session

import (
	"errors"
	"fmt"

	"github.com/stemsi/exstem-portal/internal/model"
)

// Session errors.
var (
	ErrNoExamLoaded    = errors.New("no exam loaded")
	ErrNotInProgress   = errors.New("exam is not in progress")
	ErrExamActive      = errors.New("another exam is in progress")
	ErrExamCompleted   = errors.New("exam already completed, reset the session first")
	ErrNoDuration      = errors.New("exam payload has no duration")
	ErrUnknownQuestion = errors.New("question is not part of the loaded exam")
	ErrAnswerMismatch  = errors.New("answer does not match the question type")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
	ErrStaleResponse   = errors.New("session was reset while the request was in flight")
)

// FetchError reports a failed question set retrieval. Load may be retried.
type FetchError struct {
	QuestionSetID int64
	Err           error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch question set %d: %v", e.QuestionSetID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SubmissionError reports a failed submit. The session stays in progress with
// its answers intact unless the timeout retry budget ran out.
type SubmissionError struct {
	QuestionSetID int64
	Reason        model.SubmitReason
	// Attempt counts failed timeout submissions; zero for other reasons.
	Attempt int
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit question set %d (%s): %v", e.QuestionSetID, e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }
