// Package session implements the client-side lifecycle of one timed exam
// attempt: idle -> loaded -> in_progress -> completed, with Reset returning
// to idle from any state.
//
// All mutation is serialized by the session mutex. Remote calls run outside
// the lock and are tagged with the attempt id current when they started; a
// response that comes back after Reset changed the attempt id is discarded.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/codec"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/timer"
)

// DefaultRetryBudget is the number of failed timeout submissions tolerated
// before the session is completed locally as unconfirmed.
const DefaultRetryBudget = 3

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the wall clock.
func WithClock(c timer.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithRetryBudget sets the timeout auto-submit retry budget.
func WithRetryBudget(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.retryBudget = n
		}
	}
}

// WithReceiptSink forwards completion receipts to sink.
func WithReceiptSink(sink ReceiptSink) Option {
	return func(s *Session) { s.receipts = sink }
}

// Session owns the exam payload, answer state, clock and lifecycle flags of
// one exam attempt.
type Session struct {
	mu sync.Mutex

	remote      RemoteService
	store       SnapshotStore
	receipts    ReceiptSink
	clock       timer.Clock
	log         zerolog.Logger
	retryBudget int

	timer           *timer.Timer
	attemptID       uuid.UUID
	state           model.SessionState
	questionSetID   int64
	payload         *model.ExamPayload
	answers         map[int64]model.Answer
	submitting      bool
	timeoutAttempts int
	receipt         *model.Receipt
	lastErr         string
	rehydrated      bool
}

// New creates an idle Session. store may be nil, in which case nothing is
// mirrored and no rehydration is required before ticking.
func New(remote RemoteService, store SnapshotStore, log zerolog.Logger, opts ...Option) *Session {
	s := &Session{
		remote:      remote,
		store:       store,
		clock:       timer.SystemClock{},
		log:         log.With().Str("component", "exam_session").Logger(),
		retryBudget: DefaultRetryBudget,
		attemptID:   uuid.New(),
		state:       model.SessionStateIdle,
		answers:     make(map[int64]model.Answer),
		rehydrated:  store == nil,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.timer = timer.New(s.clock)
	return s
}

// Load fetches a question set and moves the session to loaded. If the same
// question set is already loaded or in progress, the cached payload is
// returned without a fetch. The returned payload must not be modified.
func (s *Session) Load(ctx context.Context, questionSetID int64) (*model.ExamPayload, error) {
	s.mu.Lock()
	switch s.state {
	case model.SessionStateCompleted:
		s.mu.Unlock()
		return nil, ErrExamCompleted
	case model.SessionStateInProgress:
		defer s.mu.Unlock()
		if s.questionSetID == questionSetID {
			return s.payload, nil
		}
		return nil, ErrExamActive
	case model.SessionStateLoaded:
		if s.questionSetID == questionSetID && s.payload != nil {
			defer s.mu.Unlock()
			return s.payload, nil
		}
	}
	attempt := s.attemptID
	s.mu.Unlock()

	payload, err := s.remote.FetchQuestionSet(ctx, questionSetID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attemptID != attempt {
		s.log.Warn().Int64("question_id", questionSetID).Msg("Discarding fetch result of a reset session")
		return nil, ErrStaleResponse
	}
	if err != nil {
		s.lastErr = err.Error()
		s.log.Error().Err(err).Int64("question_id", questionSetID).Msg("Fetch question set failed")
		return nil, &FetchError{QuestionSetID: questionSetID, Err: err}
	}
	if s.state != model.SessionStateIdle && s.state != model.SessionStateLoaded {
		return nil, ErrExamActive
	}

	if payload.QuestionSetID == 0 {
		payload.QuestionSetID = questionSetID
	}
	s.payload = payload
	s.questionSetID = questionSetID
	s.answers = make(map[int64]model.Answer)
	s.state = model.SessionStateLoaded
	s.lastErr = ""

	s.log.Info().
		Int64("question_id", questionSetID).
		Int("questions", len(payload.Questions)).
		Int("examtime", payload.ExamTime).
		Msg("Exam loaded")

	s.persistLocked(ctx)
	return payload, nil
}

// Start starts the exam clock. Calling Start on an exam already in progress
// is a no-op and never resets the clock.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.SessionStateInProgress:
		return nil
	case model.SessionStateCompleted:
		return ErrExamCompleted
	case model.SessionStateIdle:
		return ErrNoExamLoaded
	}
	if s.payload.ExamTime <= 0 {
		return ErrNoDuration
	}

	s.timer.Start(s.payload.ExamTime)
	s.state = model.SessionStateInProgress
	s.timeoutAttempts = 0

	s.log.Info().
		Int64("question_id", s.questionSetID).
		Str("attempt_id", s.attemptID.String()).
		Int("examtime", s.payload.ExamTime).
		Msg("Exam started")

	s.persistLocked(ctx)
	return nil
}

// SetAnswer merges update into the answer for questionID. It is silently
// ignored once the exam is completed.
func (s *Session) SetAnswer(ctx context.Context, questionID int64, update model.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.SessionStateCompleted {
		return nil
	}
	if s.state != model.SessionStateInProgress {
		return ErrNotInProgress
	}

	q, ok := s.payload.QuestionByID(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if update.Group == model.GroupUnknown || update.Group != q.Type.Group() {
		return ErrAnswerMismatch
	}

	s.answers[questionID] = s.answers[questionID].Merge(update)
	s.persistLocked(ctx)
	return nil
}

// Tick recomputes the remaining time and auto-submits once it reaches zero.
// The hosting application calls it on a fixed cadence. Ticks arriving before
// Rehydrate, outside in_progress, or while a submission is in flight are
// ignored. A failed auto-submit is retried on later ticks until the retry
// budget is used up, after which the session completes unconfirmed.
func (s *Session) Tick(ctx context.Context) error {
	s.mu.Lock()
	if !s.rehydrated || s.state != model.SessionStateInProgress || s.submitting {
		s.mu.Unlock()
		return nil
	}

	r, _ := s.timer.Recompute()
	if r.Skewed {
		s.log.Warn().Int64("question_id", s.questionSetID).Msg("Clock reads before exam start, elapsed clamped to zero")
	}
	s.mu.Unlock()

	if !r.Expired {
		return nil
	}

	s.log.Info().Int64("question_id", s.QuestionSetID()).Msg("Exam time is up, submitting")
	_, err := s.Submit(ctx, model.SubmitTimeout)
	if errors.Is(err, ErrStaleResponse) || errors.Is(err, ErrSubmitInFlight) || errors.Is(err, ErrNotInProgress) {
		return nil
	}
	return err
}

// Submit encodes every question of the payload, in payload order, and sends
// the list to the remote service. On success the session is completed and
// its payload, answers and clock are cleared. On failure the session stays in
// progress with its answers, except for timeout submissions that exhausted
// the retry budget: those complete locally and the unconfirmed receipt is
// returned together with the error.
func (s *Session) Submit(ctx context.Context, reason model.SubmitReason) (*model.Receipt, error) {
	s.mu.Lock()
	if s.state != model.SessionStateInProgress {
		s.mu.Unlock()
		return nil, ErrNotInProgress
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	attempt := s.attemptID
	questionSetID := s.questionSetID
	entries := codec.EncodeAll(s.payload.Questions, s.answers)
	summary := codec.Summarize(s.payload.Questions, s.answers)
	s.submitting = true
	s.mu.Unlock()

	result, err := s.remote.SubmitAnswers(ctx, questionSetID, entries)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attemptID != attempt {
		s.log.Warn().
			Int64("question_id", questionSetID).
			Str("attempt_id", attempt.String()).
			Msg("Discarding submit response of a reset session")
		return nil, ErrStaleResponse
	}
	s.submitting = false

	if err != nil {
		subErr := &SubmissionError{QuestionSetID: questionSetID, Reason: reason, Err: err}
		s.lastErr = err.Error()

		if reason != model.SubmitTimeout {
			s.log.Error().Err(err).Int64("question_id", questionSetID).Str("reason", string(reason)).Msg("Submit failed")
			return nil, subErr
		}

		s.timeoutAttempts++
		subErr.Attempt = s.timeoutAttempts
		if s.timeoutAttempts < s.retryBudget {
			s.log.Warn().Err(err).
				Int64("question_id", questionSetID).
				Int("attempt", s.timeoutAttempts).
				Int("budget", s.retryBudget).
				Msg("Auto-submit failed, will retry")
			return nil, subErr
		}

		s.log.Error().Err(err).
			Int64("question_id", questionSetID).
			Int("attempts", s.timeoutAttempts).
			Msg("Auto-submit retry budget exhausted, completing unconfirmed")
		return s.completeLocked(ctx, reason, summary, nil, true), subErr
	}

	return s.completeLocked(ctx, reason, summary, result, false), nil
}

// ForceComplete completes an in-progress exam locally without submitting.
// The receipt is flagged unconfirmed.
func (s *Session) ForceComplete(ctx context.Context) (*model.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return nil, ErrNotInProgress
	}
	summary := codec.Summarize(s.payload.Questions, s.answers)
	s.attemptID = uuid.New()
	return s.completeLocked(ctx, model.SubmitForced, summary, nil, true), nil
}

// Reset clears the session back to idle from any state. An outstanding
// fetch or submit started before Reset has its result discarded.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.attemptID = uuid.New()
	s.state = model.SessionStateIdle
	s.questionSetID = 0
	s.payload = nil
	s.answers = make(map[int64]model.Answer)
	s.timer.Clear()
	s.submitting = false
	s.timeoutAttempts = 0
	s.receipt = nil
	s.lastErr = ""

	s.log.Info().Str("from", string(prev)).Msg("Session reset")

	if s.store != nil && s.rehydrated {
		if err := s.store.ClearSnapshot(context.WithoutCancel(ctx)); err != nil {
			s.log.Warn().Err(err).Msg("Clear snapshot failed")
		}
	}
}

// HasActiveExam reports whether an exam is started, not completed, and has
// time left. The navigation guard keys off this.
func (s *Session) HasActiveExam() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.SessionStateInProgress {
		return false
	}
	r, ok := s.timer.Recompute()
	return ok && r.Remaining > 0
}

// QuestionSetID returns the id of the loaded question set, zero if none.
func (s *Session) QuestionSetID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questionSetID
}

// State returns the lifecycle state.
func (s *Session) State() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Payload returns the loaded exam payload, nil if none.
func (s *Session) Payload() *model.ExamPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.payload
}

// Answers returns a copy of the answer state.
func (s *Session) Answers() map[int64]model.Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyAnswers(s.answers)
}

// Preview returns the submission list Submit would send right now.
func (s *Session) Preview() ([]model.AnswerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.payload == nil {
		return nil, ErrNoExamLoaded
	}
	return codec.EncodeAll(s.payload.Questions, s.answers), nil
}

// Status returns a read-only view of the session for the UI.
func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.SessionStatus{
		State:           s.state,
		QuestionSetID:   s.questionSetID,
		ExamStarted:     s.state == model.SessionStateInProgress,
		ExamCompleted:   s.state == model.SessionStateCompleted,
		Submitting:      s.submitting,
		Receipt:         s.receipt,
		LastError:       s.lastErr,
		TimeoutAttempts: s.timeoutAttempts,
	}
	if s.receipt != nil {
		st.Unconfirmed = s.receipt.Unconfirmed
	}
	if s.payload != nil {
		summary := codec.Summarize(s.payload.Questions, s.answers)
		st.Summary = &summary
	}
	if r, ok := s.timer.Recompute(); ok {
		st.TimeRemaining = r.Remaining
		st.HasActiveExam = s.state == model.SessionStateInProgress && r.Remaining > 0
	}
	st.TimeDisplay = timer.Format(st.TimeRemaining)
	st.TimeRunningLow = st.HasActiveExam && timer.RunningLow(st.TimeRemaining)
	return st
}

func (s *Session) completeLocked(ctx context.Context, reason model.SubmitReason, summary model.SubmissionSummary, result *model.SubmissionResult, unconfirmed bool) *model.Receipt {
	rec := &model.Receipt{
		QuestionSetID: s.questionSetID,
		Reason:        reason,
		Summary:       summary,
		Result:        result,
		Unconfirmed:   unconfirmed,
		CompletedAt:   s.clock.Now(),
	}

	s.state = model.SessionStateCompleted
	s.receipt = rec
	s.questionSetID = 0
	s.payload = nil
	s.answers = make(map[int64]model.Answer)
	s.timer.Clear()
	s.submitting = false
	s.timeoutAttempts = 0
	if !unconfirmed {
		s.lastErr = ""
	}

	s.log.Info().
		Int64("question_id", rec.QuestionSetID).
		Str("reason", string(reason)).
		Bool("unconfirmed", unconfirmed).
		Int("answered", summary.TotalAnswered).
		Int("total", summary.TotalQuestions).
		Msg("Exam completed")

	s.persistLocked(ctx)
	if s.receipts != nil {
		if err := s.receipts.PublishReceipt(context.WithoutCancel(ctx), *rec); err != nil {
			s.log.Warn().Err(err).Int64("question_id", rec.QuestionSetID).Msg("Publish receipt failed")
		}
	}
	return rec
}

func copyAnswers(in map[int64]model.Answer) map[int64]model.Answer {
	out := make(map[int64]model.Answer, len(in))
	for k, v := range in {
		if v.Marks != nil {
			marks := make(map[int]model.Mark, len(v.Marks))
			for i, m := range v.Marks {
				marks[i] = m
			}
			v.Marks = marks
		}
		if v.Choice != nil {
			c := *v.Choice
			v.Choice = &c
		}
		out[k] = v
	}
	return out
}
