package session

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-portal/internal/model"
)

// Rehydrate reads the persisted snapshot and restores the session from it.
// Until a read succeeds, ticks are ignored and nothing is written to the
// store, so neither a stale clock nor a fresh Load can clobber the snapshot.
// A failed read may be retried; calls after a successful one are no-ops.
func (s *Session) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rehydrated {
		return nil
	}

	snap, err := s.store.ReadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	s.rehydrated = true
	if snap == nil {
		s.log.Debug().Msg("No snapshot to restore")
		return nil
	}

	s.restoreLocked(snap)

	ev := s.log.Info().
		Str("state", string(s.state)).
		Int64("question_id", s.questionSetID).
		Int("answers", len(s.answers))
	if s.state == model.SessionStateInProgress {
		ev = ev.Int64("time_remaining", s.timer.Remaining())
	}
	ev.Msg("Session restored from snapshot")
	return nil
}

func (s *Session) restoreLocked(snap *model.SessionSnapshot) {
	s.questionSetID = snap.QuestionSetID
	s.payload = snap.Payload
	s.receipt = snap.Receipt
	s.answers = make(map[int64]model.Answer, len(snap.Answers))
	for k, v := range snap.Answers {
		s.answers[k] = v
	}
	s.timer.Clear()

	switch {
	case snap.ExamCompleted:
		s.state = model.SessionStateCompleted
		s.payload = nil
		s.answers = make(map[int64]model.Answer)
	case snap.ExamStarted && snap.Clock != nil && snap.Payload != nil:
		r := s.timer.Restore(*snap.Clock)
		if r.Skewed {
			s.log.Warn().Msg("Restored clock reads before exam start, elapsed clamped to zero")
		}
		s.state = model.SessionStateInProgress
	case snap.Payload != nil:
		s.state = model.SessionStateLoaded
	default:
		s.state = model.SessionStateIdle
		s.questionSetID = 0
		s.payload = nil
	}
}

func (s *Session) snapshotLocked() *model.SessionSnapshot {
	snap := &model.SessionSnapshot{
		State:         s.state,
		QuestionSetID: s.questionSetID,
		Payload:       s.payload,
		Answers:       copyAnswers(s.answers),
		ExamStarted:   s.state == model.SessionStateInProgress,
		ExamCompleted: s.state == model.SessionStateCompleted,
		Receipt:       s.receipt,
		SavedAt:       s.clock.Now(),
	}
	if clock, ok := s.timer.State(); ok {
		snap.Clock = &clock
		snap.TimeRemaining = s.timer.Remaining()
	}
	return snap
}

// persistLocked mirrors the session into the store. Failures are logged and
// never fail the operation that triggered the write.
func (s *Session) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	if !s.rehydrated {
		s.log.Warn().Str("state", string(s.state)).Msg("Snapshot not restored yet, skipping write")
		return
	}
	if err := s.store.WriteSnapshot(context.WithoutCancel(ctx), s.snapshotLocked()); err != nil {
		s.log.Warn().Err(err).Str("state", string(s.state)).Msg("Write snapshot failed")
	}
}
