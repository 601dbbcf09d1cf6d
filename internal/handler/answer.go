package handler

import (
	"context"

	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/session"
)

// applyAnswer converts a client answer into the shape of the question's
// group and records it. Marks map an option to true, false or nil (unset);
// choice selects one option, -1 or nil clearing it.
func applyAnswer(ctx context.Context, sess *session.Session, questionID int64, typ model.QuestionType, marks map[int]*bool, choice *int) error {
	payload := sess.Payload()
	if payload == nil {
		// Let the session decide between a silent no-op and an error.
		return sess.SetAnswer(ctx, questionID, model.Answer{})
	}

	q, ok := payload.QuestionByID(questionID)
	if !ok {
		return session.ErrUnknownQuestion
	}
	if typ != "" && typ != q.Type {
		return session.ErrAnswerMismatch
	}

	var answer model.Answer
	switch q.Type.Group() {
	case model.GroupMultiFlag:
		if choice != nil {
			return session.ErrAnswerMismatch
		}
		m := make(map[int]model.Mark, len(marks))
		for idx, v := range marks {
			if idx < 0 || idx >= model.MaxOptions {
				continue
			}
			switch {
			case v == nil:
				m[idx] = model.MarkUnset
			case *v:
				m[idx] = model.MarkTrue
			default:
				m[idx] = model.MarkFalse
			}
		}
		answer = model.MultiFlagAnswer(m)
	case model.GroupSingleChoice:
		if len(marks) > 0 {
			return session.ErrAnswerMismatch
		}
		idx := -1
		if choice != nil {
			idx = *choice
		}
		answer = model.SingleChoiceAnswer(idx)
	default:
		return session.ErrAnswerMismatch
	}

	return sess.SetAnswer(ctx, questionID, answer)
}
