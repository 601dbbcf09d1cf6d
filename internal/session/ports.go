package session

import (
	"context"

	"github.com/stemsi/exstem-portal/internal/model"
)

// RemoteService is the remote exam API the session talks to.
type RemoteService interface {
	FetchQuestionSet(ctx context.Context, questionSetID int64) (*model.ExamPayload, error)
	// SubmitAnswers must not be assumed idempotent.
	SubmitAnswers(ctx context.Context, questionSetID int64, answers []model.AnswerEntry) (*model.SubmissionResult, error)
}

// SnapshotStore mirrors the session across process restarts.
// ReadSnapshot returns nil, nil when nothing is stored.
type SnapshotStore interface {
	ReadSnapshot(ctx context.Context) (*model.SessionSnapshot, error)
	WriteSnapshot(ctx context.Context, snap *model.SessionSnapshot) error
	ClearSnapshot(ctx context.Context) error
}

// ReceiptSink receives a copy of every completion receipt.
type ReceiptSink interface {
	PublishReceipt(ctx context.Context, rec model.Receipt) error
}
