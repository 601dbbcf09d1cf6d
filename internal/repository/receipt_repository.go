package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-portal/internal/model"
)

// ArchivedReceipt is a completion receipt as stored in exam_receipts.
type ArchivedReceipt struct {
	ID    uuid.UUID `json:"id"`
	Owner string    `json:"owner"`
	model.Receipt
	CreatedAt time.Time `json:"created_at"`
}

// ReceiptRepository handles exam_receipts persistence.
type ReceiptRepository struct {
	pool *pgxpool.Pool
}

// NewReceiptRepository creates a new ReceiptRepository.
func NewReceiptRepository(pool *pgxpool.Pool) *ReceiptRepository {
	return &ReceiptRepository{pool: pool}
}

// Insert stores a receipt. Re-inserting the same id is a no-op so queue
// redeliveries do not duplicate rows.
func (r *ReceiptRepository) Insert(ctx context.Context, id uuid.UUID, owner string, rec *model.Receipt) error {
	summary, message, err := receiptColumns(rec)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_receipts (id, owner, question_id, reason, submission_unconfirmed, summary, remote_message, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO NOTHING`,
		id, owner, rec.QuestionSetID, string(rec.Reason), rec.Unconfirmed, summary, message, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert receipt: %w", err)
	}
	return nil
}

// ListByOwner returns the latest receipts of an owner, newest first.
func (r *ReceiptRepository) ListByOwner(ctx context.Context, owner string, limit int) ([]ArchivedReceipt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner, question_id, reason, submission_unconfirmed, summary, remote_message, completed_at, created_at
		 FROM exam_receipts
		 WHERE owner = $1
		 ORDER BY completed_at DESC
		 LIMIT $2`, owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query receipts: %w", err)
	}
	defer rows.Close()

	var receipts []ArchivedReceipt
	for rows.Next() {
		var (
			a       ArchivedReceipt
			reason  string
			summary []byte
			message *string
		)
		if err := rows.Scan(&a.ID, &a.Owner, &a.QuestionSetID, &reason, &a.Unconfirmed, &summary, &message, &a.CompletedAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		if err := fillReceipt(&a, reason, summary, message); err != nil {
			return nil, err
		}
		receipts = append(receipts, a)
	}
	return receipts, rows.Err()
}

func receiptColumns(rec *model.Receipt) ([]byte, *string, error) {
	summary, err := json.Marshal(rec.Summary)
	if err != nil {
		return nil, nil, fmt.Errorf("encode summary: %w", err)
	}

	var message *string
	if rec.Result != nil && rec.Result.Message != "" {
		msg := rec.Result.Message
		message = &msg
	}
	return summary, message, nil
}

func fillReceipt(a *ArchivedReceipt, reason string, summary []byte, message *string) error {
	a.Reason = model.SubmitReason(reason)
	if err := json.Unmarshal(summary, &a.Summary); err != nil {
		return fmt.Errorf("decode summary: %w", err)
	}
	if message != nil {
		a.Result = &model.SubmissionResult{Message: *message}
	}
	return nil
}
