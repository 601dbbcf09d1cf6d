package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

type receiptPayload struct {
	ID      uuid.UUID     `json:"id"`
	Owner   string        `json:"owner"`
	Receipt model.Receipt `json:"receipt"`
}

// ReceiptQueue pushes completion receipts onto the persist_receipts_queue
// list for the ReceiptWorker to archive.
type ReceiptQueue struct {
	rdb   *redis.Client
	owner string
}

// NewReceiptQueue creates a ReceiptQueue publishing on behalf of owner.
func NewReceiptQueue(rdb *redis.Client, owner string) *ReceiptQueue {
	return &ReceiptQueue{rdb: rdb, owner: owner}
}

// PublishReceipt enqueues rec.
func (q *ReceiptQueue) PublishReceipt(ctx context.Context, rec model.Receipt) error {
	data, err := json.Marshal(receiptPayload{ID: uuid.New(), Owner: q.owner, Receipt: rec})
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistReceiptsQueue, data).Err(); err != nil {
		return fmt.Errorf("push receipt: %w", err)
	}
	return nil
}
