package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

// ReceiptArchive stores completion receipts.
type ReceiptArchive interface {
	Insert(ctx context.Context, id uuid.UUID, owner string, rec *model.Receipt) error
}

// ReceiptWorker consumes persist_receipts_queue and archives receipts.
type ReceiptWorker struct {
	archive    ReceiptArchive
	rdb        *redis.Client
	log        zerolog.Logger
	retryDelay time.Duration
}

// NewReceiptWorker creates a new ReceiptWorker.
func NewReceiptWorker(archive ReceiptArchive, rdb *redis.Client, log zerolog.Logger) *ReceiptWorker {
	return &ReceiptWorker{
		archive:    archive,
		rdb:        rdb,
		log:        log.With().Str("component", "receipt_worker").Logger(),
		retryDelay: 5 * time.Second,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *ReceiptWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ReceiptWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or the 1s timeout passes.
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistReceiptsQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var payload receiptPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error, dropping receipt")
		return
	}

	if err := w.archive.Insert(ctx, payload.ID, payload.Owner, &payload.Receipt); err != nil {
		w.log.Error().Err(err).
			Str("owner", payload.Owner).
			Int64("question_id", payload.Receipt.QuestionSetID).
			Dur("retry_in", w.retryDelay).
			Msg("Archive error, requeueing")
		// Requeue even when shutting down; drain picks it up.
		w.rdb.RPush(context.WithoutCancel(ctx), config.WorkerKey.PersistReceiptsQueue, result[1])

		select {
		case <-ctx.Done():
		case <-time.After(w.retryDelay):
		}
		return
	}

	w.log.Debug().
		Str("owner", payload.Owner).
		Int64("question_id", payload.Receipt.QuestionSetID).
		Msg("Receipt archived")
}

// drain archives everything left in the queue before shutdown.
func (w *ReceiptWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistReceiptsQueue).Result()
		if err != nil {
			break
		}

		var payload receiptPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.archive.Insert(ctx, payload.ID, payload.Owner, &payload.Receipt); err != nil {
			w.log.Error().Err(err).Msg("Drain archive error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistReceiptsQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining receipts")
	}
}
