package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/database"
	"github.com/stemsi/exstem-portal/internal/examapi"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/logger"
	"github.com/stemsi/exstem-portal/internal/repository"
	"github.com/stemsi/exstem-portal/internal/router"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
	"github.com/stemsi/exstem-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("snapshot_store", cfg.SnapshotStore).
		Bool("receipt_archive", cfg.ArchiveReceipts).
		Msg("Starting ExStem Portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	// The in-memory store runs without Redis; sign-ins then skip the
	// latest-login check.
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		if cfg.SnapshotStore != config.SnapshotStoreMemory || cfg.ArchiveReceipts {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Warn().Err(err).Msg("Redis unavailable, continuing without it")
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	var pool *pgxpool.Pool
	if cfg.SnapshotStore == config.SnapshotStorePostgres || cfg.ArchiveReceipts {
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	store := newSnapshotStore(cfg, rdb, pool, log)

	var receiptRepo *repository.ReceiptRepository
	if cfg.ArchiveReceipts {
		receiptRepo = repository.NewReceiptRepository(pool)
	}

	// ─── Initialize Session ────────────────────────────────────────────
	remote := examapi.NewClient(cfg, log)

	opts := []session.Option{session.WithRetryBudget(cfg.SubmitRetryBudget)}
	if cfg.ArchiveReceipts {
		opts = append(opts, session.WithReceiptSink(worker.NewReceiptQueue(rdb, cfg.SnapshotOwner)))
	}
	sess := session.New(remote, store, log, opts...)

	// Restore before the tick worker starts so an expired exam is not
	// auto-submitted against an empty session.
	if err := rehydrate(ctx, sess, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to restore session snapshot")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb, remote)
	reviewService := service.NewReviewService(remote)
	historyService := service.NewHistoryService(cfg, receiptRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:   handler.NewAuthHandler(authService, sess, log),
		Exam:   handler.NewExamHandler(sess, historyService, log),
		Review: handler.NewReviewHandler(reviewService),
		WS:     handler.NewWSHandler(sess, cfg.TickInterval, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	tickWorker := worker.NewTickWorker(sess, cfg.TickInterval, log)
	go tickWorker.Start(workerCtx)

	if cfg.ArchiveReceipts {
		receiptWorker := worker.NewReceiptWorker(receiptRepo, rdb, log)
		go receiptWorker.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, log, authService, handlers, sess, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the tick and receipt workers and let the queue drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

func newSnapshotStore(cfg *config.Config, rdb *redis.Client, pool *pgxpool.Pool, log zerolog.Logger) session.SnapshotStore {
	switch cfg.SnapshotStore {
	case config.SnapshotStorePostgres:
		return repository.NewPostgresSnapshotStore(pool, cfg.SnapshotOwner)
	case config.SnapshotStoreMemory:
		return repository.NewMemorySnapshotStore()
	case config.SnapshotStoreRedis:
		return repository.NewRedisSnapshotStore(rdb, cfg.SnapshotOwner)
	default:
		log.Warn().Str("snapshot_store", cfg.SnapshotStore).Msg("Unknown snapshot store, falling back to redis")
		return repository.NewRedisSnapshotStore(rdb, cfg.SnapshotOwner)
	}
}

const (
	rehydrateAttempts = 5
	rehydrateBackoff  = 2 * time.Second
)

// rehydrate retries the snapshot read a few times. Serving an idle session
// over an unread snapshot would lose the exam in progress.
func rehydrate(ctx context.Context, sess *session.Session, log zerolog.Logger) error {
	var err error
	for attempt := 1; attempt <= rehydrateAttempts; attempt++ {
		if err = sess.Rehydrate(ctx); err == nil {
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Session rehydrate failed")
		if attempt == rehydrateAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * rehydrateBackoff):
		}
	}
	return err
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
