package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is driven by the TickWorker.
type Ticker interface {
	Tick(ctx context.Context) error
}

// TickWorker calls Tick on a fixed cadence until its context is cancelled.
type TickWorker struct {
	target   Ticker
	interval time.Duration
	log      zerolog.Logger
}

// NewTickWorker creates a new TickWorker. A non-positive interval defaults
// to one second.
func NewTickWorker(target Ticker, interval time.Duration, log zerolog.Logger) *TickWorker {
	if interval <= 0 {
		interval = time.Second
	}
	return &TickWorker{
		target:   target,
		interval: interval,
		log:      log.With().Str("component", "tick_worker").Logger(),
	}
}

// Start begins the tick loop. Call in a goroutine.
func (w *TickWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("Worker started")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
			if err := w.target.Tick(ctx); err != nil {
				w.log.Warn().Err(err).Msg("Tick failed")
			}
		}
	}
}
