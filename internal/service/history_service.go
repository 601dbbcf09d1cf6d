package service

import (
	"context"
	"errors"

	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/repository"
)

// ErrHistoryDisabled is returned when no receipt archive is configured.
var ErrHistoryDisabled = errors.New("receipt history requires the postgres archive")

// MaxHistory caps how many receipts a single listing returns.
const MaxHistory = 100

// HistoryService lists archived completion receipts of this portal's owner.
type HistoryService struct {
	cfg      *config.Config
	receipts *repository.ReceiptRepository
}

// NewHistoryService creates a new HistoryService. receipts may be nil.
func NewHistoryService(cfg *config.Config, receipts *repository.ReceiptRepository) *HistoryService {
	return &HistoryService{cfg: cfg, receipts: receipts}
}

// Enabled reports whether an archive is configured.
func (s *HistoryService) Enabled() bool {
	return s != nil && s.receipts != nil
}

// List returns the latest receipts, newest first.
func (s *HistoryService) List(ctx context.Context, limit int) ([]repository.ArchivedReceipt, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	if limit <= 0 || limit > MaxHistory {
		limit = MaxHistory
	}
	receipts, err := s.receipts.ListByOwner(ctx, s.cfg.SnapshotOwner, limit)
	if err != nil {
		return nil, err
	}
	if receipts == nil {
		receipts = []repository.ArchivedReceipt{}
	}
	return receipts, nil
}
