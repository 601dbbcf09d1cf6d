package service

import (
	"context"
	"fmt"

	"github.com/stemsi/exstem-portal/internal/codec"
	"github.com/stemsi/exstem-portal/internal/model"
)

// AnswerSheetSource fetches graded answer sheets.
type AnswerSheetSource interface {
	GetAnswerSheet(ctx context.Context, questionSetID, answerID int64, sort int) (*model.AnswerSheet, error)
}

// ReviewService turns remote answer sheets into per-question reviews.
type ReviewService struct {
	source AnswerSheetSource
}

// NewReviewService creates a new ReviewService.
func NewReviewService(source AnswerSheetSource) *ReviewService {
	return &ReviewService{source: source}
}

// GetReview fetches and decodes the answer sheet of one past attempt.
func (s *ReviewService) GetReview(ctx context.Context, questionSetID, answerID int64, sort int) (*model.Review, error) {
	sheet, err := s.source.GetAnswerSheet(ctx, questionSetID, answerID, sort)
	if err != nil {
		return nil, fmt.Errorf("get answer sheet: %w", err)
	}
	review := codec.Review(sheet)
	return &review, nil
}
