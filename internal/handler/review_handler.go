package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

// ReviewHandler serves graded answer sheets of past attempts.
type ReviewHandler struct {
	reviewService *service.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService}
}

// GetReview godoc
// GET /api/v1/answer-sheets/:question_id/:answer_id?sort=0
// Returns per-question status, per-option correctness and totals.
func (h *ReviewHandler) GetReview(c *gin.Context) {
	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil || questionID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	answerID, err := strconv.ParseInt(c.Param("answer_id"), 10, 64)
	if err != nil || answerID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	sort, _ := strconv.Atoi(c.DefaultQuery("sort", "0"))

	review, err := h.reviewService.GetReview(c.Request.Context(), questionID, answerID, sort)
	if err != nil {
		status, code := sessionErrorStatus(err)
		if code == response.ErrNotFound {
			code = response.ErrAnswerSheetMissing
		}
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"review": review})
}
