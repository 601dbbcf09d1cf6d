package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/codec"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// ExamHandler exposes the exam session to the portal UI.
type ExamHandler struct {
	session *session.Session
	history *service.HistoryService
	log     zerolog.Logger
}

// NewExamHandler creates a new ExamHandler. history may be nil.
func NewExamHandler(sess *session.Session, history *service.HistoryService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		session: sess,
		history: history,
		log:     log.With().Str("component", "exam_handler").Logger(),
	}
}

// GetState godoc
// GET /api/v1/exam/state
// Returns lifecycle flags, remaining time and answer counts.
func (h *ExamHandler) GetState(c *gin.Context) {
	response.Success(c, http.StatusOK, h.session.Status())
}

// LoadExam godoc
// POST /api/v1/exam/load
// Fetches a question set from the exam service, or returns the cached one.
func (h *ExamHandler) LoadExam(c *gin.Context) {
	var req model.LoadExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	payload, err := h.session.Load(c.Request.Context(), req.QuestionSetID)
	if err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": payload})
}

// GetQuestions godoc
// GET /api/v1/exam/questions
// Returns the loaded question set together with the current answers.
func (h *ExamHandler) GetQuestions(c *gin.Context) {
	payload := h.session.Payload()
	if payload == nil {
		response.Fail(c, http.StatusNotFound, response.ErrNoExamLoaded)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam":    payload,
		"answers": h.session.Answers(),
	})
}

// StartExam godoc
// POST /api/v1/exam/start
// Starts the exam clock. Starting a running exam changes nothing.
func (h *ExamHandler) StartExam(c *gin.Context) {
	if err := h.session.Start(c.Request.Context()); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.session.Status())
}

// SetAnswer godoc
// PUT /api/v1/exam/answers/:question_id
// Records the answer to one question.
func (h *ExamHandler) SetAnswer(c *gin.Context) {
	questionID, err := strconv.ParseInt(c.Param("question_id"), 10, 64)
	if err != nil || questionID <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SetAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := applyAnswer(c.Request.Context(), h.session, questionID, req.Type, req.Marks, req.Choice); err != nil {
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": questionID,
		"answer":      h.session.Answers()[questionID],
	})
}

// PreviewSubmission godoc
// GET /api/v1/exam/preview
// Returns the encoded answer list that a submit would send, with counts.
func (h *ExamHandler) PreviewSubmission(c *gin.Context) {
	entries, err := h.session.Preview()
	if err != nil {
		failSession(c, err)
		return
	}

	var summary model.SubmissionSummary
	if payload := h.session.Payload(); payload != nil {
		summary = codec.Summarize(payload.Questions, h.session.Answers())
	}

	response.Success(c, http.StatusOK, gin.H{
		"question_id": h.session.QuestionSetID(),
		"answers":     entries,
		"summary":     summary,
	})
}

// SubmitExam godoc
// POST /api/v1/exam/submit
// Submits every answer to the exam service and completes the exam. A
// "forced" reason still submits; only the receipt reason differs. Use
// force-complete to finish without reaching the exam service.
func (h *ExamHandler) SubmitExam(c *gin.Context) {
	var req model.SubmitExamRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	reason := model.SubmitManual
	if model.SubmitReason(req.Reason) == model.SubmitForced {
		reason = model.SubmitForced
	}

	receipt, err := h.session.Submit(c.Request.Context(), reason)
	if err != nil && receipt != nil {
		response.FailWithData(c, http.StatusBadGateway, response.ErrSubmitUnconfirmed, gin.H{"receipt": receipt})
		return
	}
	if err != nil {
		h.log.Warn().Err(err).Int64("question_id", h.session.QuestionSetID()).Str("reason", string(reason)).Msg("Submit rejected")
		failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"receipt": receipt})
}

// ForceComplete godoc
// POST /api/v1/exam/force-complete
// Completes the exam locally without submitting. The receipt is unconfirmed.
func (h *ExamHandler) ForceComplete(c *gin.Context) {
	receipt, err := h.session.ForceComplete(c.Request.Context())
	if err != nil {
		failSession(c, err)
		return
	}

	h.log.Warn().Int64("question_id", receipt.QuestionSetID).Msg("Exam force-completed")
	response.Success(c, http.StatusOK, gin.H{"receipt": receipt})
}

// ResetSession godoc
// POST /api/v1/exam/reset
// Clears the session back to idle.
func (h *ExamHandler) ResetSession(c *gin.Context) {
	h.session.Reset(c.Request.Context())
	response.Success(c, http.StatusOK, h.session.Status())
}

// ListReceipts godoc
// GET /api/v1/exam/receipts?limit=20
// Returns archived completion receipts, newest first.
func (h *ExamHandler) ListReceipts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	receipts, err := h.history.List(c.Request.Context(), limit)
	if err != nil {
		if errors.Is(err, service.ErrHistoryDisabled) {
			response.Fail(c, http.StatusNotImplemented, response.ErrFeatureDisabled)
			return
		}
		h.log.Error().Err(err).Msg("List receipts failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"receipts": receipts})
}
