package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/model"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
	"github.com/stemsi/exstem-portal/internal/session"
	"github.com/stemsi/exstem-portal/internal/validator"
)

// AuthHandler handles portal sign-in.
type AuthHandler struct {
	authService *service.AuthService
	session     *session.Session
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, sess *session.Session, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		session:     sess,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// CreateSession godoc
// POST /api/v1/auth/session
// Takes the exam service token obtained from the identity provider and
// returns a portal token. A running exam keeps running across sign-ins.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	var req model.CreateSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, expiresAt, err := h.authService.CreateSession(c.Request.Context(), req.StudentID, req.RemoteToken)
	if err != nil {
		h.log.Error().Err(err).Str("student_id", req.StudentID).Msg("Create session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	h.log.Info().Str("student_id", req.StudentID).Msg("Student signed in")

	response.Success(c, http.StatusOK, gin.H{
		"token":           token,
		"expires_at":      expiresAt,
		"has_active_exam": h.session.HasActiveExam(),
	})
}

// GetMe godoc
// GET /api/v1/auth/me
// Returns the signed-in student and whether an exam is running.
func (h *AuthHandler) GetMe(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"student_id":      claims.StudentID,
		"owner":           claims.Owner,
		"has_active_exam": h.session.HasActiveExam(),
		"question_id":     h.session.QuestionSetID(),
	})
}

// EndSession godoc
// DELETE /api/v1/auth/session
// Signs out and forgets the exam service token.
func (h *AuthHandler) EndSession(c *gin.Context) {
	if err := h.authService.EndSession(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("End session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
