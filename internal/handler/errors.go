package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/examapi"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/session"
)

// sessionErrorStatus maps a session or remote error to an HTTP status and
// error code.
func sessionErrorStatus(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, session.ErrNoExamLoaded):
		return http.StatusConflict, response.ErrNoExamLoaded
	case errors.Is(err, session.ErrNotInProgress):
		return http.StatusConflict, response.ErrExamNotInProgress
	case errors.Is(err, session.ErrExamActive):
		return http.StatusConflict, response.ErrExamInProgress
	case errors.Is(err, session.ErrExamCompleted):
		return http.StatusConflict, response.ErrExamCompleted
	case errors.Is(err, session.ErrSubmitInFlight):
		return http.StatusConflict, response.ErrSubmitInFlight
	case errors.Is(err, session.ErrStaleResponse):
		return http.StatusConflict, response.ErrSessionReset
	case errors.Is(err, session.ErrNoDuration):
		return http.StatusUnprocessableEntity, response.ErrNoDuration
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusNotFound, response.ErrUnknownQuestion
	case errors.Is(err, session.ErrAnswerMismatch):
		return http.StatusBadRequest, response.ErrAnswerMismatch
	}

	// A failed submit always reports SUBMIT_FAILED so the UI offers a retry.
	var (
		fetchErr  *session.FetchError
		submitErr *session.SubmissionError
	)
	switch {
	case errors.As(err, &submitErr):
		if errors.Is(err, examapi.ErrNetwork) {
			return http.StatusServiceUnavailable, response.ErrSubmitFailed
		}
		return http.StatusBadGateway, response.ErrSubmitFailed
	case errors.Is(err, examapi.ErrUnauthorized):
		return http.StatusUnauthorized, response.ErrRemoteUnauthorized
	case errors.Is(err, examapi.ErrNetwork):
		return http.StatusServiceUnavailable, response.ErrRemoteUnavailable
	case errors.As(err, &fetchErr):
		if errors.Is(err, examapi.ErrNotFound) {
			return http.StatusNotFound, response.ErrNotFound
		}
		return http.StatusBadGateway, response.ErrFetchFailed
	case errors.Is(err, examapi.ErrNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, examapi.ErrServer), errors.Is(err, examapi.ErrRejected):
		return http.StatusBadGateway, response.ErrRemoteUnavailable
	}

	return http.StatusInternalServerError, response.ErrInternal
}

func failSession(c *gin.Context, err error) {
	status, code := sessionErrorStatus(err)
	if status == http.StatusInternalServerError {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("Unhandled session error")
	}
	response.Fail(c, status, code)
}
