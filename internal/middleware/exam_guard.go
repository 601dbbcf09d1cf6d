package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-portal/internal/response"
)

// ExamPagePath is where clients are sent back to while an exam is running.
const ExamPagePath = "/exam"

// ActiveExamChecker reports the exam currently being taken.
type ActiveExamChecker interface {
	HasActiveExam() bool
	QuestionSetID() int64
}

// ExamGuard blocks routes outside the exam while an exam is active and
// tells the client where to return.
func ExamGuard(checker ActiveExamChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !checker.HasActiveExam() {
			c.Next()
			return
		}

		response.AbortFailWithData(c, http.StatusConflict, response.ErrExamInProgress, gin.H{
			"redirect":    ExamPagePath,
			"question_id": checker.QuestionSetID(),
		})
	}
}
