package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/handler"
	"github.com/stemsi/exstem-portal/internal/middleware"
	"github.com/stemsi/exstem-portal/internal/response"
	"github.com/stemsi/exstem-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Exam   *handler.ExamHandler
	Review *handler.ReviewHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the background sweepers of the rate limiters.
func SetupRouter(
	ctx context.Context,
	log zerolog.Logger,
	authService *service.AuthService,
	handlers *Handlers,
	exams middleware.ActiveExamChecker,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Sign-in is cheap to abuse; submit hits the exam service.
	signInLimit := middleware.NewRateLimiter(ctx, 5, 12*time.Second)
	submitLimit := middleware.NewRateLimiter(ctx, 3, 5*time.Second)

	// ─── 1. Auth ───────────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/session", signInLimit.Middleware(), handlers.Auth.CreateSession)

		signedIn := auth.Group("")
		signedIn.Use(middleware.RequirePortalJWT(authService), middleware.CheckLatestLogin(authService))
		{
			signedIn.GET("/me", handlers.Auth.GetMe)
			signedIn.DELETE("/session", handlers.Auth.EndSession)
		}
	}

	// ─── 2. Exam session ───────────────────────────────────────────────
	exam := router.Group("/api/v1/exam")
	exam.Use(
		middleware.RequirePortalJWT(authService),
		middleware.CheckLatestLogin(authService),
		middleware.NoStore(),
	)
	{
		exam.GET("/state", handlers.Exam.GetState)
		exam.POST("/load", handlers.Exam.LoadExam)
		exam.GET("/questions", handlers.Exam.GetQuestions)
		exam.POST("/start", handlers.Exam.StartExam)
		exam.PUT("/answers/:question_id", handlers.Exam.SetAnswer)
		exam.GET("/preview", handlers.Exam.PreviewSubmission)
		exam.POST("/submit", submitLimit.Middleware(), handlers.Exam.SubmitExam)
		exam.POST("/force-complete", handlers.Exam.ForceComplete)
		exam.POST("/reset", handlers.Exam.ResetSession)
		exam.GET("/receipts", handlers.Exam.ListReceipts)
	}

	// ─── 3. Review ─────────────────────────────────────────────────────
	// Other pages are off limits while an exam runs.
	review := router.Group("/api/v1/answer-sheets")
	review.Use(
		middleware.RequirePortalJWT(authService),
		middleware.CheckLatestLogin(authService),
		middleware.ExamGuard(exams),
	)
	{
		review.GET("/:question_id/:answer_id", handlers.Review.GetReview)
	}

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireWSAuth(authService))
	{
		wsGroup.GET("/exam/stream", handlers.WS.ExamStream)
	}

	return router
}
