package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepnest/mocktest-backend/internal/config"
	"github.com/prepnest/mocktest-backend/internal/handler"
	"github.com/prepnest/mocktest-backend/internal/middleware"
	"github.com/prepnest/mocktest-backend/internal/response"
	"github.com/prepnest/mocktest-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Question *handler.QuestionHandler
	Session  *handler.SessionHandler
	WS       *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokenService *service.TokenService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session creation (10 new sessions per minute per IP).
	createLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Public Group ───────────────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.GET("/subjects", handlers.Question.GetSubjects)
		publicAPI.POST("/questions", handlers.Question.Ingest)
		publicAPI.POST("/sessions", createLimiter.Middleware(), handlers.Session.Create)
	}

	// ─── 2. Session Group (Session Token) ──────────────────────────────
	sessionAPI := router.Group("/api/v1/sessions")
	sessionAPI.Use(middleware.RequireSessionToken(tokenService))
	{
		sessionAPI.GET("/:id", handlers.Session.GetState)
		sessionAPI.DELETE("/:id", handlers.Session.Abandon)
		sessionAPI.PUT("/:id/answers/:number", handlers.Session.RecordAnswer)
		sessionAPI.DELETE("/:id/answers/:number", handlers.Session.ClearAnswer)
		sessionAPI.POST("/:id/navigate", handlers.Session.Navigate)
		sessionAPI.POST("/:id/submit", handlers.Session.Submit)
		sessionAPI.GET("/:id/result", handlers.Session.GetResult)
	}

	// ─── 3. WebSocket Group (Session Token via query) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireSessionToken(tokenService))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
