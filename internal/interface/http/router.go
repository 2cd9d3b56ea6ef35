package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greennepal/agrihealth/internal/domain/auth"
	"github.com/greennepal/agrihealth/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, authSvc auth.Service, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
		rateLimitMiddleware(cfg.HTTP.RateLimit, logger),
	)

	api := router.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", handler.Register)
			authGroup.POST("/login", handler.Login)
			authGroup.POST("/refresh", handler.Refresh)
			authGroup.GET("/profile", authMiddleware(authSvc), handler.Profile)
			authGroup.POST("/logout", authMiddleware(authSvc), handler.Logout)
		}

		api.POST("/diagnose", handler.Diagnose)
		api.POST("/plans", handler.GeneratePlan)
		api.POST("/chat", handler.Chat)
		api.POST("/tts", handler.Speak)

		api.GET("/weather", handler.Weather)
		api.GET("/market", handler.Market)
		api.GET("/fields", handler.Fields)

		scoped := api.Group("", optionalAuthMiddleware(authSvc))
		{
			scoped.GET("/tasks", handler.ListTasks)
			scoped.POST("/tasks", handler.AddTask)
			scoped.PATCH("/tasks/:id/toggle", handler.ToggleTask)
			scoped.DELETE("/tasks/:id", handler.DeleteTask)
			scoped.GET("/tasks/stream", handler.StreamTasks(streamWindow(cfg.HTTP.WriteTimeout)))

			scoped.GET("/history", handler.ListHistory)
			scoped.POST("/history", handler.SaveHistory)
			scoped.DELETE("/history/:id", handler.DeleteHistory)

			scoped.GET("/images/*key", handler.ServeImage)
		}
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        router,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}

// streamWindow bounds the task stream below the server write deadline so the
// stream ends cleanly instead of being severed mid-event. Zero means no bound.
func streamWindow(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return 0
	}
	if writeTimeout <= 2*time.Second {
		return writeTimeout / 2
	}
	return writeTimeout - 2*time.Second
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("http request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status(), "latency_ms", latency.Milliseconds())
	}
}
