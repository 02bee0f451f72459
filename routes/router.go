package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aclio/aclio/config"
	"github.com/aclio/aclio/controllers"
	"github.com/aclio/aclio/llm"
	"github.com/aclio/aclio/middleware"
	"github.com/aclio/aclio/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, client llm.Client) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	appLog := utils.Logger
	if appLog == nil {
		appLog = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file; without a path it joins the app log.
	gl := appLog.Named("gin")
	if cfg.GinPath != "" {
		if fl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
			gl = fl
		} else {
			appLog.Warn("gin log file unavailable, using app logger", zap.Error(err))
		}
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
		corsCfg.AllowCredentials = true
	}
	r.Use(cors.New(corsCfg))

	planController := controllers.NewPlanController(client, appLog.Named("plan"))
	chatController := controllers.NewChatController(client, appLog.Named("chat"))

	api := r.Group("/api")
	api.GET("/health", planController.Health)

	ai := api.Group("")
	ai.Use(middleware.RateLimitMiddleware(cfg.RateLimitPerMinute))
	ai.POST("/generate-steps", planController.GenerateSteps)
	ai.POST("/generate-questions", planController.GenerateQuestions)
	ai.POST("/expand-step", planController.ExpandStep)
	ai.POST("/do-it-for-me", planController.DoItForMe)
	ai.POST("/chat", chatController.Chat)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40401, "not found")
	})

	return r
}
