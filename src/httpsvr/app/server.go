package app

import (
	"context"
	"net/http"
	"time"

	"abby-ai-server/src/configs"
	coreassistant "abby-ai-server/src/core/assistant"
	"abby-ai-server/src/core/auth"
	"abby-ai-server/src/core/lock"
	"abby-ai-server/src/core/metrics"
	"abby-ai-server/src/core/middleware"
	"abby-ai-server/src/core/utils"
	"abby-ai-server/src/httpsvr/assistant"
	"abby-ai-server/src/httpsvr/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps everything the HTTP layer needs, built by main
type Deps struct {
	DB        *gorm.DB
	Redis     redis.UniversalClient // nil when redis is disabled
	Client    coreassistant.Client
	Tools     *coreassistant.ToolRegistry
	Locker    lock.Locker
	AuthToken *auth.AuthToken
	Metrics   *metrics.Metrics
}

type AppService struct {
	logger *utils.Logger
	config *configs.Config
	deps   Deps

	userHandler      *user.UserHandler
	assistantHandler *assistant.AssistantHandler
}

func NewAppService(config *configs.Config, logger *utils.Logger, deps Deps) *AppService {
	threads := assistant.NewThreadService(deps.DB, deps.Client, logger)
	instructions := config.Assistant.Instructions
	if instructions == "" {
		instructions = configs.DefaultInstructions
	}
	messages := assistant.NewMessageService(deps.DB, threads, deps.Client, deps.Tools, deps.Locker, logger, deps.Metrics,
		assistant.MessageServiceOptions{
			Instructions: instructions,
			RunTimeout:   config.RunTimeout(),
		})

	return &AppService{
		logger:           logger,
		config:           config,
		deps:             deps,
		userHandler:      user.NewUserHandler(deps.DB, deps.AuthToken, deps.Client, logger),
		assistantHandler: assistant.NewAssistantHandler(threads, messages, logger),
	}
}

// NewEngine gin engine with the common middleware chain
func (s *AppService) NewEngine() *gin.Engine {
	gin.SetMode(s.config.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.AccessLog(s.logger, s.deps.Metrics))
	engine.Use(middleware.CORS())
	return engine
}

// Start mounts every route on engine; apiGroup is the /api group of engine
func (s *AppService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) {
	engine.GET("/health", s.handleHealth)

	if s.config.Metrics.Enabled && s.deps.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}
	if s.config.Swagger.Enabled {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	s.userHandler.RegisterRoutes(apiGroup)
	s.assistantHandler.RegisterRoutes(apiGroup)

	s.logger.Info("routes registered, tools: %v", s.deps.Tools.Names())
}

// handleHealth
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} utils.UnifiedResponse
// @Failure 503 {object} utils.UnifiedResponse
// @Router /health [get]
func (s *AppService) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{"database": "ok"}
	sqlDB, err := s.deps.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		s.logger.Error("health check, database: %v", err)
		utils.ErrorWithDetail(c, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
			s.logger.Warn("health check, redis: %v", err)
			status["redis"] = "unavailable"
		} else {
			status["redis"] = "ok"
		}
	}
	utils.Success(c, status)
}
