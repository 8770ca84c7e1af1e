package routes

import (
	"netwise_relay/internal/config"
	"netwise_relay/internal/handlers"
	"netwise_relay/internal/middleware"
	"netwise_relay/internal/models"
	"netwise_relay/internal/services"

	"github.com/gin-gonic/gin"
)

// NewEngine 创建带中间件和路由的gin引擎
func NewEngine(cfg *config.Config) *gin.Engine {
	return NewEngineWithRelay(cfg, services.NewRelayService(cfg))
}

// NewEngineWithRelay 使用指定的中继服务创建gin引擎
func NewEngineWithRelay(cfg *config.Config, relay models.RelayService) *gin.Engine {
	engine := gin.New()
	middleware.Setup(engine)
	RegisterRoutes(engine, cfg, relay)
	return engine
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, cfg *config.Config, relay models.RelayService) {
	relayHandler := handlers.NewRelayHandler(relay, cfg.WebSocket)
	handlers.RegisterRoutes(r, relayHandler)
}
