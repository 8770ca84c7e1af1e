package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, relay *RelayHandler) {
	// 浏览器客户端连接根路径
	r.GET("/", relay.HandleWebSocket)
	r.GET("/ws", relay.HandleWebSocket)

	// 健康检查路由
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "netwise_relay",
			"time":    time.Now().Format(time.RFC3339),
		})
	})
}
