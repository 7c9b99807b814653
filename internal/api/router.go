package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/game"
	"github.com/wfunc/founder-game/internal/logger"
	"github.com/wfunc/founder-game/internal/middleware"
	"github.com/wfunc/founder-game/internal/service"
	"github.com/wfunc/founder-game/internal/websocket"
	"go.uber.org/zap"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	manager        *game.Manager
	authService    service.AuthService
	authHandler    *AuthHandler
	gameHandler    *GameHandler
	lbHandler      *LeaderboardHandler
	wsHandler      *WebSocketHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(manager *game.Manager, authService service.AuthService, hub *websocket.Hub, log *zap.Logger) *Router {
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(requestLogger())

	router := &Router{
		engine:         engine,
		manager:        manager,
		authService:    authService,
		authHandler:    NewAuthHandler(authService),
		gameHandler:    NewGameHandler(manager, log),
		lbHandler:      NewLeaderboardHandler(manager),
		wsHandler:      NewWebSocketHandler(hub, log),
		authMiddleware: middleware.NewAuthMiddleware(authService),
		log:            log,
	}

	router.setupRoutes()
	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// WebSocket（排行榜推送，旁观者不需要登录）
	r.engine.GET("/ws", r.authMiddleware.OptionalAuth(), r.wsHandler.HandleConnection)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 认证相关路由
		auth := v1.Group("/auth")
		{
			auth.POST("/guest", r.authHandler.GuestLogin)

			authRequired := auth.Group("")
			authRequired.Use(r.authMiddleware.RequireAuth())
			{
				authRequired.POST("/wallet/connect", r.authHandler.ConnectWallet)
				authRequired.POST("/wallet/disconnect", r.authHandler.DisconnectWallet)
				authRequired.POST("/logout", r.authHandler.Logout)
			}
		}

		// 游戏操作路由（需要认证）
		g := v1.Group("/game")
		g.Use(r.authMiddleware.RequireAuth())
		{
			g.GET("/state", r.gameHandler.GetState)
			g.POST("/click", r.gameHandler.Click)
			g.POST("/buy", r.gameHandler.Buy)
			g.POST("/reset", r.gameHandler.Reset)
			g.GET("/shop", r.gameHandler.GetShop)
			g.PUT("/name", r.gameHandler.SetName)
			g.POST("/tutorial/seen", r.gameHandler.MarkTutorialSeen)
			g.POST("/mint", r.gameHandler.Mint)
		}

		// 排行榜（公开）
		v1.GET("/leaderboard", r.lbHandler.GetLeaderboard)
	}
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":          "ok",
		"active_sessions": r.manager.SessionCount(),
		"timestamp":       time.Now().Unix(),
	})
}

// Engine 返回Gin引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// requestLogger 请求日志中间件
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogRequest(
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start),
			c.ClientIP(),
		)
	}
}

// respondError 按错误码映射HTTP状态返回统一错误结构
func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if e, ok := err.(*errors.AppError); ok {
		appErr = e
	} else {
		appErr = errors.Wrap(err, errors.ErrUnknown, "内部错误")
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, c.GetString("requestID")))
}
