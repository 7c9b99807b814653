package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/middleware"
	"github.com/wfunc/founder-game/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// GuestLoginRequest 访客登录请求
type GuestLoginRequest struct {
	// 客户端上次保存的访客令牌，首次登录为空
	GuestToken string `json:"guest_token"`
}

// ConnectWalletRequest 连接钱包请求
type ConnectWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// GuestLogin 访客登录
// 创建游戏会话并解析访客身份，返回会话令牌和当前状态
func (h *AuthHandler) GuestLogin(c *gin.Context) {
	var req GuestLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
		return
	}

	result, err := h.authService.GuestLogin(c.Request.Context(), req.GuestToken)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// ConnectWallet 连接钱包
// 身份切换：访客进度留在访客存档里，切换后从钱包存档开始
func (h *AuthHandler) ConnectWallet(c *gin.Context) {
	sessionID, _ := middleware.GetSessionID(c)

	var req ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
		return
	}

	result, err := h.authService.ConnectWallet(c.Request.Context(), sessionID, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// DisconnectWallet 断开钱包，回落到访客身份
func (h *AuthHandler) DisconnectWallet(c *gin.Context) {
	sessionID, _ := middleware.GetSessionID(c)

	result, err := h.authService.DisconnectWallet(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Logout 登出并关闭会话
func (h *AuthHandler) Logout(c *gin.Context) {
	sessionID, _ := middleware.GetSessionID(c)
	h.authService.Logout(c.Request.Context(), sessionID)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "已登出"})
}
