package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/game"
	"github.com/wfunc/founder-game/internal/middleware"
	"go.uber.org/zap"
)

// GameHandler 游戏操作处理器
type GameHandler struct {
	manager *game.Manager
	logger  *zap.Logger
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(manager *game.Manager, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		manager: manager,
		logger:  logger,
	}
}

// BuyRequest 购买升级请求
type BuyRequest struct {
	UpgradeID int `json:"upgrade_id" binding:"required"`
}

// SetNameRequest 设置名称请求
type SetNameRequest struct {
	Name string `json:"name" binding:"required"`
}

// session 从上下文取出会话
func (h *GameHandler) session(c *gin.Context) (*game.PlayerSession, bool) {
	sessionID, _ := middleware.GetSessionID(c)
	session, err := h.manager.Get(sessionID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	session.Touch()
	return session, true
}

// GetState 查询当前状态
func (h *GameHandler) GetState(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session.View()})
}

// Click 手动产出一次
func (h *GameHandler) Click(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session.Click()})
}

// Buy 购买一个单位的升级项
func (h *GameHandler) Buy(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req BuyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
		return
	}

	view, err := session.Buy(req.UpgradeID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

// Reset 重置进度（不可逆）
func (h *GameHandler) Reset(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := session.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}

// GetShop 查询商店条目
func (h *GameHandler) GetShop(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session.Shop()})
}

// SetName 设置显示名称
func (h *GameHandler) SetName(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SetNameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Wrap(err, errors.ErrInvalidParam, "参数错误"))
		return
	}

	if err := session.SetName(c.Request.Context(), req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": session.View()})
}

// MarkTutorialSeen 标记新手引导已看过
func (h *GameHandler) MarkTutorialSeen(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.MarkTutorialSeen(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Mint 发起成就铸造
func (h *GameHandler) Mint(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	view, err := session.RequestMint(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": view})
}
