package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/founder-game/internal/game"
)

// LeaderboardHandler 排行榜处理器
type LeaderboardHandler struct {
	manager *game.Manager
}

// NewLeaderboardHandler 创建排行榜处理器
func NewLeaderboardHandler(manager *game.Manager) *LeaderboardHandler {
	return &LeaderboardHandler{
		manager: manager,
	}
}

// GetLeaderboard 查询排行榜
// 返回订阅源里的当前快照，不直接打库
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    h.manager.Leaderboard(),
	})
}
