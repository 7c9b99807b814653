package database

import (
	"github.com/wfunc/founder-game/internal/logger"
	"github.com/wfunc/founder-game/internal/models"
)

// AutoMigrate 自动迁移所有数据表
func AutoMigrate() error {
	logger.Info("开始数据库迁移...")

	err := DB.AutoMigrate(
		// 玩家存档
		&models.PlayerSnapshot{},
		&models.PlayerName{},
		&models.PlayerFlag{},

		// 排行榜
		&models.LeaderboardEntry{},

		// 本地键值存储
		&models.AppSetting{},
	)
	if err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}
