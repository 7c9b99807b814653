package repository

import (
	"context"
	"time"

	"github.com/wfunc/founder-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRepository 排行榜仓储接口
// 排行榜是共享的最终一致存储，每个身份令牌至多一条
type LeaderboardRepository interface {
	BaseRepository
	Merge(ctx context.Context, entry *models.LeaderboardEntry, includeName bool) error
	Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
	Get(ctx context.Context, identityToken string) (*models.LeaderboardEntry, error)
}

// leaderboardRepo 排行榜仓储实现
type leaderboardRepo struct {
	*BaseRepo
}

// NewLeaderboardRepository 创建排行榜仓储
func NewLeaderboardRepository(db *gorm.DB) LeaderboardRepository {
	return &leaderboardRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Merge 合并写入排行榜条目
// 只更新明确给出的字段：未知的显示名称绝不覆盖其他会话写入的名称
func (r *leaderboardRepo) Merge(ctx context.Context, entry *models.LeaderboardEntry, includeName bool) error {
	columns := []string{"score", "updated_at_ms", "synced_at", "updated_at"}
	if includeName {
		columns = append(columns, "user_name")
	}

	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now()
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_token"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(entry).Error
}

// Top 按分数倒序取前limit名
func (r *leaderboardRepo) Top(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	var entries []*models.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Order("score DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Get 读取单个身份的条目，不存在时返回 (nil, nil)
func (r *leaderboardRepo) Get(ctx context.Context, identityToken string) (*models.LeaderboardEntry, error) {
	var entry models.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Where("identity_token = ?", identityToken).
		First(&entry).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// WithTx 使用事务
func (r *leaderboardRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &leaderboardRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
