package repository

import (
	"context"
	"errors"

	"github.com/wfunc/founder-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 本地键值存储仓储接口
// 承载存档之外的零散持久化项（如访客令牌）
type SettingRepository interface {
	BaseRepository
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// settingRepo 键值存储仓储实现
type settingRepo struct {
	*BaseRepo
}

// NewSettingRepository 创建键值存储仓储
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Get 读取键值，不存在时返回空串
func (r *settingRepo) Get(ctx context.Context, key string) (string, error) {
	var setting models.AppSetting
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return setting.Value, nil
}

// Set 写入键值
func (r *settingRepo) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&models.AppSetting{Key: key, Value: value}).Error
}

// WithTx 使用事务
func (r *settingRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &settingRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// GuestTokenKey 访客令牌在键值存储中的键
const GuestTokenKey = "guest_token"

// GuestTokenStore 基于键值存储的访客令牌存取
// 实现 identity.GuestTokenStore
type GuestTokenStore struct {
	settings SettingRepository
}

// NewGuestTokenStore 创建访客令牌存取器
func NewGuestTokenStore(settings SettingRepository) *GuestTokenStore {
	return &GuestTokenStore{settings: settings}
}

// LoadGuestToken 读取已持久化的访客令牌
func (s *GuestTokenStore) LoadGuestToken(ctx context.Context) (string, error) {
	return s.settings.Get(ctx, GuestTokenKey)
}

// SaveGuestToken 持久化访客令牌
func (s *GuestTokenStore) SaveGuestToken(ctx context.Context, token string) error {
	return s.settings.Set(ctx, GuestTokenKey, token)
}
