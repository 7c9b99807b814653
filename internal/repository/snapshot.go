package repository

import (
	"context"
	"errors"

	"github.com/wfunc/founder-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRepository 玩家存档仓储接口
// 存档、显示名称、标记各占独立的键，互不影响
type SnapshotRepository interface {
	BaseRepository
	Get(ctx context.Context, identityToken string) (*models.PlayerSnapshot, error)
	Save(ctx context.Context, snapshot *models.PlayerSnapshot) error
	Delete(ctx context.Context, identityToken string) error
	GetName(ctx context.Context, identityToken string) (string, error)
	SaveName(ctx context.Context, identityToken, name string) error
	GetFlag(ctx context.Context, identityToken, key string) (bool, error)
	SetFlag(ctx context.Context, identityToken, key string, value bool) error
}

// snapshotRepo 玩家存档仓储实现
type snapshotRepo struct {
	*BaseRepo
}

// NewSnapshotRepository 创建玩家存档仓储
func NewSnapshotRepository(db *gorm.DB) SnapshotRepository {
	return &snapshotRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Get 读取存档，不存在时返回 (nil, nil)
func (r *snapshotRepo) Get(ctx context.Context, identityToken string) (*models.PlayerSnapshot, error) {
	var snapshot models.PlayerSnapshot
	err := r.db.WithContext(ctx).
		Where("identity_token = ?", identityToken).
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// Save 整体覆盖写入存档（按身份令牌upsert）
func (r *snapshotRepo) Save(ctx context.Context, snapshot *models.PlayerSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "identity_token"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"balance", "lifetime_earnings", "click_power", "auto_rate",
				"inventory", "has_minted", "mint_address", "schema_version",
				"saved_at", "updated_at",
			}),
		}).
		Create(snapshot).Error
}

// Delete 删除存档（仅由显式重置触发）
func (r *snapshotRepo) Delete(ctx context.Context, identityToken string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("identity_token = ?", identityToken).
		Delete(&models.PlayerSnapshot{}).Error
}

// GetName 读取显示名称，不存在时返回空串
func (r *snapshotRepo) GetName(ctx context.Context, identityToken string) (string, error) {
	var record models.PlayerName
	err := r.db.WithContext(ctx).
		Where("identity_token = ?", identityToken).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.Name, nil
}

// SaveName 写入显示名称（独立于数值存档）
func (r *snapshotRepo) SaveName(ctx context.Context, identityToken, name string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_token"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).
		Create(&models.PlayerName{IdentityToken: identityToken, Name: name}).Error
}

// GetFlag 读取标记，不存在时返回false
func (r *snapshotRepo) GetFlag(ctx context.Context, identityToken, key string) (bool, error) {
	var record models.PlayerFlag
	err := r.db.WithContext(ctx).
		Where("identity_token = ? AND key = ?", identityToken, key).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return record.Value, nil
}

// SetFlag 写入标记
func (r *snapshotRepo) SetFlag(ctx context.Context, identityToken, key string, value bool) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_token"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&models.PlayerFlag{IdentityToken: identityToken, Key: key, Value: value}).Error
}

// WithTx 使用事务
func (r *snapshotRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &snapshotRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
