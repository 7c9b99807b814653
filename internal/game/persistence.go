package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/wfunc/founder-game/internal/economy"
	"github.com/wfunc/founder-game/internal/models"
	"github.com/wfunc/founder-game/internal/repository"
	"go.uber.org/zap"
)

// SnapshotManager 存档管理器
// 身份变更时加载，任何状态变更后立即同步覆盖写入
type SnapshotManager struct {
	repo   repository.SnapshotRepository
	logger *zap.Logger
}

// NewSnapshotManager 创建存档管理器
func NewSnapshotManager(repo repository.SnapshotRepository, logger *zap.Logger) *SnapshotManager {
	return &SnapshotManager{
		repo:   repo,
		logger: logger,
	}
}

// Load 加载某身份的存档
// 存档缺失或损坏时按字段回落到初始值，单个字段的损坏不阻塞其余字段
func (m *SnapshotManager) Load(ctx context.Context, identityToken string) (economy.Snapshot, bool, error) {
	record, err := m.repo.Get(ctx, identityToken)
	if err != nil {
		return economy.Snapshot{}, false, err
	}
	if record == nil {
		return economy.Snapshot{}, false, nil
	}

	snap := economy.Snapshot{
		Balance:          record.Balance,
		LifetimeEarnings: record.LifetimeEarnings,
		ClickPower:       record.ClickPower,
		AutoRate:         record.AutoRate,
		Inventory:        map[int]int64{},
		HasMinted:        record.HasMinted,
		MintAddress:      record.MintAddress,
		Timestamp:        record.SavedAt,
	}

	// 持有表单独解码，损坏时只丢弃该字段
	if record.Inventory != "" {
		inventory := map[int]int64{}
		if err := json.Unmarshal([]byte(record.Inventory), &inventory); err != nil {
			m.logger.Warn("存档持有表损坏，按空表处理",
				zap.String("identity", identityToken),
				zap.Error(err),
			)
		} else {
			snap.Inventory = inventory
		}
	}

	return snap, true, nil
}

// Save 同步覆盖写入存档
// 每次状态变更都触发，写入顺序与变更顺序一致
func (m *SnapshotManager) Save(ctx context.Context, identityToken string, snap economy.Snapshot) error {
	inventory, err := json.Marshal(snap.Inventory)
	if err != nil {
		return err
	}

	savedAt := snap.Timestamp
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	return m.repo.Save(ctx, &models.PlayerSnapshot{
		IdentityToken:    identityToken,
		Balance:          snap.Balance,
		LifetimeEarnings: snap.LifetimeEarnings,
		ClickPower:       snap.ClickPower,
		AutoRate:         snap.AutoRate,
		Inventory:        string(inventory),
		HasMinted:        snap.HasMinted,
		MintAddress:      snap.MintAddress,
		SchemaVersion:    models.SnapshotSchemaVersion,
		SavedAt:          savedAt,
	})
}

// Delete 删除某身份的存档（仅由显式重置触发）
func (m *SnapshotManager) Delete(ctx context.Context, identityToken string) error {
	return m.repo.Delete(ctx, identityToken)
}

// LoadName 加载显示名称，与数值存档相互独立
func (m *SnapshotManager) LoadName(ctx context.Context, identityToken string) string {
	name, err := m.repo.GetName(ctx, identityToken)
	if err != nil {
		m.logger.Warn("显示名称读取失败",
			zap.String("identity", identityToken),
			zap.Error(err),
		)
		return ""
	}
	return name
}

// SaveName 保存显示名称
func (m *SnapshotManager) SaveName(ctx context.Context, identityToken, name string) error {
	return m.repo.SaveName(ctx, identityToken, name)
}

// TutorialSeen 读取新手引导标记
func (m *SnapshotManager) TutorialSeen(ctx context.Context, identityToken string) bool {
	seen, err := m.repo.GetFlag(ctx, identityToken, models.FlagTutorialSeen)
	if err != nil {
		return false
	}
	return seen
}

// MarkTutorialSeen 写入新手引导标记
func (m *SnapshotManager) MarkTutorialSeen(ctx context.Context, identityToken string) error {
	return m.repo.SetFlag(ctx, identityToken, models.FlagTutorialSeen, true)
}
