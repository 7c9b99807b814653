package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/wfunc/founder-game/internal/economy"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/identity"
)

// Minter 成就铸造的外部协作方
// 实现方负责交易构造和提交，成功时返回不透明的铸造凭证
type Minter interface {
	Mint(ctx context.Context, player identity.Identity, lifetimeEarnings int64) (string, error)
}

// AchievementGate 成就门槛
// 累计产出达到阈值且未铸造过时放行，铸造是一次性的
type AchievementGate struct {
	threshold int64
}

// NewAchievementGate 创建成就门槛
func NewAchievementGate(threshold int64) *AchievementGate {
	return &AchievementGate{threshold: threshold}
}

// Threshold 解锁阈值
func (g *AchievementGate) Threshold() int64 {
	return g.threshold
}

// Unlocked 累计产出是否达到阈值
// 阈值按累计产出判断，花钱不会让已解锁的成就回锁
func (g *AchievementGate) Unlocked(lifetimeEarnings int64) bool {
	return lifetimeEarnings >= g.threshold
}

// Check 校验当前状态能否发起铸造
func (g *AchievementGate) Check(snap economy.Snapshot) error {
	if snap.HasMinted {
		return errors.New(errors.ErrAlreadyMinted)
	}
	if !g.Unlocked(snap.LifetimeEarnings) {
		return errors.Newf(errors.ErrMintNotEligible, "累计产出 %d 未达到 %d", snap.LifetimeEarnings, g.threshold)
	}
	return nil
}

// DevMinter 开发环境铸造器，生成本地凭证，不提交任何交易
type DevMinter struct{}

// NewDevMinter 创建开发环境铸造器
func NewDevMinter() *DevMinter {
	return &DevMinter{}
}

// Mint 生成本地铸造凭证
func (m *DevMinter) Mint(ctx context.Context, player identity.Identity, lifetimeEarnings int64) (string, error) {
	return "dev_mint_" + uuid.NewString(), nil
}
