package game

import (
	"context"
	"time"

	"github.com/wfunc/founder-game/internal/logger"
	"github.com/wfunc/founder-game/internal/models"
	"github.com/wfunc/founder-game/internal/repository"
)

// PublishView 同步时刻读取的实时视图
// Known为假表示来源当前没有可同步的身份（跳过本次）
type PublishView struct {
	IdentityToken string
	Score         int64
	Name          string
	Known         bool
}

// PublishSource 实时状态读取函数
// 每次同步触发时重新调用，绝不缓存旧的读数
type PublishSource func() PublishView

// SyncPublisher 排行榜同步发布器
// 固定周期把实时分数合并写入排行榜，失败只记录日志，游戏不中断
type SyncPublisher struct {
	interval time.Duration
	source   PublishSource
	repo     repository.LeaderboardRepository
	onMerged func()
}

// NewSyncPublisher 创建同步发布器
// onMerged在每次成功合并后触发（可为nil），订阅端挂在这里刷新
func NewSyncPublisher(interval time.Duration, source PublishSource, repo repository.LeaderboardRepository, onMerged func()) *SyncPublisher {
	return &SyncPublisher{
		interval: interval,
		source:   source,
		repo:     repo,
		onMerged: onMerged,
	}
}

// Run 运行同步循环直到ctx取消
func (p *SyncPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Publish(ctx)
		}
	}
}

// Publish 执行一次同步
// 分数为0不写入，未知的显示名称不参与合并
func (p *SyncPublisher) Publish(ctx context.Context) {
	view := p.source()
	if !view.Known || view.Score <= 0 {
		return
	}

	entry := &models.LeaderboardEntry{
		IdentityToken: view.IdentityToken,
		Score:         view.Score,
		UserName:      view.Name,
		UpdatedAtMs:   time.Now().UnixMilli(),
	}

	err := p.repo.Merge(ctx, entry, view.Name != "")
	logger.LogSyncEvent(view.IdentityToken, view.Score, err == nil, err)
	if err == nil && p.onMerged != nil {
		p.onMerged()
	}
}
