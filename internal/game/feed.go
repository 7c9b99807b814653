package game

import (
	"context"
	"sync"
	"time"

	"github.com/wfunc/founder-game/internal/repository"
	"go.uber.org/zap"
)

// LeaderboardRow 排行榜对外条目
type LeaderboardRow struct {
	Rank          int    `json:"rank"`
	IdentityToken string `json:"identity_token"`
	UserName      string `json:"user_name"`
	Score         int64  `json:"score"`
}

// LeaderboardFeed 排行榜实时订阅源
// 每次刷新整体替换前N名快照并推送给所有订阅者，不做增量合并
type LeaderboardFeed struct {
	repo     repository.LeaderboardRepository
	size     int
	interval time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	latest    []LeaderboardRow
	listeners map[int]chan []LeaderboardRow
	nextID    int

	// 合并写入后的刷新信号，缓冲为1，重复信号合并
	kick chan struct{}
}

// NewLeaderboardFeed 创建排行榜订阅源
// interval是兜底轮询周期，正常刷新由合并写入触发
func NewLeaderboardFeed(repo repository.LeaderboardRepository, size int, interval time.Duration, logger *zap.Logger) *LeaderboardFeed {
	return &LeaderboardFeed{
		repo:      repo,
		size:      size,
		interval:  interval,
		logger:    logger,
		listeners: make(map[int]chan []LeaderboardRow),
		kick:      make(chan struct{}, 1),
	}
}

// Run 运行刷新循环直到ctx取消，取消时关闭所有订阅通道
func (f *LeaderboardFeed) Run(ctx context.Context) {
	f.refresh(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case <-f.kick:
			f.refresh(ctx)
		case <-ticker.C:
			f.refresh(ctx)
		}
	}
}

// Notify 请求一次刷新（非阻塞，重复请求合并为一次）
func (f *LeaderboardFeed) Notify() {
	select {
	case f.kick <- struct{}{}:
	default:
	}
}

// Latest 返回最近一次刷新的快照副本
func (f *LeaderboardFeed) Latest() []LeaderboardRow {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]LeaderboardRow, len(f.latest))
	copy(out, f.latest)
	return out
}

// Subscribe 注册订阅者
// 返回的通道先收到当前快照，之后每次变化推送整张榜单；
// 订阅者消费过慢时丢弃旧推送，只保留最新一份
func (f *LeaderboardFeed) Subscribe() (<-chan []LeaderboardRow, func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	ch := make(chan []LeaderboardRow, 1)
	snapshot := make([]LeaderboardRow, len(f.latest))
	copy(snapshot, f.latest)
	// 先投递当前快照再注册，推送和注册都在锁内，不会错过也不会阻塞
	ch <- snapshot
	f.listeners[id] = ch
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.listeners[id]; ok {
			delete(f.listeners, id)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// refresh 重新查询前N名并推送
func (f *LeaderboardFeed) refresh(ctx context.Context) {
	entries, err := f.repo.Top(ctx, f.size)
	if err != nil {
		// 查询失败保留上一份快照，下个周期重试
		f.logger.Error("排行榜查询失败", zap.Error(err))
		return
	}

	rows := make([]LeaderboardRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, LeaderboardRow{
			Rank:          i + 1,
			IdentityToken: entry.IdentityToken,
			UserName:      entry.UserName,
			Score:         entry.Score,
		})
	}

	f.mu.Lock()
	if rowsEqual(f.latest, rows) {
		f.mu.Unlock()
		return
	}
	f.latest = rows
	for _, ch := range f.listeners {
		push(ch, rows)
	}
	f.mu.Unlock()
}

// push 非阻塞推送，通道满时用最新快照顶掉积压的那份
func push(ch chan []LeaderboardRow, rows []LeaderboardRow) {
	for {
		select {
		case ch <- rows:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

func (f *LeaderboardFeed) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, ch := range f.listeners {
		delete(f.listeners, id)
		close(ch)
	}
}

func rowsEqual(a, b []LeaderboardRow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
