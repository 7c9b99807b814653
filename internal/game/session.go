package game

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/founder-game/internal/config"
	"github.com/wfunc/founder-game/internal/economy"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/identity"
	"github.com/wfunc/founder-game/internal/logger"
	"github.com/wfunc/founder-game/internal/repository"
	"go.uber.org/zap"
)

// StateView 会话状态的对外视图
type StateView struct {
	Identity         identity.Identity `json:"identity"`
	Balance          int64             `json:"balance"`
	LifetimeEarnings int64             `json:"lifetime_earnings"`
	ClickPower       int64             `json:"click_power"`
	AutoRate         int64             `json:"auto_rate"`
	Inventory        map[int]int64     `json:"inventory"`
	HasMinted        bool              `json:"has_minted"`
	MintAddress      string            `json:"mint_address,omitempty"`
	MintUnlocked     bool              `json:"mint_unlocked"`
	MintThreshold    int64             `json:"mint_threshold"`
	Name             string            `json:"name"`
	TutorialSeen     bool              `json:"tutorial_seen"`
}

// ShopItem 商店条目：升级项定义加上当前价格与持有数
type ShopItem struct {
	economy.UpgradeDefinition
	NextCost int64 `json:"next_cost"`
	Owned    int64 `json:"owned"`
}

// PlayerSession 玩家会话
// 独占持有一份经济状态，身份变更时整体替换状态并重启计时器；
// 每次状态变更立即同步写入存档
type PlayerSession struct {
	id string

	mu           sync.Mutex
	identity     identity.Identity
	state        *economy.State
	name         string
	tutorialSeen bool
	lastActive   time.Time
	minting      bool
	closed       bool

	resolver  *identity.Resolver
	snapshots *SnapshotManager
	gate      *AchievementGate
	minter    Minter
	publisher *SyncPublisher
	lbRepo    repository.LeaderboardRepository
	feed      *LeaderboardFeed
	cfg       *config.GameConfig
	logger    *zap.Logger

	// 计时器生命周期随当前身份，身份切换时整组停掉重建
	// 代数用于拦截换代瞬间已在等锁的旧计时器回调
	timersCancel context.CancelFunc
	timersDone   chan struct{}
	timerGen     uint64
}

// newPlayerSession 创建会话，由Manager调用
func newPlayerSession(
	id string,
	store identity.GuestTokenStore,
	snapshots *SnapshotManager,
	lbRepo repository.LeaderboardRepository,
	feed *LeaderboardFeed,
	minter Minter,
	cfg *config.GameConfig,
	log *zap.Logger,
) *PlayerSession {
	s := &PlayerSession{
		id:         id,
		state:      economy.NewState(cfg.InitialClickPower),
		lastActive: time.Now(),
		snapshots:  snapshots,
		gate:       NewAchievementGate(cfg.MintThreshold),
		minter:     minter,
		lbRepo:     lbRepo,
		feed:       feed,
		cfg:        cfg,
		logger:     log.With(zap.String("session", id)),
	}
	s.resolver = identity.NewResolver(store, s.logger)
	s.resolver.OnChange(s.handleIdentityChange)
	s.state.SetOnMutate(s.persistLocked)
	return s
}

// start 解析初始身份并启动计时器
func (s *PlayerSession) start(ctx context.Context) error {
	_, err := s.resolver.ResolveGuest(ctx)
	return err
}

// ID 会话标识
func (s *PlayerSession) ID() string {
	return s.id
}

// Identity 当前身份
func (s *PlayerSession) Identity() identity.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Touch 刷新活跃时间
func (s *PlayerSession) Touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive 最近活跃时间
func (s *PlayerSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// handleIdentityChange 身份变更入口
// 停掉旧身份的计时器，用新身份的存档整体替换状态，再重启计时器。
// 绝不把两个身份的进度做任何形式的合并
func (s *PlayerSession) handleIdentityChange(newIdentity identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopTimersLocked()

	snap, found, err := s.snapshots.Load(context.Background(), newIdentity.Token)
	if err != nil {
		// 读取失败按全新状态处理，不让旧身份的状态漏到新身份
		s.logger.Error("存档读取失败，按全新状态处理",
			zap.String("identity", newIdentity.Token),
			zap.Error(err),
		)
		snap = economy.Snapshot{}
		found = false
	}

	s.identity = newIdentity
	s.state.Restore(snap)
	s.name = s.snapshots.LoadName(context.Background(), newIdentity.Token)
	s.tutorialSeen = s.snapshots.TutorialSeen(context.Background(), newIdentity.Token)

	logger.LogGameEvent("identity_switched", newIdentity.Token, map[string]interface{}{
		"kind":      string(newIdentity.Kind),
		"has_save":  found,
		"balance":   s.state.Balance(),
		"auto_rate": s.state.AutoRate(),
	})

	if !s.closed {
		s.startTimersLocked()
	}
}

// startTimersLocked 启动自动产出和排行榜同步计时器
// 调用方必须持有锁
func (s *PlayerSession) startTimersLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	s.timersCancel = cancel
	done := make(chan struct{})
	s.timersDone = done
	s.timerGen++
	gen := s.timerGen

	s.publisher = NewSyncPublisher(s.cfg.SyncInterval, s.publishView, s.lbRepo, s.feed.Notify)

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()

		go s.publisher.Run(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(gen)
			}
		}
	}()
}

// stopTimersLocked 停止计时器并等待退出
// 调用方必须持有锁
func (s *PlayerSession) stopTimersLocked() {
	if s.timersCancel == nil {
		return
	}
	s.timersCancel()
	s.timersCancel = nil
	s.timersDone = nil
}

// publishView 同步发布器的实时读取入口
// 每次同步触发时调用，读到的是触发时刻的状态而不是注册时刻的
func (s *PlayerSession) publishView() PublishView {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.identity.Token == "" {
		return PublishView{}
	}
	return PublishView{
		IdentityToken: s.identity.Token,
		Score:         s.state.LifetimeEarnings(),
		Name:          s.name,
		Known:         true,
	}
}

// tick 执行一次自动产出
// 身份切换后旧代计时器的回调不再生效
func (s *PlayerSession) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.timerGen {
		return
	}
	s.state.Tick()
}

// persistLocked 状态变更后的自动存档
// 由economy.State的变更回调触发，此时会话锁已持有，
// 写入同步完成后操作才返回，保证写入顺序与变更顺序一致
func (s *PlayerSession) persistLocked() {
	if s.identity.Token == "" {
		return
	}
	if err := s.snapshots.Save(context.Background(), s.identity.Token, s.state.Snapshot()); err != nil {
		// 存档失败不中断游戏，下次变更会再写
		s.logger.Error("存档写入失败",
			zap.String("identity", s.identity.Token),
			zap.Error(err),
		)
	}
}

// Click 手动产出一次
func (s *PlayerSession) Click() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.state.Click()
	return s.viewLocked()
}

// Buy 购买一个单位的升级项
func (s *PlayerSession) Buy(upgradeID int) (StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	price, err := s.state.Buy(upgradeID)
	if err != nil {
		return s.viewLocked(), err
	}

	logger.LogGameEvent("upgrade_bought", s.identity.Token, map[string]interface{}{
		"upgrade_id": upgradeID,
		"price":      price,
		"auto_rate":  s.state.AutoRate(),
	})
	return s.viewLocked(), nil
}

// Reset 重置进度并删除存档，不可逆
func (s *PlayerSession) Reset(ctx context.Context) (StateView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	s.state.Reset()
	if err := s.snapshots.Delete(ctx, s.identity.Token); err != nil {
		s.logger.Error("存档删除失败",
			zap.String("identity", s.identity.Token),
			zap.Error(err),
		)
	}

	logger.LogGameEvent("progress_reset", s.identity.Token, nil)
	return s.viewLocked(), nil
}

// View 当前状态视图
func (s *PlayerSession) View() StateView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// viewLocked 构造状态视图，调用方必须持有锁
func (s *PlayerSession) viewLocked() StateView {
	return StateView{
		Identity:         s.identity,
		Balance:          s.state.Balance(),
		LifetimeEarnings: s.state.LifetimeEarnings(),
		ClickPower:       s.state.ClickPower(),
		AutoRate:         s.state.AutoRate(),
		Inventory:        s.state.Inventory(),
		HasMinted:        s.state.HasMinted(),
		MintAddress:      s.state.MintAddress(),
		MintUnlocked:     s.gate.Unlocked(s.state.LifetimeEarnings()),
		MintThreshold:    s.gate.Threshold(),
		Name:             s.name,
		TutorialSeen:     s.tutorialSeen,
	}
}

// Shop 商店条目列表（含当前价格与持有数）
func (s *PlayerSession) Shop() []ShopItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := economy.Catalog()
	items := make([]ShopItem, 0, len(catalog))
	for _, def := range catalog {
		owned := s.state.Owned(def.ID)
		items = append(items, ShopItem{
			UpgradeDefinition: def,
			NextCost:          economy.Cost(def.BaseCost, owned),
			Owned:             owned,
		})
	}
	return items
}

// SetName 设置显示名称
// 名称与数值存档独立保存，下次排行榜同步会带上
func (s *PlayerSession) SetName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 50 {
		return errors.New(errors.ErrInvalidParam, "名称为空或过长")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()

	if err := s.snapshots.SaveName(ctx, s.identity.Token, name); err != nil {
		return errors.Wrap(err, errors.ErrDatabaseQuery, "名称保存失败")
	}
	s.name = name
	return nil
}

// MarkTutorialSeen 记录新手引导已看过
func (s *PlayerSession) MarkTutorialSeen(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapshots.MarkTutorialSeen(ctx, s.identity.Token); err != nil {
		return err
	}
	s.tutorialSeen = true
	return nil
}

// ConnectWallet 连接钱包，触发身份切换
func (s *PlayerSession) ConnectWallet(address string) (identity.Identity, error) {
	s.Touch()
	return s.resolver.ConnectWallet(address)
}

// DisconnectWallet 断开钱包，回落到访客身份
func (s *PlayerSession) DisconnectWallet(ctx context.Context) (identity.Identity, error) {
	s.Touch()
	return s.resolver.DisconnectWallet(ctx)
}

// RequestMint 发起成就铸造
// 门槛校验和外部铸造之间不持锁，铸造完成后标记与凭证一次性落地
func (s *PlayerSession) RequestMint(ctx context.Context) (StateView, error) {
	s.mu.Lock()
	if s.minting {
		s.mu.Unlock()
		return StateView{}, errors.New(errors.ErrMintFailed, "铸造进行中")
	}
	if err := s.gate.Check(s.state.Snapshot()); err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return view, err
	}
	s.minting = true
	player := s.identity
	lifetime := s.state.LifetimeEarnings()
	s.mu.Unlock()

	proof, err := s.minter.Mint(ctx, player, lifetime)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.minting = false

	if err != nil {
		// 铸造失败状态不变，玩家可重试
		s.logger.Error("成就铸造失败",
			zap.String("identity", player.Token),
			zap.Error(err),
		)
		return s.viewLocked(), errors.Wrap(err, errors.ErrMintFailed, "铸造请求失败")
	}

	if err := s.state.CompleteMint(proof); err != nil {
		return s.viewLocked(), err
	}

	logger.LogGameEvent("achievement_minted", player.Token, map[string]interface{}{
		"proof":    proof,
		"lifetime": lifetime,
	})
	return s.viewLocked(), nil
}

// Close 关闭会话
// 先补一次排行榜同步再停计时器，保证最后的分数不丢
func (s *PlayerSession) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	publisher := s.publisher
	s.stopTimersLocked()
	s.mu.Unlock()

	if publisher != nil {
		// closed已置位，publishView返回空视图，这里直接按最终状态补写
		s.flushScore(ctx)
	}
}

// flushScore 按关闭时刻的状态补一次排行榜合并
func (s *PlayerSession) flushScore(ctx context.Context) {
	s.mu.Lock()
	token := s.identity.Token
	score := s.state.LifetimeEarnings()
	name := s.name
	s.mu.Unlock()

	if token == "" || score <= 0 {
		return
	}

	publisher := NewSyncPublisher(s.cfg.SyncInterval, func() PublishView {
		return PublishView{IdentityToken: token, Score: score, Name: name, Known: true}
	}, s.lbRepo, s.feed.Notify)
	publisher.Publish(ctx)
}
