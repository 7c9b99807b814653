package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/founder-game/internal/config"
	"github.com/wfunc/founder-game/internal/errors"
	"github.com/wfunc/founder-game/internal/identity"
	"github.com/wfunc/founder-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionTestSuite 玩家会话测试套件
type SessionTestSuite struct {
	suite.Suite
	db       *gorm.DB
	snapRepo repository.SnapshotRepository
	lbRepo   repository.LeaderboardRepository
	settings repository.SettingRepository
	manager  *Manager
}

func (suite *SessionTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.snapRepo = repository.NewSnapshotRepository(suite.db)
	suite.lbRepo = repository.NewLeaderboardRepository(suite.db)
	suite.settings = repository.NewSettingRepository(suite.db)
	suite.manager = NewManager(suite.gameConfig(), suite.snapRepo, suite.lbRepo, suite.settings, NewDevMinter(), zap.NewNop())
}

func (suite *SessionTestSuite) TearDownTest() {
	suite.manager.Shutdown(context.Background())
	repository.CleanupTestDB(suite.db)
}

func (suite *SessionTestSuite) gameConfig() *config.GameConfig {
	// 计时器周期拉长，测试里的状态变化全部由显式操作驱动
	return &config.GameConfig{
		TickInterval:      time.Hour,
		SyncInterval:      time.Hour,
		InitialClickPower: 1,
		MintThreshold:     100000,
		LeaderboardSize:   10,
		SessionTimeout:    time.Hour,
		MaxSessions:       10,
	}
}

func (suite *SessionTestSuite) createSession(priorToken string) *PlayerSession {
	session, err := suite.manager.CreateSession(context.Background(), priorToken)
	suite.Require().NoError(err)
	return session
}

// TestSession_GuestResolvedOnCreate 测试会话创建时解析访客身份
func (suite *SessionTestSuite) TestSession_GuestResolvedOnCreate() {
	session := suite.createSession("")

	ident := session.Identity()
	assert.Equal(suite.T(), identity.KindGuest, ident.Kind)
	assert.Contains(suite.T(), ident.Token, "guest_")

	// 令牌已持久化，下次启动复用
	stored, err := suite.settings.Get(context.Background(), repository.GuestTokenKey)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), ident.Token, stored)
}

// TestSession_PriorTokenReused 测试客户端自带令牌直接复用
func (suite *SessionTestSuite) TestSession_PriorTokenReused() {
	session := suite.createSession("guest_prior")
	assert.Equal(suite.T(), "guest_prior", session.Identity().Token)
}

// TestSession_ClickPersists 测试点击后立即落档
func (suite *SessionTestSuite) TestSession_ClickPersists() {
	session := suite.createSession("guest_a")

	session.Click()
	session.Click()
	view := session.Click()
	assert.Equal(suite.T(), int64(3), view.Balance)
	assert.Equal(suite.T(), int64(3), view.LifetimeEarnings)

	// 每次变更都同步写入，存档和内存一致
	saved, err := suite.snapRepo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(saved)
	assert.Equal(suite.T(), int64(3), saved.Balance)
	assert.Equal(suite.T(), int64(3), saved.LifetimeEarnings)
}

// TestSession_BuyUpdatesSaveAndRate 测试购买后的存档与产出速率
func (suite *SessionTestSuite) TestSession_BuyUpdatesSaveAndRate() {
	session := suite.createSession("guest_a")

	for i := 0; i < 15; i++ {
		session.Click()
	}
	view, err := session.Buy(1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), view.Balance)
	assert.Equal(suite.T(), int64(1), view.AutoRate)
	assert.Equal(suite.T(), int64(1), view.Inventory[1])

	saved, err := suite.snapRepo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), saved.AutoRate)
	assert.JSONEq(suite.T(), `{"1":1}`, saved.Inventory)
}

// TestSession_BuyInsufficientFunds 测试余额不足时购买失败且状态不变
func (suite *SessionTestSuite) TestSession_BuyInsufficientFunds() {
	session := suite.createSession("guest_a")
	session.Click()

	view, err := session.Buy(1)
	assert.Equal(suite.T(), errors.ErrInsufficientFunds, errors.GetCode(err))
	assert.Equal(suite.T(), int64(1), view.Balance)
	assert.Empty(suite.T(), view.Inventory)
}

// TestSession_IdentitySwitchReplacesState 测试身份切换时状态整体替换
func (suite *SessionTestSuite) TestSession_IdentitySwitchReplacesState() {
	session := suite.createSession("guest_a")

	// 访客积累进度
	for i := 0; i < 5; i++ {
		session.Click()
	}
	assert.Equal(suite.T(), int64(5), session.View().Balance)

	// 连接钱包：进度不迁移，从钱包自己的存档开始
	ident, err := session.ConnectWallet("0xabc")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), identity.KindWallet, ident.Kind)
	assert.Equal(suite.T(), "0xabc", ident.Token)
	assert.Equal(suite.T(), int64(0), session.View().Balance)

	// 钱包身份下积累不同的进度
	for i := 0; i < 7; i++ {
		session.Click()
	}

	// 断开钱包：回到访客身份，访客进度原样恢复
	ident, err = session.DisconnectWallet(context.Background())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "guest_a", ident.Token)
	assert.Equal(suite.T(), int64(5), session.View().Balance)

	// 再次连接钱包：钱包进度也原样恢复
	_, err = session.ConnectWallet("0xabc")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(7), session.View().Balance)

	// 两份存档在库里相互独立
	guestSave, _ := suite.snapRepo.Get(context.Background(), "guest_a")
	walletSave, _ := suite.snapRepo.Get(context.Background(), "0xabc")
	assert.Equal(suite.T(), int64(5), guestSave.Balance)
	assert.Equal(suite.T(), int64(7), walletSave.Balance)
}

// TestSession_ResetDeletesSave 测试重置清空状态并删除存档
func (suite *SessionTestSuite) TestSession_ResetDeletesSave() {
	session := suite.createSession("guest_a")
	for i := 0; i < 20; i++ {
		session.Click()
	}
	_, err := session.Buy(1)
	suite.Require().NoError(err)

	view, err := session.Reset(context.Background())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), view.Balance)
	assert.Equal(suite.T(), int64(0), view.LifetimeEarnings)
	assert.Equal(suite.T(), int64(0), view.AutoRate)
	assert.Empty(suite.T(), view.Inventory)

	saved, err := suite.snapRepo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), saved)
}

// TestSession_MintFlow 测试成就铸造全流程
func (suite *SessionTestSuite) TestSession_MintFlow() {
	session := suite.createSession("guest_a")

	// 未达阈值时拒绝
	_, err := session.RequestMint(context.Background())
	assert.Equal(suite.T(), errors.ErrMintNotEligible, errors.GetCode(err))

	// 预置一份达标存档，重新加载后可铸造
	_, err = session.ConnectWallet("0xrich")
	suite.Require().NoError(err)
	err = suite.snapRepo.Save(context.Background(), snapshotRecord("0xrich", 100000, 100000))
	suite.Require().NoError(err)
	_, err = session.DisconnectWallet(context.Background())
	suite.Require().NoError(err)
	_, err = session.ConnectWallet("0xrich")
	suite.Require().NoError(err)

	view, err := session.RequestMint(context.Background())
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), view.HasMinted)
	assert.NotEmpty(suite.T(), view.MintAddress)

	// 标记与凭证成对落档
	saved, err := suite.snapRepo.Get(context.Background(), "0xrich")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), saved.HasMinted)
	assert.Equal(suite.T(), view.MintAddress, saved.MintAddress)

	// 一次性：第二次铸造被拒绝
	_, err = session.RequestMint(context.Background())
	assert.Equal(suite.T(), errors.ErrAlreadyMinted, errors.GetCode(err))
}

// TestSession_MintFailureLeavesStateUnchanged 测试铸造失败时状态不变
func (suite *SessionTestSuite) TestSession_MintFailureLeavesStateUnchanged() {
	manager := NewManager(suite.gameConfig(), suite.snapRepo, suite.lbRepo, suite.settings, failingMinter{}, zap.NewNop())
	defer manager.Shutdown(context.Background())

	err := suite.snapRepo.Save(context.Background(), snapshotRecord("guest_m", 100000, 100000))
	suite.Require().NoError(err)

	session, err := manager.CreateSession(context.Background(), "guest_m")
	suite.Require().NoError(err)

	view, err := session.RequestMint(context.Background())
	assert.Equal(suite.T(), errors.ErrMintFailed, errors.GetCode(err))
	assert.False(suite.T(), view.HasMinted)
	assert.Empty(suite.T(), view.MintAddress)

	// 失败可重试，门槛仍然放行
	assert.True(suite.T(), view.MintUnlocked)
}

// TestSession_SetName 测试显示名称设置
func (suite *SessionTestSuite) TestSession_SetName() {
	session := suite.createSession("guest_a")

	err := session.SetName(context.Background(), "  满血创业者  ")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "满血创业者", session.View().Name)

	err = session.SetName(context.Background(), "   ")
	assert.Equal(suite.T(), errors.ErrInvalidParam, errors.GetCode(err))

	// 名称独立于数值存档
	name, err := suite.snapRepo.GetName(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "满血创业者", name)
}

// TestSession_TutorialFlag 测试新手引导标记
func (suite *SessionTestSuite) TestSession_TutorialFlag() {
	session := suite.createSession("guest_a")
	assert.False(suite.T(), session.View().TutorialSeen)

	err := session.MarkTutorialSeen(context.Background())
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), session.View().TutorialSeen)
}

// TestSession_Shop 测试商店条目反映当前价格和持有数
func (suite *SessionTestSuite) TestSession_Shop() {
	session := suite.createSession("guest_a")

	items := session.Shop()
	suite.Require().Len(items, 5)
	assert.Equal(suite.T(), int64(15), items[0].NextCost)
	assert.Equal(suite.T(), int64(0), items[0].Owned)

	for i := 0; i < 15; i++ {
		session.Click()
	}
	_, err := session.Buy(1)
	suite.Require().NoError(err)

	items = session.Shop()
	assert.Equal(suite.T(), int64(17), items[0].NextCost)
	assert.Equal(suite.T(), int64(1), items[0].Owned)
}

// TestManager_SessionLimit 测试会话数量上限
func (suite *SessionTestSuite) TestManager_SessionLimit() {
	cfg := suite.gameConfig()
	cfg.MaxSessions = 2
	manager := NewManager(cfg, suite.snapRepo, suite.lbRepo, suite.settings, NewDevMinter(), zap.NewNop())
	defer manager.Shutdown(context.Background())

	_, err := manager.CreateSession(context.Background(), "guest_1")
	assert.NoError(suite.T(), err)
	_, err = manager.CreateSession(context.Background(), "guest_2")
	assert.NoError(suite.T(), err)

	_, err = manager.CreateSession(context.Background(), "guest_3")
	assert.Equal(suite.T(), errors.ErrSessionLimit, errors.GetCode(err))
}

// TestManager_GetAndClose 测试会话查找与关闭
func (suite *SessionTestSuite) TestManager_GetAndClose() {
	session := suite.createSession("guest_a")

	found, err := suite.manager.Get(session.ID())
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), session.ID(), found.ID())

	_, err = suite.manager.Get("missing")
	assert.Equal(suite.T(), errors.ErrSessionNotFound, errors.GetCode(err))

	suite.manager.Close(context.Background(), session.ID())
	_, err = suite.manager.Get(session.ID())
	assert.Equal(suite.T(), errors.ErrSessionNotFound, errors.GetCode(err))
}

// TestManager_CloseFlushesScore 测试关闭时补写最终分数
func (suite *SessionTestSuite) TestManager_CloseFlushesScore() {
	session := suite.createSession("guest_a")
	for i := 0; i < 3; i++ {
		session.Click()
	}

	suite.manager.Close(context.Background(), session.ID())

	entry, err := suite.lbRepo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(entry)
	assert.Equal(suite.T(), int64(3), entry.Score)
}

// TestManager_CloseSkipsZeroScore 测试零分会话关闭时不写排行榜
func (suite *SessionTestSuite) TestManager_CloseSkipsZeroScore() {
	session := suite.createSession("guest_a")
	suite.manager.Close(context.Background(), session.ID())

	entry, err := suite.lbRepo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), entry)
}

// TestSession_AutoTick 测试自动产出计时器
func (suite *SessionTestSuite) TestSession_AutoTick() {
	cfg := suite.gameConfig()
	cfg.TickInterval = 10 * time.Millisecond
	manager := NewManager(cfg, suite.snapRepo, suite.lbRepo, suite.settings, NewDevMinter(), zap.NewNop())
	defer manager.Shutdown(context.Background())

	// 预置带自动产出的存档
	err := suite.snapRepo.Save(context.Background(), snapshotRecordWithRate("guest_t", 0, 0, `{"1":3}`))
	suite.Require().NoError(err)

	session, err := manager.CreateSession(context.Background(), "guest_t")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), session.View().AutoRate)

	assert.Eventually(suite.T(), func() bool {
		view := session.View()
		// 每个周期恰好加一次autoRate
		return view.Balance > 0 && view.Balance%3 == 0 && view.Balance == view.LifetimeEarnings
	}, time.Second, 5*time.Millisecond)
}

// failingMinter 恒定失败的铸造器
type failingMinter struct{}

func (failingMinter) Mint(ctx context.Context, player identity.Identity, lifetimeEarnings int64) (string, error) {
	return "", errors.New(errors.ErrMintFailed, "链上不可用")
}

func TestSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
