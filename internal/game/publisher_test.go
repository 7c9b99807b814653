package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/founder-game/internal/models"
	"github.com/wfunc/founder-game/internal/repository"
	"gorm.io/gorm"
)

// SyncPublisherTestSuite 排行榜同步发布器测试套件
type SyncPublisherTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo repository.LeaderboardRepository
}

func (suite *SyncPublisherTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.repo = repository.NewLeaderboardRepository(suite.db)
}

func (suite *SyncPublisherTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *SyncPublisherTestSuite) count() int64 {
	var count int64
	suite.db.Model(&models.LeaderboardEntry{}).Count(&count)
	return count
}

// TestSyncPublisher_SkipZeroScore 测试分数为0时不写入
func (suite *SyncPublisherTestSuite) TestSyncPublisher_SkipZeroScore() {
	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: 0, Known: true}
	}, suite.repo, nil)

	publisher.Publish(context.Background())
	assert.Equal(suite.T(), int64(0), suite.count())
}

// TestSyncPublisher_SkipUnknownSource 测试来源无身份时跳过
func (suite *SyncPublisherTestSuite) TestSyncPublisher_SkipUnknownSource() {
	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{}
	}, suite.repo, nil)

	publisher.Publish(context.Background())
	assert.Equal(suite.T(), int64(0), suite.count())
}

// TestSyncPublisher_ReadsLiveState 测试每次同步读取实时状态
func (suite *SyncPublisherTestSuite) TestSyncPublisher_ReadsLiveState() {
	score := int64(100)
	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: score, Known: true}
	}, suite.repo, nil)

	publisher.Publish(context.Background())
	score = 700
	publisher.Publish(context.Background())

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(700), entry.Score, "同步必须读取触发时刻的分数")
}

// TestSyncPublisher_UnknownNameDoesNotClobber 测试未知名称不覆盖已有名称
func (suite *SyncPublisherTestSuite) TestSyncPublisher_UnknownNameDoesNotClobber() {
	// 另一个会话已写入名称
	err := suite.repo.Merge(context.Background(), &models.LeaderboardEntry{
		IdentityToken: "guest_a",
		Score:         100,
		UserName:      "创业者A",
		UpdatedAtMs:   time.Now().UnixMilli(),
	}, true)
	suite.Require().NoError(err)

	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: 500, Known: true}
	}, suite.repo, nil)
	publisher.Publish(context.Background())

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), entry.Score)
	assert.Equal(suite.T(), "创业者A", entry.UserName)
}

// TestSyncPublisher_NamePublishedWhenKnown 测试已知名称随同步写入
func (suite *SyncPublisherTestSuite) TestSyncPublisher_NamePublishedWhenKnown() {
	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: 100, Name: "满血创业者", Known: true}
	}, suite.repo, nil)
	publisher.Publish(context.Background())

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "满血创业者", entry.UserName)
}

// TestSyncPublisher_OnMerged 测试成功合并后触发刷新回调
func (suite *SyncPublisherTestSuite) TestSyncPublisher_OnMerged() {
	merged := 0
	score := int64(0)
	publisher := NewSyncPublisher(time.Second, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: score, Known: true}
	}, suite.repo, func() { merged++ })

	// 分数为0被跳过，不触发回调
	publisher.Publish(context.Background())
	assert.Equal(suite.T(), 0, merged)

	score = 10
	publisher.Publish(context.Background())
	assert.Equal(suite.T(), 1, merged)
}

// TestSyncPublisher_RunStopsOnCancel 测试循环随ctx退出
func (suite *SyncPublisherTestSuite) TestSyncPublisher_RunStopsOnCancel() {
	publisher := NewSyncPublisher(10*time.Millisecond, func() PublishView {
		return PublishView{IdentityToken: "guest_a", Score: 1, Known: true}
	}, suite.repo, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		publisher.Run(ctx)
		close(done)
	}()

	assert.Eventually(suite.T(), func() bool {
		return suite.count() == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		suite.T().Fatal("同步循环未随ctx退出")
	}
}

func TestSyncPublisherTestSuite(t *testing.T) {
	suite.Run(t, new(SyncPublisherTestSuite))
}
