package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/founder-game/internal/models"
	"gorm.io/gorm"
)

// LeaderboardRepositoryTestSuite 排行榜仓储测试套件
type LeaderboardRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo LeaderboardRepository
}

func (suite *LeaderboardRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.repo = NewLeaderboardRepository(suite.db)
}

func (suite *LeaderboardRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *LeaderboardRepositoryTestSuite) merge(token string, score int64, name string, includeName bool) {
	err := suite.repo.Merge(context.Background(), &models.LeaderboardEntry{
		IdentityToken: token,
		Score:         score,
		UserName:      name,
		UpdatedAtMs:   time.Now().UnixMilli(),
	}, includeName)
	suite.Require().NoError(err)
}

// TestLeaderboardRepository_MergeCreate 测试首次合并写入
func (suite *LeaderboardRepositoryTestSuite) TestLeaderboardRepository_MergeCreate() {
	suite.merge("guest_a", 100, "创业者A", true)

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), entry)
	assert.Equal(suite.T(), int64(100), entry.Score)
	assert.Equal(suite.T(), "创业者A", entry.UserName)
}

// TestLeaderboardRepository_MergePreservesName 测试未知名称不覆盖已有名称
func (suite *LeaderboardRepositoryTestSuite) TestLeaderboardRepository_MergePreservesName() {
	// 另一个会话写入了名称
	suite.merge("guest_a", 100, "创业者A", true)

	// 本会话不知道名称，只更新分数
	suite.merge("guest_a", 500, "", false)

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), entry.Score)
	assert.Equal(suite.T(), "创业者A", entry.UserName, "合并写入不得清掉已有名称")
}

// TestLeaderboardRepository_MergeUpdatesName 测试已知名称随合并更新
func (suite *LeaderboardRepositoryTestSuite) TestLeaderboardRepository_MergeUpdatesName() {
	suite.merge("guest_a", 100, "旧名字", true)
	suite.merge("guest_a", 200, "新名字", true)

	entry, err := suite.repo.Get(context.Background(), "guest_a")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "新名字", entry.UserName)
}

// TestLeaderboardRepository_Top 测试按分数倒序截断
func (suite *LeaderboardRepositoryTestSuite) TestLeaderboardRepository_Top() {
	scores := []int64{50, 900, 300, 120, 700, 10, 880, 420, 230, 640, 75, 999}
	for i, score := range scores {
		suite.merge(string(rune('a'+i))+"_token", score, "", false)
	}

	top, err := suite.repo.Top(context.Background(), 10)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), top, 10)

	// 严格倒序
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(suite.T(), top[i-1].Score, top[i].Score)
	}
	assert.Equal(suite.T(), int64(999), top[0].Score)

	// 最低的两个分数被截断
	for _, entry := range top {
		assert.NotEqual(suite.T(), int64(10), entry.Score)
		assert.NotEqual(suite.T(), int64(50), entry.Score)
	}
}

// TestLeaderboardRepository_OneEntryPerIdentity 测试每个身份至多一条
func (suite *LeaderboardRepositoryTestSuite) TestLeaderboardRepository_OneEntryPerIdentity() {
	suite.merge("guest_a", 100, "", false)
	suite.merge("guest_a", 200, "", false)
	suite.merge("guest_a", 300, "", false)

	var count int64
	suite.db.Model(&models.LeaderboardEntry{}).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

func TestLeaderboardRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(LeaderboardRepositoryTestSuite))
}
