package economy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCost_Formula 测试成本公式与参考值一致
func TestCost_Formula(t *testing.T) {
	tests := []struct {
		name     string
		baseCost int64
		owned    int64
		expected int64
	}{
		{"持有0个按基础价", 15, 0, 15},
		{"持有1个", 15, 1, 17},  // floor(15×1.15) = floor(17.25)
		{"持有2个", 15, 2, 19},  // floor(15×1.15²) = floor(19.8375)
		{"持有3个", 15, 3, 22},  // floor(15×1.15³)
		{"机械键盘持有0个", 100, 0, 100},
		{"机械键盘持有1个", 100, 1, 114}, // floor(115.0...) 浮点下界
		{"实习生持有2个", 500, 2, 661},
		{"CTO持有0个", 10000, 0, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cost(tt.baseCost, tt.owned)
			want := int64(math.Floor(float64(tt.baseCost) * math.Pow(1.15, float64(tt.owned))))
			assert.Equal(t, want, got)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestCost_StrictlyIncreasing 测试价格序列严格递增
func TestCost_StrictlyIncreasing(t *testing.T) {
	for _, upgrade := range Catalog() {
		prev := int64(-1)
		for owned := int64(0); owned < 50; owned++ {
			price := Cost(upgrade.BaseCost, owned)
			assert.Greater(t, price, prev,
				"升级项 %d 在持有 %d 个时价格未递增", upgrade.ID, owned)
			prev = price
		}
	}
}

// TestCatalog 测试升级项目录
func TestCatalog(t *testing.T) {
	catalog := Catalog()
	assert.Len(t, catalog, 5)

	// 目录顺序即展示顺序
	assert.Equal(t, 1, catalog[0].ID)
	assert.Equal(t, 5, catalog[4].ID)

	// 全部为自动产出类型
	for _, u := range catalog {
		assert.Equal(t, UpgradeTypeAuto, u.Type)
		assert.Greater(t, u.BaseCost, int64(0))
		assert.Greater(t, u.Rate, int64(0))
	}

	// 返回副本，修改不影响目录
	catalog[0].BaseCost = 99999
	fresh, ok := FindUpgrade(1)
	assert.True(t, ok)
	assert.Equal(t, int64(15), fresh.BaseCost)
}

// TestFindUpgrade 测试升级项查找
func TestFindUpgrade(t *testing.T) {
	u, ok := FindUpgrade(3)
	assert.True(t, ok)
	assert.Equal(t, int64(500), u.BaseCost)
	assert.Equal(t, int64(20), u.Rate)

	_, ok = FindUpgrade(99)
	assert.False(t, ok)
}
