package economy

import (
	"math"
)

// UpgradeType 升级项生效方式
type UpgradeType string

const (
	// UpgradeTypeAuto 自动产出类升级：永久增加每秒自动产出
	UpgradeTypeAuto UpgradeType = "auto"
)

// CostGrowthFactor 升级成本的指数增长系数
// 该值与向下取整策略共同决定存档兼容性，不可更改
const CostGrowthFactor = 1.15

// UpgradeDefinition 升级项定义（静态配置，进程内常量）
type UpgradeDefinition struct {
	ID       int         `json:"id"`
	Name     string      `json:"name"`
	Desc     string      `json:"desc"`
	BaseCost int64       `json:"base_cost"`
	Rate     int64       `json:"rate"`
	Type     UpgradeType `json:"type"`
}

// 升级项目录，顺序即展示顺序
var upgradeCatalog = []UpgradeDefinition{
	{ID: 1, Name: "冰美式咖啡", Desc: "提神醒脑，每秒自动写 1 行代码", BaseCost: 15, Rate: 1, Type: UpgradeTypeAuto},
	{ID: 2, Name: "机械键盘", Desc: "劈里啪啦，每秒自动写 5 行代码", BaseCost: 100, Rate: 5, Type: UpgradeTypeAuto},
	{ID: 3, Name: "实习生", Desc: "便宜好用，每秒自动写 20 行代码", BaseCost: 500, Rate: 20, Type: UpgradeTypeAuto},
	{ID: 4, Name: "GPT-4 会员", Desc: "AI 赋能，每秒自动写 100 行代码", BaseCost: 2000, Rate: 100, Type: UpgradeTypeAuto},
	{ID: 5, Name: "CTO 大佬", Desc: "架构重构，每秒自动写 500 行代码", BaseCost: 10000, Rate: 500, Type: UpgradeTypeAuto},
}

// Catalog 返回升级项目录的副本
func Catalog() []UpgradeDefinition {
	out := make([]UpgradeDefinition, len(upgradeCatalog))
	copy(out, upgradeCatalog)
	return out
}

// FindUpgrade 根据ID查找升级项
func FindUpgrade(id int) (UpgradeDefinition, bool) {
	for _, u := range upgradeCatalog {
		if u.ID == id {
			return u, true
		}
	}
	return UpgradeDefinition{}, false
}

// Cost 计算当前购买价格：floor(baseCost × 1.15^owned)
// 对非负整数输入恒有定义，无错误路径
func Cost(baseCost int64, owned int64) int64 {
	if owned <= 0 {
		return baseCost
	}
	return int64(math.Floor(float64(baseCost) * math.Pow(CostGrowthFactor, float64(owned))))
}
