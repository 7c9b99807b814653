package models

import (
	"time"
)

// SnapshotSchemaVersion 存档结构版本，字段变更时递增并在加载处做迁移
const SnapshotSchemaVersion = 1

// PlayerSnapshot 玩家本地存档表
// 以身份令牌（访客ID或钱包地址）为键，每次状态变更整体覆盖写入
type PlayerSnapshot struct {
	BaseModel
	IdentityToken    string `gorm:"uniqueIndex;size:64;not null" json:"identity_token"`
	Balance          int64  `gorm:"not null;default:0" json:"balance"`
	LifetimeEarnings int64  `gorm:"not null;default:0" json:"lifetime_earnings"`
	ClickPower       int64  `gorm:"not null;default:1" json:"click_power"`
	AutoRate         int64  `gorm:"not null;default:0" json:"auto_rate"`
	Inventory        string `gorm:"type:text" json:"inventory"` // JSON格式的升级持有表
	HasMinted        bool   `gorm:"default:false" json:"has_minted"`
	MintAddress      string `gorm:"size:128" json:"mint_address"`
	SchemaVersion    int    `gorm:"default:1" json:"schema_version"`
	SavedAt          time.Time `json:"saved_at"` // 最后一次变更时间，仅作存档标记
}

// TableName 指定表名
func (PlayerSnapshot) TableName() string {
	return "player_snapshots"
}

// PlayerName 玩家显示名称表
// 与数值存档分开存储，任意一侧损坏不影响另一侧
type PlayerName struct {
	BaseModel
	IdentityToken string `gorm:"uniqueIndex;size:64;not null" json:"identity_token"`
	Name          string `gorm:"size:50" json:"name"`
}

// TableName 指定表名
func (PlayerName) TableName() string {
	return "player_names"
}

// PlayerFlag 玩家标记表（如新手引导已读）
type PlayerFlag struct {
	BaseModel
	IdentityToken string `gorm:"uniqueIndex:idx_flag_identity_key;size:64;not null" json:"identity_token"`
	Key           string `gorm:"uniqueIndex:idx_flag_identity_key;size:32;not null" json:"key"`
	Value         bool   `gorm:"default:false" json:"value"`
}

// TableName 指定表名
func (PlayerFlag) TableName() string {
	return "player_flags"
}

// 标记键
const (
	FlagTutorialSeen = "tutorial_seen"
)

// LeaderboardEntry 排行榜条目表（共享存储，按身份令牌唯一）
type LeaderboardEntry struct {
	BaseModel
	IdentityToken string    `gorm:"uniqueIndex;size:64;not null" json:"identity_token"`
	Score         int64     `gorm:"not null;default:0;index" json:"score"`
	UserName      string    `gorm:"size:50" json:"user_name,omitempty"`
	UpdatedAtMs   int64     `gorm:"not null;default:0" json:"updated_at_ms"`
	SyncedAt      time.Time `json:"synced_at"`
}

// TableName 指定表名
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
