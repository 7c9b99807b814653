package models

// AppSetting 本地键值存储表
type AppSetting struct {
	BaseModel
	Key   string `gorm:"uniqueIndex;size:64;not null" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

// TableName 指定表名
func (AppSetting) TableName() string {
	return "app_settings"
}
