package repository

import "gorm.io/gorm"

// BaseRepository 仓储公共能力
type BaseRepository interface {
	// GetDB 获取数据库实例
	GetDB() *gorm.DB
	// WithTx 返回绑定到事务的仓储
	WithTx(tx *gorm.DB) BaseRepository
}

// BaseRepo 各仓储内嵌的公共实现
type BaseRepo struct {
	db *gorm.DB
}

// GetDB 获取数据库实例
func (r *BaseRepo) GetDB() *gorm.DB {
	return r.db
}
