package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// FamilySelector 参数定义到属性族的映射规则
type FamilySelector struct {
	// BreedMarker 参数名包含该标记（区分大小写）即为木材参数
	BreedMarker string
	// ColorParamType 颜色参数的 paramtype 取值
	ColorParamType int
}

// DefaultFamilySelector 原库约定：名称含 "Wood" 的参数为木材，paramtype = 3 为颜色
var DefaultFamilySelector = FamilySelector{BreedMarker: "Wood", ColorParamType: 3}

// Repositories 仓库集合
type Repositories struct {
	db      *gorm.DB
	Order   *OrderRepository
	Catalog *CatalogRepository
	Param   *ParamRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, sel FamilySelector, colorGroupIDs []int64) *Repositories {
	return &Repositories{
		db:      db,
		Order:   NewOrderRepository(db),
		Catalog: NewCatalogRepository(db, colorGroupIDs),
		Param:   NewParamRepository(db, sel),
	}
}

// Ping 检查数据库连接
func (r *Repositories) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
