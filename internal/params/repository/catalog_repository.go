package repository

import (
	"context"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"gorm.io/gorm"
)

type CatalogRepository struct {
	db            *gorm.DB
	colorGroupIDs []int64
}

func NewCatalogRepository(db *gorm.DB, colorGroupIDs []int64) *CatalogRepository {
	return &CatalogRepository{db: db, colorGroupIDs: colorGroupIDs}
}

// WithDB 返回绑定到指定连接（通常是事务）的副本
func (r *CatalogRepository) WithDB(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db, colorGroupIDs: r.colorGroupIDs}
}

// ListColorGroups 可选色组（未删除且在配置的分组内），按标题排序
func (r *CatalogRepository) ListColorGroups(ctx context.Context) ([]string, error) {
	var titles []string
	query := r.db.WithContext(ctx).
		Model(&entity.ColorGroup{}).
		Where("deleted = 0")
	if len(r.colorGroupIDs) > 0 {
		query = query.Where("groupid IN ?", r.colorGroupIDs)
	}
	err := query.Order("title").Pluck("title", &titles).Error
	return titles, err
}

// ListColorsByGroup 色组下未删除的颜色标题
func (r *CatalogRepository) ListColorsByGroup(ctx context.Context, groupTitle string) ([]string, error) {
	var titles []string
	err := r.db.WithContext(ctx).
		Table("colors c").
		Joins("JOIN colorgroup cg ON cg.groupid = c.groupid").
		Where("c.deleted = 0 AND cg.title = ?", groupTitle).
		Order("c.title").
		Pluck("c.title", &titles).Error
	return titles, err
}

// FindColorID 按 (标题, 色组标题) 精确查找颜色，找不到返回 nil
func (r *CatalogRepository) FindColorID(ctx context.Context, title, groupTitle string) (*int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Table("colors c").
		Joins("JOIN colorgroup cg ON cg.groupid = c.groupid").
		Where("c.title = ? AND cg.title = ?", title, groupTitle).
		Order("c.deleted, c.colorid").
		Limit(1).
		Pluck("c.colorid", &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

// ListEnumItemsByTypes 指定类型组下的全部枚举值
func (r *CatalogRepository) ListEnumItemsByTypes(ctx context.Context, typeIDs []int64) ([]entity.EnumItem, error) {
	var items []entity.EnumItem
	if len(typeIDs) == 0 {
		return items, nil
	}
	err := r.db.WithContext(ctx).
		Where("typeid IN ?", typeIDs).
		Order("typeid, id").
		Find(&items).Error
	return items, err
}
