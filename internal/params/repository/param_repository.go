package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scopePath 从订单行到参数记录的结构路径。两条路径的叶子是同一种参数记录。
type scopePath struct {
	table string
	joins string
	cond  string
}

var scopePaths = map[entity.Scope]scopePath{
	entity.ScopeAdds: {
		table: entity.AddParam{}.TableName(),
		joins: "JOIN orders_items_adds oia ON oia.id = p.orderitemaddid " +
			"JOIN orders_items oi ON oi.id = oia.orderitemid",
	},
	entity.ScopeStuffsets: {
		table: entity.ItemParam{}.TableName(),
		joins: "JOIN orders_items oi ON oi.id = p.orderitemid",
		cond:  "oi.stuffsetid IS NOT NULL",
	},
}

func pathOf(scope entity.Scope) (scopePath, error) {
	p, ok := scopePaths[scope]
	if !ok {
		return scopePath{}, fmt.Errorf("unknown scope %q", scope)
	}
	return p, nil
}

// rewriteBatchSize 单条改写语句最多覆盖的记录数。
// 木材 CASE 每条记录占 3 个绑定参数，Postgres 单语句上限 65535。
const rewriteBatchSize = 10000

type ParamRepository struct {
	db    *gorm.DB
	sel   FamilySelector
	batch int
}

func NewParamRepository(db *gorm.DB, sel FamilySelector) *ParamRepository {
	return &ParamRepository{db: db, sel: sel, batch: rewriteBatchSize}
}

func (r *ParamRepository) DB() *gorm.DB {
	return r.db
}

// Transaction 在单个事务内执行 fn，fn 返回错误则回滚
func (r *ParamRepository) Transaction(ctx context.Context, fn func(tx *ParamRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ParamRepository{db: tx, sel: r.sel, batch: r.batch})
	})
}

// FamilyParamIDs 属于指定属性族的参数定义ID
func (r *ParamRepository) FamilyParamIDs(ctx context.Context, family entity.Family) ([]int64, error) {
	var params []entity.StructParam
	query := r.db.WithContext(ctx).Model(&entity.StructParam{})
	switch family {
	case entity.FamilyBreed:
		query = query.Where("name LIKE ?", "%"+r.sel.BreedMarker+"%")
	case entity.FamilyColor:
		query = query.Where("paramtype = ?", r.sel.ColorParamType)
	default:
		return nil, fmt.Errorf("unknown family %q", family)
	}
	if err := query.Order("id").Find(&params).Error; err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(params))
	for _, p := range params {
		// LIKE 在部分数据库上不区分大小写，这里再按原样子串过滤一次
		if family == entity.FamilyBreed && !strings.Contains(p.Name, r.sel.BreedMarker) {
			continue
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

type paramRow struct {
	ID           int64
	ParamID      int64
	EnumValueID  *int64
	ColorValueID *int64
	EnumCode     *string
	EnumTypeID   *int64
	ColorTitle   *string
}

func (r *ParamRepository) scoped(ctx context.Context, orderID int64, path scopePath, paramIDs []int64) *gorm.DB {
	query := r.db.WithContext(ctx).
		Table(path.table+" p").
		Joins(path.joins).
		Where("oi.orderid = ?", orderID).
		Where("p.paramid IN ?", paramIDs)
	if path.cond != "" {
		query = query.Where(path.cond)
	}
	return query
}

// Resolve 订单在指定路径和属性族下的全部参数记录，按ID排序。没有匹配记录时返回空切片。
func (r *ParamRepository) Resolve(ctx context.Context, orderID int64, scope entity.Scope, family entity.Family) ([]entity.ParamRecord, error) {
	path, err := pathOf(scope)
	if err != nil {
		return nil, err
	}
	paramIDs, err := r.FamilyParamIDs(ctx, family)
	if err != nil {
		return nil, err
	}
	if len(paramIDs) == 0 {
		return []entity.ParamRecord{}, nil
	}

	var rows []paramRow
	err = r.scoped(ctx, orderID, path, paramIDs).
		Select("p.id, p.paramid AS param_id, p.enumvalueid AS enum_value_id, p.colorvalueid AS color_value_id, " +
			"ei.code AS enum_code, ei.typeid AS enum_type_id, c.title AS color_title").
		Joins("LEFT JOIN enum_items ei ON ei.id = p.enumvalueid").
		Joins("LEFT JOIN colors c ON c.colorid = p.colorvalueid").
		Order("p.id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]entity.ParamRecord, 0, len(rows))
	for _, row := range rows {
		rec := entity.ParamRecord{ID: row.ID, ParamID: row.ParamID, Scope: scope}
		if family == entity.FamilyColor {
			rec.Value = entity.ColorSlot{ColorID: row.ColorValueID, Title: row.ColorTitle}
		} else {
			rec.Value = entity.EnumSlot{ItemID: row.EnumValueID, Code: row.EnumCode, TypeID: row.EnumTypeID}
		}
		records = append(records, rec)
	}
	return records, nil
}

// ValueCount 某个取值及其记录数
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// ValueCounts 订单在指定路径和属性族下正在使用的取值（去重、按值排序）
func (r *ParamRepository) ValueCounts(ctx context.Context, orderID int64, scope entity.Scope, family entity.Family) ([]ValueCount, error) {
	path, err := pathOf(scope)
	if err != nil {
		return nil, err
	}
	paramIDs, err := r.FamilyParamIDs(ctx, family)
	if err != nil {
		return nil, err
	}
	counts := []ValueCount{}
	if len(paramIDs) == 0 {
		return counts, nil
	}

	query := r.scoped(ctx, orderID, path, paramIDs)
	if family == entity.FamilyColor {
		query = query.Select("c.title AS value, COUNT(*) AS count").
			Joins("JOIN colors c ON c.colorid = p.colorvalueid").
			Group("c.title").
			Order("c.title")
	} else {
		query = query.Select("ei.code AS value, COUNT(*) AS count").
			Joins("JOIN enum_items ei ON ei.id = p.enumvalueid").
			Group("ei.code").
			Order("ei.code")
	}
	err = query.Scan(&counts).Error
	return counts, err
}

// ValueWrite 一次改写要写入的取值
type ValueWrite struct {
	Family entity.Family
	// PerRecord 木材：记录ID -> 新枚举值ID；未出现的记录保持原值
	PerRecord map[int64]int64
	// Shared 颜色：所有记录共用的颜色ID，nil 表示置空
	Shared *int64
}

// Rewrite 用条件更新语句改写 ids 对应记录的取值，返回影响的总行数。
// 记录数超过 batch 时按批执行，调用方负责把各批放进同一事务。
// ids 为空时语句照常执行，影响 0 行。
func (r *ParamRepository) Rewrite(ctx context.Context, scope entity.Scope, ids []int64, w ValueWrite) (int64, error) {
	path, err := pathOf(scope)
	if err != nil {
		return 0, err
	}
	if w.Family != entity.FamilyBreed && w.Family != entity.FamilyColor {
		return 0, fmt.Errorf("unknown family %q", w.Family)
	}
	if len(ids) == 0 {
		return r.rewriteBatch(ctx, path, []int64{}, w)
	}

	size := r.batch
	if size <= 0 {
		size = rewriteBatchSize
	}
	var total int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		n, err := r.rewriteBatch(ctx, path, ids[start:end], w)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (r *ParamRepository) rewriteBatch(ctx context.Context, path scopePath, ids []int64, w ValueWrite) (int64, error) {
	column := w.Family.ValueColumn()

	var value interface{}
	if w.Family == entity.FamilyBreed {
		perRecord := make(map[int64]int64, len(ids))
		for _, id := range ids {
			if v, ok := w.PerRecord[id]; ok {
				perRecord[id] = v
			}
		}
		value = enumCaseExpr(column, perRecord)
	} else if w.Shared == nil {
		value = gorm.Expr("NULL")
	} else {
		value = *w.Shared
	}

	result := r.db.WithContext(ctx).
		Table(path.table).
		Where("id IN ?", ids).
		Update(column, value)
	return result.RowsAffected, result.Error
}

// enumCaseExpr 按记录分别取值的 CASE 表达式，未命中的记录保留原值
func enumCaseExpr(column string, perRecord map[int64]int64) clause.Expr {
	if len(perRecord) == 0 {
		return gorm.Expr(column)
	}
	ids := make([]int64, 0, len(perRecord))
	for id := range perRecord {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var sb strings.Builder
	args := make([]interface{}, 0, len(ids)*2)
	sb.WriteString("CASE id")
	for _, id := range ids {
		sb.WriteString(" WHEN ? THEN ?")
		args = append(args, id, perRecord[id])
	}
	sb.WriteString(" ELSE " + column + " END")
	return gorm.Expr(sb.String(), args...)
}
