package entity

import (
	"fmt"
	"strings"
)

// AddParam 附加件上的参数记录（ADDS 路径）
type AddParam struct {
	ID             int64  `gorm:"column:id;primaryKey"`
	OrderItemAddID int64  `gorm:"column:orderitemaddid;index"`
	ParamID        int64  `gorm:"column:paramid;index"`
	EnumValueID    *int64 `gorm:"column:enumvalueid"`
	ColorValueID   *int64 `gorm:"column:colorvalueid"`
}

func (AddParam) TableName() string {
	return "orders_items_adds_setparams"
}

// ItemParam 订单行上直接挂的参数记录（STUFFSETS 路径）
type ItemParam struct {
	ID           int64  `gorm:"column:id;primaryKey"`
	OrderItemID  int64  `gorm:"column:orderitemid;index"`
	ParamID      int64  `gorm:"column:paramid;index"`
	EnumValueID  *int64 `gorm:"column:enumvalueid"`
	ColorValueID *int64 `gorm:"column:colorvalueid"`
}

func (ItemParam) TableName() string {
	return "orders_items_setparams"
}

// Scope 参数记录所在的结构路径
type Scope string

const (
	ScopeAdds      Scope = "ADDS"
	ScopeStuffsets Scope = "STUFFSETS"
)

// ParseScope 解析 scope 参数，大小写不敏感
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(s))) {
	case ScopeAdds:
		return ScopeAdds, nil
	case ScopeStuffsets:
		return ScopeStuffsets, nil
	}
	return "", fmt.Errorf("unknown scope %q", s)
}

// Label 用于日志和指标标签
func (s Scope) Label() string {
	return strings.ToLower(string(s))
}

// Family 被改写的属性族
type Family string

const (
	FamilyBreed Family = "breed"
	FamilyColor Family = "color"
)

// ParseFamily 解析 family 参数，wood 视为 breed
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breed", "wood":
		return FamilyBreed, nil
	case "color", "colour":
		return FamilyColor, nil
	}
	return "", fmt.Errorf("unknown family %q", s)
}

// ValueColumn 该属性族在参数记录上使用的取值列
func (f Family) ValueColumn() string {
	if f == FamilyColor {
		return "colorvalueid"
	}
	return "enumvalueid"
}

// ValueSlot 参数记录的取值：枚举值或颜色，二者互斥
type ValueSlot interface {
	// Display 当前取值的展示文本；未赋值时 ok 为 false
	Display() (text string, ok bool)
	slot()
}

// EnumSlot 枚举取值（木材品种）
type EnumSlot struct {
	ItemID *int64
	Code   *string
	TypeID *int64
}

func (s EnumSlot) Display() (string, bool) {
	if s.Code == nil {
		return "", false
	}
	return *s.Code, true
}

func (EnumSlot) slot() {}

// ColorSlot 颜色取值
type ColorSlot struct {
	ColorID *int64
	Title   *string
}

func (s ColorSlot) Display() (string, bool) {
	if s.Title == nil {
		return "", false
	}
	return *s.Title, true
}

func (ColorSlot) slot() {}

// ParamRecord 参数记录（读模型）
type ParamRecord struct {
	ID      int64
	ParamID int64
	Scope   Scope
	Value   ValueSlot
}

// EnumValue 返回枚举取值；颜色记录返回 false
func (r ParamRecord) EnumValue() (EnumSlot, bool) {
	s, ok := r.Value.(EnumSlot)
	return s, ok
}

// ColorValue 返回颜色取值；枚举记录返回 false
func (r ParamRecord) ColorValue() (ColorSlot, bool) {
	s, ok := r.Value.(ColorSlot)
	return s, ok
}
