package entity

// StructParam 参数定义
type StructParam struct {
	ID        int64  `gorm:"column:id;primaryKey"`
	Name      string `gorm:"column:name;size:256"`
	ParamType int    `gorm:"column:paramtype"`
}

func (StructParam) TableName() string {
	return "structs_params"
}

// EnumItem 枚举值；同一 TypeID 下的枚举值互为可替换选项
type EnumItem struct {
	ID     int64  `json:"id" gorm:"column:id;primaryKey"`
	Code   string `json:"code" gorm:"column:code;size:256"`
	TypeID int64  `json:"type_id" gorm:"column:typeid;index"`
}

func (EnumItem) TableName() string {
	return "enum_items"
}

// Color 颜色；标题只在所属色组内唯一
type Color struct {
	ColorID int64  `json:"color_id" gorm:"column:colorid;primaryKey"`
	Title   string `json:"title" gorm:"column:title;size:256"`
	GroupID int64  `json:"group_id" gorm:"column:groupid;index"`
	Deleted int    `json:"-" gorm:"column:deleted;default:0"`
}

func (Color) TableName() string {
	return "colors"
}

// ColorGroup 色组
type ColorGroup struct {
	GroupID int64  `json:"group_id" gorm:"column:groupid;primaryKey"`
	Title   string `json:"title" gorm:"column:title;size:256"`
	Deleted int    `json:"-" gorm:"column:deleted;default:0"`
}

func (ColorGroup) TableName() string {
	return "colorgroup"
}
