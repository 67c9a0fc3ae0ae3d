package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"golang.org/x/text/cases"
)

// EnumLookup 按类型组读取枚举值
type EnumLookup interface {
	ListEnumItemsByTypes(ctx context.Context, typeIDs []int64) ([]entity.EnumItem, error)
}

// ColorLookup 按 (标题, 色组) 查找颜色
type ColorLookup interface {
	FindColorID(ctx context.Context, title, groupTitle string) (*int64, error)
}

// FilterBySelection 只保留当前取值在 selected 中的记录（精确、区分大小写）。
// selected 为空时不做过滤；selected 中匹配不到任何记录的值直接忽略。
func FilterBySelection(records []entity.ParamRecord, selected []string) []entity.ParamRecord {
	if len(selected) == 0 {
		return records
	}
	want := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		want[v] = struct{}{}
	}

	out := make([]entity.ParamRecord, 0, len(records))
	for _, rec := range records {
		text, ok := rec.Value.Display()
		if !ok {
			continue
		}
		if _, hit := want[text]; hit {
			out = append(out, rec)
		}
	}
	return out
}

// recordIDs 记录ID列表
func recordIDs(records []entity.ParamRecord) []int64 {
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids
}

// foldCode 品种编码比较用的规范形式：去首尾空白后做 Unicode 大小写折叠
func foldCode(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// BreedResolution 木材改写的逐条解析结果
type BreedResolution struct {
	// Assignments 记录ID -> 目标枚举值ID
	Assignments map[int64]int64
	// Unresolved 所在类型组里没有目标编码的记录，保持原值
	Unresolved []int64
	// Changed 解析后取值确实发生变化的记录数
	Changed int64
}

// ResolveBreed 逐条记录在其当前枚举值所属的类型组内查找目标编码。
// 不同记录可能属于不同类型组，因此写入值按记录各自确定，永远不会跨组。
func ResolveBreed(ctx context.Context, lookup EnumLookup, records []entity.ParamRecord, targetCode string) (*BreedResolution, error) {
	res := &BreedResolution{Assignments: make(map[int64]int64, len(records))}
	if len(records) == 0 {
		return res, nil
	}

	typeSet := make(map[int64]struct{})
	typeIDs := make([]int64, 0)
	for _, rec := range records {
		slot, ok := rec.EnumValue()
		if !ok || slot.TypeID == nil {
			continue
		}
		if _, seen := typeSet[*slot.TypeID]; !seen {
			typeSet[*slot.TypeID] = struct{}{}
			typeIDs = append(typeIDs, *slot.TypeID)
		}
	}

	items, err := lookup.ListEnumItemsByTypes(ctx, typeIDs)
	if err != nil {
		return nil, err
	}

	// 每个类型组取 ID 最小的匹配项
	target := foldCode(targetCode)
	match := make(map[int64]int64, len(typeIDs))
	for _, item := range items {
		if foldCode(item.Code) != target {
			continue
		}
		if cur, ok := match[item.TypeID]; !ok || item.ID < cur {
			match[item.TypeID] = item.ID
		}
	}

	for _, rec := range records {
		slot, ok := rec.EnumValue()
		if !ok || slot.TypeID == nil {
			res.Unresolved = append(res.Unresolved, rec.ID)
			continue
		}
		itemID, found := match[*slot.TypeID]
		if !found {
			res.Unresolved = append(res.Unresolved, rec.ID)
			continue
		}
		res.Assignments[rec.ID] = itemID
		if slot.ItemID == nil || *slot.ItemID != itemID {
			res.Changed++
		}
	}
	return res, nil
}

// ColorResolution 颜色改写的解析结果，所有记录共用一个写入值
type ColorResolution struct {
	// ColorID nil 表示 (标题, 色组) 没有匹配，记录将被置空
	ColorID *int64
	Changed int64
}

// ResolveColor 按 (标题, 色组) 精确解析颜色。找不到时写入空值，不视为错误。
func ResolveColor(ctx context.Context, lookup ColorLookup, records []entity.ParamRecord, title, groupTitle string) (*ColorResolution, error) {
	colorID, err := lookup.FindColorID(ctx, title, groupTitle)
	if err != nil {
		return nil, err
	}
	res := &ColorResolution{ColorID: colorID}
	for _, rec := range records {
		slot, _ := rec.ColorValue()
		if !sameRef(slot.ColorID, colorID) {
			res.Changed++
		}
	}
	return res, nil
}

func sameRef(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
