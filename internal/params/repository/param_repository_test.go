package repository

import (
	"context"
	"testing"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyParamIDs_MarkerIsCaseSensitive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	wood := seed.Param("Wood breed", 1)
	seed.Param("wood handle", 1)
	facade := seed.Param("Facade color", 3)

	repo := NewParamRepository(db, DefaultFamilySelector)

	ids, err := repo.FamilyParamIDs(context.Background(), entity.FamilyBreed)
	require.NoError(t, err)
	assert.Equal(t, []int64{wood}, ids)

	ids, err = repo.FamilyParamIDs(context.Background(), entity.FamilyColor)
	require.NoError(t, err)
	assert.Equal(t, []int64{facade}, ids)
}

func TestResolve_ScopesAreDisjoint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Order(1001, "ORD-1001", "")
	seed.Order(1002, "ORD-1002", "")
	wood := seed.Param("Wood breed", 1)
	pine := seed.Enum(7, "Pine")

	plain := seed.Item(1001, false)
	set := seed.Item(1001, true)
	other := seed.Item(1002, true)

	addRec := seed.AddEnum(seed.Add(plain), wood, pine)
	setRec := seed.ItemEnum(set, wood, pine)
	seed.ItemEnum(plain, wood, pine)
	seed.ItemEnum(other, wood, pine)

	repo := NewParamRepository(db, DefaultFamilySelector)

	adds, err := repo.Resolve(context.Background(), 1001, entity.ScopeAdds, entity.FamilyBreed)
	require.NoError(t, err)
	require.Len(t, adds, 1)
	assert.Equal(t, addRec, adds[0].ID)
	slot, ok := adds[0].EnumValue()
	require.True(t, ok)
	assert.Equal(t, "Pine", *slot.Code)
	assert.Equal(t, int64(7), *slot.TypeID)

	sets, err := repo.Resolve(context.Background(), 1001, entity.ScopeStuffsets, entity.FamilyBreed)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, setRec, sets[0].ID)

	none, err := repo.Resolve(context.Background(), 1001, entity.ScopeAdds, entity.FamilyColor)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = repo.Resolve(context.Background(), 1001, entity.Scope("ITEMS"), entity.FamilyBreed)
	assert.Error(t, err)
}

func TestRewrite_Statement(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	seed.Order(1001, "ORD-1001", "")
	wood := seed.Param("Wood breed", 1)
	color := seed.Param("Facade color", 3)
	pine := seed.Enum(7, "Pine")
	oak := seed.Enum(7, "Oak")
	red := seed.Color(2, "Red")
	add := seed.Add(seed.Item(1001, false))
	r1 := seed.AddEnum(add, wood, pine)
	r2 := seed.AddEnum(add, wood, pine)
	c1 := seed.AddColor(add, color, red)

	repo := NewParamRepository(db, DefaultFamilySelector)
	ctx := context.Background()

	// 空ID列表照常执行，影响 0 行
	n, err := repo.Rewrite(ctx, entity.ScopeAdds, nil, ValueWrite{Family: entity.FamilyBreed})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	// r2 不在 PerRecord 中，保留原值但计入影响行数
	n, err = repo.Rewrite(ctx, entity.ScopeAdds, []int64{r1, r2}, ValueWrite{
		Family:    entity.FamilyBreed,
		PerRecord: map[int64]int64{r1: oak},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, oak, *testutil.AddEnumValue(t, db, r1))
	assert.Equal(t, pine, *testutil.AddEnumValue(t, db, r2))

	n, err = repo.Rewrite(ctx, entity.ScopeAdds, []int64{c1}, ValueWrite{Family: entity.FamilyColor})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Nil(t, testutil.AddColorValue(t, db, c1))
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	wood := seed.Param("Wood breed", 1)
	pine := seed.Enum(7, "Pine")
	oak := seed.Enum(7, "Oak")
	rec := seed.AddEnum(seed.Add(seed.Item(1001, false)), wood, pine)

	repo := NewParamRepository(db, DefaultFamilySelector)
	err := repo.Transaction(context.Background(), func(tx *ParamRepository) error {
		if _, err := tx.Rewrite(context.Background(), entity.ScopeAdds, []int64{rec}, ValueWrite{
			Family:    entity.FamilyBreed,
			PerRecord: map[int64]int64{rec: oak},
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, pine, *testutil.AddEnumValue(t, db, rec))
}

func TestRewrite_SplitsIntoBatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	wood := seed.Param("Wood breed", 1)
	pine := seed.Enum(7, "Pine")
	oak := seed.Enum(7, "Oak")
	add := seed.Add(seed.Item(1001, false))

	ids := make([]int64, 0, 5)
	perRecord := make(map[int64]int64)
	for i := 0; i < 5; i++ {
		id := seed.AddEnum(add, wood, pine)
		ids = append(ids, id)
		if i != 3 {
			perRecord[id] = oak
		}
	}

	repo := NewParamRepository(db, DefaultFamilySelector)
	repo.batch = 2

	n, err := repo.Rewrite(context.Background(), entity.ScopeAdds, ids, ValueWrite{
		Family:    entity.FamilyBreed,
		PerRecord: perRecord,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	for i, id := range ids {
		want := oak
		if i == 3 {
			want = pine
		}
		assert.Equal(t, want, *testutil.AddEnumValue(t, db, id), "record %d", id)
	}
}
