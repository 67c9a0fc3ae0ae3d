package service

import (
	"testing"

	"github.com/bitfantasy/groupchange/internal/config"
	"github.com/bitfantasy/groupchange/internal/params/repository"
	"github.com/bitfantasy/groupchange/internal/params/testutil"
	"gorm.io/gorm"
)

const (
	woodTypeGroup  = int64(7)
	otherTypeGroup = int64(8)
	matteGroup     = int64(1)
	glossGroup     = int64(2)
)

// orderFixture 订单 1001：附加件和套件两条路径上各有木材、颜色参数
type orderFixture struct {
	db    *gorm.DB
	seed  *testutil.Seeder
	repos *repository.Repositories
	svc   *Services

	woodParam  int64
	colorParam int64

	pine, oakLuxury, pineSpliced int64
	birch                        int64

	red, green, white, blueMatte int64

	// ADDS 路径的参数记录
	addPine, addOak, addBirch  int64
	addRed, addGreen, addWhite int64
	// STUFFSETS 路径的参数记录
	setPine, plainPine int64
	setRed, plainRed   int64
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	f := &orderFixture{db: db, seed: seed}

	seed.Order(1001, "ORD-1001", "ACME Kitchens")
	f.woodParam = seed.Param("Wood breed", 1)
	f.colorParam = seed.Param("Facade color", 3)
	seed.Param("Handle type", 1)

	f.pine = seed.Enum(woodTypeGroup, "Pine")
	f.oakLuxury = seed.Enum(woodTypeGroup, "Oak-Luxury")
	f.pineSpliced = seed.Enum(woodTypeGroup, "Pine-Spliced")
	f.birch = seed.Enum(otherTypeGroup, "Birch")

	seed.ColorGroup(matteGroup, "Matte")
	seed.ColorGroup(glossGroup, "Gloss")
	seed.ColorGroup(4, "Archive")
	f.red = seed.Color(glossGroup, "Red")
	f.green = seed.Color(glossGroup, "Green")
	f.white = seed.Color(glossGroup, "White")
	f.blueMatte = seed.Color(matteGroup, "Blue")

	item := seed.Item(1001, false)
	add := seed.Add(item)
	f.addPine = seed.AddEnum(add, f.woodParam, f.pine)
	f.addOak = seed.AddEnum(add, f.woodParam, f.oakLuxury)
	f.addBirch = seed.AddEnum(add, f.woodParam, f.birch)
	f.addRed = seed.AddColor(add, f.colorParam, f.red)
	f.addGreen = seed.AddColor(add, f.colorParam, f.green)
	f.addWhite = seed.AddColor(add, f.colorParam, f.white)

	setItem := seed.Item(1001, true)
	f.setPine = seed.ItemEnum(setItem, f.woodParam, f.pine)
	f.setRed = seed.ItemColor(setItem, f.colorParam, f.red)
	f.plainPine = seed.ItemEnum(item, f.woodParam, f.pine)
	f.plainRed = seed.ItemColor(item, f.colorParam, f.red)

	f.repos = repository.NewRepositories(db, repository.DefaultFamilySelector, []int64{matteGroup, glossGroup})
	cfg := &config.Config{Catalog: config.CatalogConfig{Breeds: config.DefaultBreeds}}
	f.svc = NewServices(f.repos, cfg, nil)
	return f
}
