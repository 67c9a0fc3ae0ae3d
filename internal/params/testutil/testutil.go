package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "groupchange-test-secret"

var dbSeq atomic.Int64

// SetupTestDB 为每个测试创建独立的内存 SQLite 库并建好订单配置库的表
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := fmt.Sprintf("file:groupchange_%d_%d?mode=memory&cache=shared",
		time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	// 共享缓存下多连接并发写会锁表，测试里串行即可
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&entity.Contragent{},
		&entity.Customer{},
		&entity.Order{},
		&entity.OrderItem{},
		&entity.OrderItemAdd{},
		&entity.StructParam{},
		&entity.EnumItem{},
		&entity.ColorGroup{},
		&entity.Color{},
		&entity.AddParam{},
		&entity.ItemParam{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"roles": roles,
		"iss":   "groupchange",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// OperatorToken returns a token carrying the params operator role
func OperatorToken() string {
	return GenerateTestToken("test-user-001", "Test Operator", []string{"params_operator"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// Seeder 按测试场景写入订单配置数据，ID 自动递增
type Seeder struct {
	t      *testing.T
	db     *gorm.DB
	nextID int64
}

func NewSeeder(t *testing.T, db *gorm.DB) *Seeder {
	return &Seeder{t: t, db: db, nextID: 1000}
}

func (s *Seeder) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Seeder) create(v interface{}) {
	s.t.Helper()
	if err := s.db.Create(v).Error; err != nil {
		s.t.Fatalf("Failed to seed %T: %v", v, err)
	}
}

// Order 写入订单；customer 非空时同时写入客户及其往来单位
func (s *Seeder) Order(id int64, orderNo, customer string) *entity.Order {
	s.t.Helper()
	order := &entity.Order{ID: id, OrderNo: orderNo, AddressInstall: "Test street 1"}
	if customer != "" {
		contragID := s.id()
		s.create(&entity.Contragent{ContragID: contragID, Name: customer})
		customerID := s.id()
		s.create(&entity.Customer{CustomerID: customerID, ContragID: &contragID})
		order.CustomerID = &customerID
	}
	s.create(order)
	return order
}

// Item 写入订单行；stuffset 为 true 时该行属于套件
func (s *Seeder) Item(orderID int64, stuffset bool) int64 {
	s.t.Helper()
	item := &entity.OrderItem{ID: s.id(), OrderID: orderID}
	if stuffset {
		setID := s.id()
		item.StuffsetID = &setID
	}
	s.create(item)
	return item.ID
}

// Add 写入订单行下的附加件
func (s *Seeder) Add(itemID int64) int64 {
	s.t.Helper()
	add := &entity.OrderItemAdd{ID: s.id(), OrderItemID: itemID}
	s.create(add)
	return add.ID
}

// Param 写入参数定义
func (s *Seeder) Param(name string, paramType int) int64 {
	s.t.Helper()
	p := &entity.StructParam{ID: s.id(), Name: name, ParamType: paramType}
	s.create(p)
	return p.ID
}

// Enum 写入枚举值
func (s *Seeder) Enum(typeID int64, code string) int64 {
	s.t.Helper()
	e := &entity.EnumItem{ID: s.id(), Code: code, TypeID: typeID}
	s.create(e)
	return e.ID
}

// ColorGroup 写入色组
func (s *Seeder) ColorGroup(groupID int64, title string) int64 {
	s.t.Helper()
	s.create(&entity.ColorGroup{GroupID: groupID, Title: title})
	return groupID
}

// Color 写入颜色
func (s *Seeder) Color(groupID int64, title string) int64 {
	s.t.Helper()
	c := &entity.Color{ColorID: s.id(), Title: title, GroupID: groupID}
	s.create(c)
	return c.ColorID
}

// AddEnum 附加件上的枚举参数记录
func (s *Seeder) AddEnum(addID, paramID, enumID int64) int64 {
	s.t.Helper()
	p := &entity.AddParam{ID: s.id(), OrderItemAddID: addID, ParamID: paramID, EnumValueID: &enumID}
	s.create(p)
	return p.ID
}

// AddColor 附加件上的颜色参数记录
func (s *Seeder) AddColor(addID, paramID, colorID int64) int64 {
	s.t.Helper()
	p := &entity.AddParam{ID: s.id(), OrderItemAddID: addID, ParamID: paramID, ColorValueID: &colorID}
	s.create(p)
	return p.ID
}

// ItemEnum 订单行上的枚举参数记录
func (s *Seeder) ItemEnum(itemID, paramID, enumID int64) int64 {
	s.t.Helper()
	p := &entity.ItemParam{ID: s.id(), OrderItemID: itemID, ParamID: paramID, EnumValueID: &enumID}
	s.create(p)
	return p.ID
}

// ItemColor 订单行上的颜色参数记录
func (s *Seeder) ItemColor(itemID, paramID, colorID int64) int64 {
	s.t.Helper()
	p := &entity.ItemParam{ID: s.id(), OrderItemID: itemID, ParamID: paramID, ColorValueID: &colorID}
	s.create(p)
	return p.ID
}

// AddEnumValue 读取附加件参数记录当前的枚举值ID
func AddEnumValue(t *testing.T, db *gorm.DB, paramRecordID int64) *int64 {
	t.Helper()
	var p entity.AddParam
	if err := db.First(&p, paramRecordID).Error; err != nil {
		t.Fatalf("Failed to load add param %d: %v", paramRecordID, err)
	}
	return p.EnumValueID
}

// AddColorValue 读取附加件参数记录当前的颜色ID
func AddColorValue(t *testing.T, db *gorm.DB, paramRecordID int64) *int64 {
	t.Helper()
	var p entity.AddParam
	if err := db.First(&p, paramRecordID).Error; err != nil {
		t.Fatalf("Failed to load add param %d: %v", paramRecordID, err)
	}
	return p.ColorValueID
}

// ItemEnumValue 读取订单行参数记录当前的枚举值ID
func ItemEnumValue(t *testing.T, db *gorm.DB, paramRecordID int64) *int64 {
	t.Helper()
	var p entity.ItemParam
	if err := db.First(&p, paramRecordID).Error; err != nil {
		t.Fatalf("Failed to load item param %d: %v", paramRecordID, err)
	}
	return p.EnumValueID
}

// ItemColorValue 读取订单行参数记录当前的颜色ID
func ItemColorValue(t *testing.T, db *gorm.DB, paramRecordID int64) *int64 {
	t.Helper()
	var p entity.ItemParam
	if err := db.First(&p, paramRecordID).Error; err != nil {
		t.Fatalf("Failed to load item param %d: %v", paramRecordID, err)
	}
	return p.ColorValueID
}
