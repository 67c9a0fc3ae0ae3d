package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bitfantasy/groupchange/internal/config"
	"github.com/bitfantasy/groupchange/internal/params/journal"
	"github.com/bitfantasy/groupchange/internal/params/repository"
	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/bitfantasy/groupchange/internal/params/sse"
	"github.com/bitfantasy/groupchange/internal/params/testutil"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	DB     *gorm.DB
	Router *gin.Engine
	Hub    *sse.Hub
	Svc    *service.Services

	pineSpliced int64
	addPine     int64
	addOak      int64
	addRed      int64
	blue        int64
}

func setupParamsTest(t *testing.T, auth AuthConfig) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	seed := testutil.NewSeeder(t, db)
	env := &testEnv{DB: db}

	seed.Order(1001, "ORD-1001", "ACME Kitchens")
	wood := seed.Param("Wood breed", 1)
	color := seed.Param("Facade color", 3)

	pine := seed.Enum(7, "Pine")
	oak := seed.Enum(7, "Oak-Luxury")
	env.pineSpliced = seed.Enum(7, "Pine-Spliced")

	seed.ColorGroup(1, "Matte")
	seed.ColorGroup(2, "Gloss")
	red := seed.Color(2, "Red")
	green := seed.Color(2, "Green")
	env.blue = seed.Color(1, "Blue")

	item := seed.Item(1001, false)
	add := seed.Add(item)
	env.addPine = seed.AddEnum(add, wood, pine)
	env.addOak = seed.AddEnum(add, wood, oak)
	env.addRed = seed.AddColor(add, color, red)
	seed.AddColor(add, color, green)

	setItem := seed.Item(1001, true)
	seed.ItemEnum(setItem, wood, oak)
	seed.ItemColor(setItem, color, green)

	repos := repository.NewRepositories(db, repository.DefaultFamilySelector, []int64{1, 2})
	cfg := &config.Config{Catalog: config.CatalogConfig{Breeds: config.DefaultBreeds}}
	env.Svc = service.NewServices(repos, cfg, nil)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	env.Svc.Rewrite.SetJournal(journal.New(rdb, 20))

	env.Hub = sse.NewHub(nil)
	env.Svc.Rewrite.SetHub(env.Hub)

	env.Router = testutil.SetupRouter()
	RegisterRoutes(env.Router, NewHandlers(env.Svc, env.Hub, nil), auth)
	return env
}

func TestRootAndHealth(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "GET", "/", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "running", testutil.ParseResponse(w)["status"])

	w = testutil.DoRequest(env.Router, "GET", "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "connected", resp["database"])
}

func TestLegacyCatalogEndpoints(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "GET", "/api/breeds", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"type_id":1`)

	w = testutil.DoRequest(env.Router, "GET", "/api/color-groups", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"title":"Gloss"},{"title":"Matte"}]`, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/colors/Gloss", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"color_id":0,"title":"Green","group_title":"Gloss"},{"color_id":1,"title":"Red","group_title":"Gloss"}]`, w.Body.String())
}

func TestLegacyOrderEndpoints(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "GET", "/api/orders/1001/info", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	info := testutil.ParseResponse(w)
	assert.Equal(t, float64(1001), info["ID"])
	assert.Equal(t, "ORD-1001", info["ORDERNO"])
	assert.Equal(t, "Test street 1", info["ORDER_NAME"])
	assert.Equal(t, "ACME Kitchens", info["CUSTOMER_NAME"])
	assert.Contains(t, info, "DATEORDER")
	assert.Nil(t, info["DATEORDER"])
	assert.NotContains(t, info, "order_number")

	require.NoError(t, env.DB.Table("orders").Where("id = ?", 1001).
		Update("dateorder", time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)).Error)
	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/info", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-03-15", testutil.ParseResponse(w)["DATEORDER"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, "ORD-1001", data["order_number"])
	assert.Equal(t, "Test street 1", data["address"])
	assert.Equal(t, "ACME Kitchens", data["customer_name"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/9999", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, float64(40400), testutil.ParseResponse(w)["code"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/9999/info", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Order 9999 not found", testutil.ParseResponse(w)["detail"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/abc/info", nil, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/adds-breeds", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Oak-Luxury","Pine"]`, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/stuffsets-breeds", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Oak-Luxury"]`, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/colors", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"title":"Green","count":1},{"title":"Red","count":1}]`, w.Body.String())

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/stuffsets-colors", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"title":"Green"}]`, w.Body.String())

	// 订单没有参数记录时返回空数组
	w = testutil.DoRequest(env.Router, "GET", "/api/orders/4242/adds-breeds", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestLegacyChangeBreed(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "POST", "/api/change-breed", map[string]interface{}{
		"order_id":        1001,
		"breed_code":      "pine-spliced",
		"selected_breeds": []string{"Pine"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.ParseResponse(w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Breed changed to 'pine-spliced' in order 1001", resp["message"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["affected_count"])
	assert.Nil(t, resp["error"])

	assert.Equal(t, env.pineSpliced, *testutil.AddEnumValue(t, env.DB, env.addPine))

	w = testutil.DoRequest(env.Router, "POST", "/api/change-breed", map[string]interface{}{
		"breed_code": "Pine",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestLegacyChangeColor(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "POST", "/api/change-color", map[string]interface{}{
		"order_id":       1001,
		"new_color":      "Blue",
		"new_colorgroup": "Matte",
		"old_colors":     []string{"Red", "Green"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := testutil.ParseResponse(w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(2), resp["data"].(map[string]interface{})["affected_count"])
	assert.Equal(t, env.blue, *testutil.AddColorValue(t, env.DB, env.addRed))

	w = testutil.DoRequest(env.Router, "POST", "/api/change-stuffsets-color", map[string]interface{}{
		"order_id":       1001,
		"new_color":      "Blue",
		"new_colorgroup": "Matte",
		"old_colors":     []string{},
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLegacyChangeExecutionFailure(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})
	require.NoError(t, env.DB.Exec("DROP TABLE enum_items").Error)

	w := testutil.DoRequest(env.Router, "POST", "/api/change-stuffsets-breed", map[string]interface{}{
		"order_id":   1001,
		"breed_code": "Pine",
	}, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "Failed to update stuffsets breed", resp["message"])
	assert.NotEmpty(t, resp["error"])
}

func TestUsedValues(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "GET", "/api/orders/1001/used-values?scope=adds&family=color", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	resp := testutil.ParseResponse(w)
	assert.Equal(t, float64(0), resp["code"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ADDS", data["scope"])
	assert.Equal(t, "color", data["family"])
	items := data["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "Green", items[0].(map[string]interface{})["value"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/used-values?scope=items&family=color", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, float64(40000), testutil.ParseResponse(w)["code"])

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/0/used-values?scope=adds&family=color", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRewriteEndpointsAndJournal(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/breed", map[string]interface{}{
		"scope":          "adds",
		"target_code":    "Pine-Spliced",
		"selected_codes": []string{"Pine"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["affected_count"])
	assert.Equal(t, float64(1), data["changed_count"])

	w = testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/color", map[string]interface{}{
		"scope":           "ADDS",
		"target_title":    "Blue",
		"target_group":    "Gloss",
		"selected_titles": []string{"Red"},
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, testutil.AddColorValue(t, env.DB, env.addRed))

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/rewrites?limit=5", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	items := testutil.ParseResponse(w)["data"].(map[string]interface{})["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "color", items[0].(map[string]interface{})["family"])
	assert.Equal(t, "breed", items[1].(map[string]interface{})["family"])
}

func TestRewriteExecutionFailureEnvelope(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})
	require.NoError(t, env.DB.Exec("DROP TABLE colors").Error)

	w := testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/color", map[string]interface{}{
		"scope":           "adds",
		"target_title":    "Blue",
		"target_group":    "Matte",
		"selected_titles": []string{"Red"},
	}, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := testutil.ParseResponse(w)
	assert.Equal(t, float64(50010), resp["code"])
	data := resp["data"].(map[string]interface{})
	v, present := data["affected_count"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestRewriteRequiresOperatorRole(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{Secret: testutil.JWTSecret, OperatorRole: "params_operator"})
	body := map[string]interface{}{
		"scope":       "adds",
		"target_code": "Oak-Luxury",
	}

	w := testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/breed", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	viewer := testutil.GenerateTestToken("u2", "Viewer", []string{"viewer"})
	w = testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/breed", body, viewer)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/orders/1001/rewrites/breed", body, testutil.OperatorToken())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	entries, err := env.Svc.Rewrite.Recent(context.Background(), 1001, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Test Operator", entries[0].Actor)

	// 读接口不需要认证
	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/adds-breeds", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportExport(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	w := testutil.DoRequest(env.Router, "GET", "/api/orders/1001/report?format=json", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	lines := testutil.ParseResponse(w)["data"].(map[string]interface{})["lines"].([]interface{})
	assert.Len(t, lines, 6)

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/report?format=csv", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "params_ORD-1001.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Scope;Family;Value;Records"))

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/report", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "params_ORD-1001.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/9999/report?format=csv", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutil.DoRequest(env.Router, "GET", "/api/orders/1001/report?format=pdf", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(env.Router, "POST", "/api/orders/1001/report/archive", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventStream(t *testing.T) {
	env := setupParamsTest(t, AuthConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		env.Router.ServeHTTP(w, req)
		close(done)
	}()

	require.Eventually(t, func() bool { return env.Hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := env.Svc.Rewrite.RewriteBreed(context.Background(), service.BreedRewriteRequest{
		OrderID:       1001,
		Scope:         "ADDS",
		TargetCode:    "Oak-Luxury",
		SelectedCodes: []string{"Pine"},
	})
	require.NoError(t, err)

	// 等事件写出后再断开
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := w.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: rewrite_applied")
	assert.Contains(t, body, `"target":"Oak-Luxury"`)
	assert.Equal(t, 0, env.Hub.Count())
}

func TestGetUserID(t *testing.T) {
	r := testutil.SetupRouter()
	g := testutil.AuthGroup(r, "/api")
	g.GET("/me", func(c *gin.Context) {
		Success(c, gin.H{"user_id": GetUserID(c)})
	})

	w := testutil.DoRequest(r, "GET", "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.DoRequest(r, "GET", "/api/me", nil, testutil.OperatorToken())
	require.Equal(t, http.StatusOK, w.Code)
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	assert.Equal(t, "test-user-001", data["user_id"])
}
