package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 桌面客户端使用的旧版接口：响应不包信封，错误体为 {"detail": "..."}

// APIResponse 旧版改写接口的响应体
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Error   *string     `json:"error"`
}

type breedChangeRequest struct {
	OrderID        int64    `json:"order_id" binding:"required"`
	BreedCode      string   `json:"breed_code" binding:"required"`
	SelectedBreeds []string `json:"selected_breeds"`
}

type colorChangeRequest struct {
	OrderID       int64    `json:"order_id" binding:"required"`
	NewColor      string   `json:"new_color" binding:"required"`
	NewColorGroup string   `json:"new_colorgroup" binding:"required"`
	OldColors     []string `json:"old_colors"`
}

type colorItem struct {
	ColorID    int    `json:"color_id"`
	Title      string `json:"title"`
	GroupTitle string `json:"group_title"`
}

type titleItem struct {
	Title string `json:"title"`
}

// orderInfoItem 桌面客户端读取的大写字段名
type orderInfoItem struct {
	ID           int64   `json:"ID"`
	OrderNo      string  `json:"ORDERNO"`
	DateOrder    *string `json:"DATEORDER"`
	OrderName    string  `json:"ORDER_NAME"`
	CustomerName *string `json:"CUSTOMER_NAME"`
}

type orderColorItem struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// LegacyHandler 旧版接口
type LegacyHandler struct {
	query   *service.QueryService
	rewrite *service.RewriteService
	logger  *zap.Logger
}

func NewLegacyHandler(query *service.QueryService, rewrite *service.RewriteService, logger *zap.Logger) *LegacyHandler {
	return &LegacyHandler{query: query, rewrite: rewrite, logger: logger}
}

func detail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"detail": message})
}

func (h *LegacyHandler) fail(c *gin.Context, prefix string, err error) {
	detail(c, statusOf(err), prefix+": "+err.Error())
}

func legacyOrderID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "order_id must be an integer")
		return 0, false
	}
	c.Set(middleware.OrderIDKey, id)
	return id, true
}

// Breeds GET /api/breeds
func (h *LegacyHandler) Breeds(c *gin.Context) {
	c.JSON(http.StatusOK, h.query.AvailableBreeds())
}

// ColorGroups GET /api/color-groups
func (h *LegacyHandler) ColorGroups(c *gin.Context) {
	groups, err := h.query.ColorGroups(c.Request.Context())
	if err != nil {
		h.fail(c, "Failed to get color groups", err)
		return
	}
	items := make([]titleItem, 0, len(groups))
	for _, g := range groups {
		items = append(items, titleItem{Title: g})
	}
	c.JSON(http.StatusOK, items)
}

// Colors GET /api/colors/:group
func (h *LegacyHandler) Colors(c *gin.Context) {
	group := c.Param("group")
	colors, err := h.query.ColorsByGroup(c.Request.Context(), group)
	if err != nil {
		h.fail(c, "Failed to get colors", err)
		return
	}
	// color_id 是列表序号，客户端只用标题
	items := make([]colorItem, 0, len(colors))
	for i, title := range colors {
		items = append(items, colorItem{ColorID: i, Title: title, GroupTitle: group})
	}
	c.JSON(http.StatusOK, items)
}

// OrderInfo GET /api/orders/:id/info
func (h *LegacyHandler) OrderInfo(c *gin.Context) {
	orderID, ok := legacyOrderID(c)
	if !ok {
		return
	}
	info, err := h.query.OrderInfo(c.Request.Context(), orderID)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			detail(c, http.StatusNotFound, fmt.Sprintf("Order %d not found", orderID))
			return
		}
		h.fail(c, "Failed to get order info", err)
		return
	}
	c.JSON(http.StatusOK, orderInfoItem{
		ID:           info.ID,
		OrderNo:      info.OrderNumber,
		DateOrder:    info.OrderDate,
		OrderName:    info.Address,
		CustomerName: info.CustomerName,
	})
}

// OrderColors GET /api/orders/:id/colors（附加件上的颜色）
func (h *LegacyHandler) OrderColors(c *gin.Context) {
	orderID, ok := legacyOrderID(c)
	if !ok {
		return
	}
	counts, err := h.query.UsedValueCounts(c.Request.Context(), orderID, entity.ScopeAdds, entity.FamilyColor)
	if err != nil {
		h.fail(c, "Failed to get order colors", err)
		return
	}
	items := make([]orderColorItem, 0, len(counts))
	for _, v := range counts {
		items = append(items, orderColorItem{Title: v.Value, Count: v.Count})
	}
	c.JSON(http.StatusOK, items)
}

// AddsBreeds GET /api/orders/:id/adds-breeds
func (h *LegacyHandler) AddsBreeds(c *gin.Context) {
	h.usedCodes(c, entity.ScopeAdds, "Failed to get adds breeds")
}

// StuffsetsBreeds GET /api/orders/:id/stuffsets-breeds
func (h *LegacyHandler) StuffsetsBreeds(c *gin.Context) {
	h.usedCodes(c, entity.ScopeStuffsets, "Failed to get stuffsets breeds")
}

func (h *LegacyHandler) usedCodes(c *gin.Context, scope entity.Scope, errPrefix string) {
	orderID, ok := legacyOrderID(c)
	if !ok {
		return
	}
	values, err := h.query.UsedValues(c.Request.Context(), orderID, scope, entity.FamilyBreed)
	if err != nil {
		h.fail(c, errPrefix, err)
		return
	}
	c.JSON(http.StatusOK, values)
}

// StuffsetsColors GET /api/orders/:id/stuffsets-colors
func (h *LegacyHandler) StuffsetsColors(c *gin.Context) {
	orderID, ok := legacyOrderID(c)
	if !ok {
		return
	}
	values, err := h.query.UsedValues(c.Request.Context(), orderID, entity.ScopeStuffsets, entity.FamilyColor)
	if err != nil {
		h.fail(c, "Failed to get stuffsets colors", err)
		return
	}
	items := make([]titleItem, 0, len(values))
	for _, v := range values {
		items = append(items, titleItem{Title: v})
	}
	c.JSON(http.StatusOK, items)
}

// ChangeBreed POST /api/change-breed
func (h *LegacyHandler) ChangeBreed(c *gin.Context) {
	h.changeBreed(c, entity.ScopeAdds, "Breed", "Failed to update breed")
}

// ChangeStuffsetsBreed POST /api/change-stuffsets-breed
func (h *LegacyHandler) ChangeStuffsetsBreed(c *gin.Context) {
	h.changeBreed(c, entity.ScopeStuffsets, "Stuffsets breed", "Failed to update stuffsets breed")
}

func (h *LegacyHandler) changeBreed(c *gin.Context, scope entity.Scope, subject, failMsg string) {
	var req breedChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.Set(middleware.OrderIDKey, req.OrderID)

	res, err := h.rewrite.RewriteBreed(c.Request.Context(), service.BreedRewriteRequest{
		OrderID:       req.OrderID,
		Scope:         scope,
		TargetCode:    req.BreedCode,
		SelectedCodes: req.SelectedBreeds,
		Actor:         middleware.Actor(c),
		RequestID:     c.GetString("request_id"),
	})
	if err != nil {
		h.writeFailure(c, failMsg, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("%s changed to '%s' in order %d", subject, req.BreedCode, req.OrderID),
		Data:    res,
	})
}

// ChangeColor POST /api/change-color
func (h *LegacyHandler) ChangeColor(c *gin.Context) {
	h.changeColor(c, entity.ScopeAdds, "Color", "Failed to update color")
}

// ChangeStuffsetsColor POST /api/change-stuffsets-color
func (h *LegacyHandler) ChangeStuffsetsColor(c *gin.Context) {
	h.changeColor(c, entity.ScopeStuffsets, "Stuffsets colors", "Failed to update stuffsets colors")
}

func (h *LegacyHandler) changeColor(c *gin.Context, scope entity.Scope, subject, failMsg string) {
	var req colorChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c.Set(middleware.OrderIDKey, req.OrderID)

	res, err := h.rewrite.RewriteColor(c.Request.Context(), service.ColorRewriteRequest{
		OrderID:        req.OrderID,
		Scope:          scope,
		TargetTitle:    req.NewColor,
		TargetGroup:    req.NewColorGroup,
		SelectedTitles: req.OldColors,
		Actor:          middleware.Actor(c),
		RequestID:      c.GetString("request_id"),
	})
	if err != nil {
		h.writeFailure(c, failMsg, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: fmt.Sprintf("%s changed to '%s' (%s) in order %d", subject, req.NewColor, req.NewColorGroup, req.OrderID),
		Data:    res,
	})
}

// writeFailure 参数错误返回 detail；执行失败沿用旧客户端认识的 success=false 响应
func (h *LegacyHandler) writeFailure(c *gin.Context, failMsg string, err error) {
	switch statusOf(err) {
	case http.StatusBadRequest:
		detail(c, http.StatusBadRequest, err.Error())
		return
	case http.StatusServiceUnavailable:
		detail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	h.logger.Warn("Legacy rewrite failed", zap.String("path", c.FullPath()), zap.Error(err))
	msg := err.Error()
	c.JSON(http.StatusOK, APIResponse{
		Success: false,
		Message: failMsg,
		Data:    gin.H{"affected_count": nil},
		Error:   &msg,
	})
}
