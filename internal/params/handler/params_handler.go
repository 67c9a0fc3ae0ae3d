package handler

import (
	"strconv"

	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/gin-gonic/gin"
)

// ParamsHandler 订单参数查询与批量改写
type ParamsHandler struct {
	query   *service.QueryService
	rewrite *service.RewriteService
}

func NewParamsHandler(query *service.QueryService, rewrite *service.RewriteService) *ParamsHandler {
	return &ParamsHandler{query: query, rewrite: rewrite}
}

// OrderInfo 订单基本信息
// GET /api/orders/:id
func (h *ParamsHandler) OrderInfo(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	info, err := h.query.OrderInfo(c.Request.Context(), orderID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, info)
}

// UsedValues 订单在指定路径和属性族下正在使用的取值
// GET /api/orders/:id/used-values?scope=adds&family=breed
func (h *ParamsHandler) UsedValues(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	scope, err := entity.ParseScope(c.Query("scope"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	family, err := entity.ParseFamily(c.Query("family"))
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	counts, err := h.query.UsedValueCounts(c.Request.Context(), orderID, scope, family)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{
		"order_id": orderID,
		"scope":    scope,
		"family":   family,
		"items":    counts,
	})
}

type rewriteBreedRequest struct {
	Scope         string   `json:"scope" binding:"required"`
	TargetCode    string   `json:"target_code" binding:"required"`
	SelectedCodes []string `json:"selected_codes"`
}

// RewriteBreed 批量改写木材品种
// POST /api/orders/:id/rewrites/breed
func (h *ParamsHandler) RewriteBreed(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req rewriteBreedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	res, err := h.rewrite.RewriteBreed(c.Request.Context(), service.BreedRewriteRequest{
		OrderID:       orderID,
		Scope:         entity.Scope(req.Scope),
		TargetCode:    req.TargetCode,
		SelectedCodes: req.SelectedCodes,
		Actor:         middleware.Actor(c),
		RequestID:     c.GetString("request_id"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

type rewriteColorRequest struct {
	Scope          string   `json:"scope" binding:"required"`
	TargetTitle    string   `json:"target_title" binding:"required"`
	TargetGroup    string   `json:"target_group" binding:"required"`
	SelectedTitles []string `json:"selected_titles" binding:"required"`
}

// RewriteColor 批量改写颜色
// POST /api/orders/:id/rewrites/color
func (h *ParamsHandler) RewriteColor(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	var req rewriteColorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	res, err := h.rewrite.RewriteColor(c.Request.Context(), service.ColorRewriteRequest{
		OrderID:        orderID,
		Scope:          entity.Scope(req.Scope),
		TargetTitle:    req.TargetTitle,
		TargetGroup:    req.TargetGroup,
		SelectedTitles: req.SelectedTitles,
		Actor:          middleware.Actor(c),
		RequestID:      c.GetString("request_id"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, res)
}

// ListRewrites 订单最近的改写记录
// GET /api/orders/:id/rewrites?limit=20
func (h *ParamsHandler) ListRewrites(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	limit := 20
	if l := c.Query("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			limit = v
		}
	}

	entries, err := h.rewrite.Recent(c.Request.Context(), orderID, limit)
	if err != nil {
		ServiceUnavailable(c, "获取改写记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"items": entries})
}
