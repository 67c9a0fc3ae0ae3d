package handler

import (
	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AuthConfig 改写接口的认证设置；Secret 为空时不做认证
type AuthConfig struct {
	Secret       string
	OperatorRole string
}

// RegisterRoutes 注册全部路由
func RegisterRoutes(r *gin.Engine, h *Handlers, auth AuthConfig) {
	r.GET("/", h.System.Root)

	api := r.Group("/api")
	api.GET("/health", h.System.Health)

	// 目录与订单查询
	api.GET("/breeds", h.Legacy.Breeds)
	api.GET("/color-groups", h.Legacy.ColorGroups)
	api.GET("/colors/:group", h.Legacy.Colors)

	orders := api.Group("/orders/:id")
	orders.GET("", h.Params.OrderInfo)
	orders.GET("/info", h.Legacy.OrderInfo)
	orders.GET("/colors", h.Legacy.OrderColors)
	orders.GET("/adds-breeds", h.Legacy.AddsBreeds)
	orders.GET("/stuffsets-breeds", h.Legacy.StuffsetsBreeds)
	orders.GET("/stuffsets-colors", h.Legacy.StuffsetsColors)
	orders.GET("/used-values", h.Params.UsedValues)
	orders.GET("/rewrites", h.Params.ListRewrites)
	orders.GET("/report", h.Report.Export)

	// 写操作：配置了 JWT 密钥时要求操作员角色
	write := api.Group("")
	if auth.Secret != "" {
		write.Use(middleware.JWTAuth(auth.Secret))
		if auth.OperatorRole != "" {
			write.Use(middleware.RequireRole(auth.OperatorRole))
		}
	}
	write.POST("/change-breed", h.Legacy.ChangeBreed)
	write.POST("/change-stuffsets-breed", h.Legacy.ChangeStuffsetsBreed)
	write.POST("/change-color", h.Legacy.ChangeColor)
	write.POST("/change-stuffsets-color", h.Legacy.ChangeStuffsetsColor)
	write.POST("/orders/:id/rewrites/breed", h.Params.RewriteBreed)
	write.POST("/orders/:id/rewrites/color", h.Params.RewriteColor)
	write.POST("/orders/:id/report/archive", h.Report.Archive)

	// SSE 通过 query 参数 token 认证
	events := api.Group("")
	if auth.Secret != "" {
		events.Use(middleware.JWTAuth(auth.Secret))
	}
	events.GET("/events", h.SSE.Stream)
}
