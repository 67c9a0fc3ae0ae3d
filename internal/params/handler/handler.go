package handler

import (
	"errors"
	"strconv"

	"github.com/bitfantasy/groupchange/internal/middleware"
	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/bitfantasy/groupchange/internal/params/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 处理器集合
type Handlers struct {
	System *SystemHandler
	Params *ParamsHandler
	Legacy *LegacyHandler
	Report *ReportHandler
	SSE    *SSEHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, hub *sse.Hub, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		System: NewSystemHandler(svc.Query),
		Params: NewParamsHandler(svc.Query, svc.Rewrite),
		Legacy: NewLegacyHandler(svc.Query, svc.Rewrite, logger),
		Report: NewReportHandler(svc.Report),
		SSE:    NewSSEHandler(hub),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	ErrorWithData(c, code, message, nil)
}

// ErrorWithData 带数据的错误响应
func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// ServiceUnavailable 数据库不可达
func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, 50300, message)
}

// Fail 按服务层错误分类输出响应
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, service.ErrConnectionFailure):
		ServiceUnavailable(c, err.Error())
	case errors.Is(err, service.ErrExecutionFailure):
		// 事务已回滚，影响行数未定义
		ErrorWithData(c, 50010, err.Error(), gin.H{"affected_count": nil})
	default:
		InternalError(c, err.Error())
	}
}

// statusOf 错误对应的 HTTP 状态码，旧版接口使用
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		return 400
	case errors.Is(err, service.ErrNotFound):
		return 404
	case errors.Is(err, service.ErrConnectionFailure):
		return 503
	}
	return 500
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// orderIDParam 解析路径中的订单ID
func orderIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid order id: "+c.Param("id"))
		return 0, false
	}
	c.Set(middleware.OrderIDKey, id)
	return id, true
}
