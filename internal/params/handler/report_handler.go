package handler

import (
	"bytes"
	"errors"

	"github.com/bitfantasy/groupchange/internal/params/service"
	"github.com/gin-gonic/gin"
)

// ReportHandler 订单参数报表
type ReportHandler struct {
	svc *service.ReportService
}

func NewReportHandler(svc *service.ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

// Export 导出报表
// GET /api/orders/:id/report?format=xlsx|csv|json&charset=windows-1251
func (h *ReportHandler) Export(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	switch c.DefaultQuery("format", "xlsx") {
	case "json":
		report, err := h.svc.Build(c.Request.Context(), orderID)
		if err != nil {
			Fail(c, err)
			return
		}
		Success(c, report)

	case "csv":
		// 先写入缓冲区，出错时还能返回 JSON 错误
		var buf bytes.Buffer
		charset := c.Query("charset")
		filename, err := h.svc.ExportCSV(c.Request.Context(), orderID, &buf, charset)
		if err != nil {
			Fail(c, err)
			return
		}
		contentType := "text/csv; charset=utf-8"
		if charset != "" {
			contentType = "text/csv; charset=" + charset
		}
		c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
		c.Data(200, contentType, buf.Bytes())

	case "xlsx":
		f, filename, err := h.svc.ExportXLSX(c.Request.Context(), orderID)
		if err != nil {
			Fail(c, err)
			return
		}
		defer f.Close()

		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
		c.Header("Content-Transfer-Encoding", "binary")

		if err := f.Write(c.Writer); err != nil {
			InternalError(c, "write excel: "+err.Error())
		}

	default:
		BadRequest(c, "unsupported format: "+c.Query("format"))
	}
}

// Archive 生成报表并归档到对象存储
// POST /api/orders/:id/report/archive
func (h *ReportHandler) Archive(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	object, err := h.svc.Archive(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, service.ErrArchiveDisabled) {
			ServiceUnavailable(c, err.Error())
			return
		}
		Fail(c, err)
		return
	}
	Created(c, gin.H{"object": object})
}
