package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bitfantasy/groupchange/internal/params/entity"
	"github.com/minio/minio-go/v7"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrArchiveDisabled 未配置对象存储
var ErrArchiveDisabled = errors.New("report archive is not configured")

// ObjectStore 报表归档目标，*minio.Client 满足该接口
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ReportLine 报表中的一行：某路径某属性族下的一个取值
type ReportLine struct {
	Scope  entity.Scope  `json:"scope"`
	Family entity.Family `json:"family"`
	Value  string        `json:"value"`
	Count  int64         `json:"count"`
}

// OrderReport 订单参数报表
type OrderReport struct {
	Order *entity.OrderInfo `json:"order"`
	Lines []ReportLine      `json:"lines"`
}

var reportSections = []struct {
	scope  entity.Scope
	family entity.Family
}{
	{entity.ScopeAdds, entity.FamilyBreed},
	{entity.ScopeAdds, entity.FamilyColor},
	{entity.ScopeStuffsets, entity.FamilyBreed},
	{entity.ScopeStuffsets, entity.FamilyColor},
}

var reportHeaders = []string{"Scope", "Family", "Value", "Records"}

// ReportService 订单参数报表导出与归档
type ReportService struct {
	query  *QueryService
	store  ObjectStore
	bucket string
}

func NewReportService(query *QueryService) *ReportService {
	return &ReportService{query: query}
}

// SetObjectStore 配置归档目标
func (s *ReportService) SetObjectStore(store ObjectStore, bucket string) {
	s.store = store
	s.bucket = bucket
}

// Build 汇总订单在各路径、各属性族下正在使用的取值
func (s *ReportService) Build(ctx context.Context, orderID int64) (*OrderReport, error) {
	info, err := s.query.OrderInfo(ctx, orderID)
	if err != nil {
		return nil, err
	}

	report := &OrderReport{Order: info, Lines: []ReportLine{}}
	for _, sec := range reportSections {
		counts, err := s.query.UsedValueCounts(ctx, orderID, sec.scope, sec.family)
		if err != nil {
			return nil, fmt.Errorf("list %s %s values: %w", sec.scope.Label(), sec.family, err)
		}
		for _, c := range counts {
			report.Lines = append(report.Lines, ReportLine{
				Scope:  sec.scope,
				Family: sec.family,
				Value:  c.Value,
				Count:  c.Count,
			})
		}
	}
	return report, nil
}

func reportFilename(info *entity.OrderInfo, ext string) string {
	name := info.OrderNumber
	if name == "" {
		name = fmt.Sprintf("%d", info.ID)
	}
	name = strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(name)
	return fmt.Sprintf("params_%s.%s", name, ext)
}

// ExportXLSX 导出报表为 xlsx
func (s *ReportService) ExportXLSX(ctx context.Context, orderID int64) (*excelize.File, string, error) {
	report, err := s.Build(ctx, orderID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "Params"
	f.SetSheetName("Sheet1", sheet)

	// 订单概要
	f.SetCellValue(sheet, "A1", "Order")
	f.SetCellValue(sheet, "B1", report.Order.OrderNumber)
	if report.Order.OrderDate != nil {
		f.SetCellValue(sheet, "C1", *report.Order.OrderDate)
	}
	if report.Order.CustomerName != nil {
		f.SetCellValue(sheet, "D1", *report.Order.CustomerName)
	}

	// 表头样式: 加粗
	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range reportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "3"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for idx, line := range report.Lines {
		row := idx + 4
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), line.Scope.Label())
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), string(line.Family))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), line.Value)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), line.Count)
	}

	colWidths := []float64{12, 10, 32, 10}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	return f, reportFilename(report.Order, "xlsx"), nil
}

// ExportCSV 导出报表为 CSV；charset 为 windows-1251 时按旧客户端编码输出
func (s *ReportService) ExportCSV(ctx context.Context, orderID int64, w io.Writer, charset string) (string, error) {
	report, err := s.Build(ctx, orderID)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(charset) {
	case "", "utf-8", "utf8":
	case "windows-1251", "cp1251", "win1251":
		// UTF-8 → CP1251
		tw := transform.NewWriter(w, charmap.Windows1251.NewEncoder())
		defer tw.Close()
		w = tw
	default:
		return "", invalidArgument("unsupported charset %q", charset)
	}

	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(reportHeaders); err != nil {
		return "", err
	}
	for _, line := range report.Lines {
		record := []string{line.Scope.Label(), string(line.Family), line.Value, fmt.Sprintf("%d", line.Count)}
		if err := cw.Write(record); err != nil {
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return reportFilename(report.Order, "csv"), nil
}

// Archive 生成 xlsx 报表并上传到对象存储，返回对象名
func (s *ReportService) Archive(ctx context.Context, orderID int64) (string, error) {
	if s.store == nil {
		return "", ErrArchiveDisabled
	}
	f, filename, err := s.ExportXLSX(ctx, orderID)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return "", fmt.Errorf("write xlsx: %w", err)
	}

	objectName := fmt.Sprintf("reports/%d/%s_%s", orderID, time.Now().UTC().Format("20060102T150405Z"), filename)
	_, err = s.store.PutObject(ctx, s.bucket, objectName, &buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType: xlsxContentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload report: %w", err)
	}
	return objectName, nil
}
