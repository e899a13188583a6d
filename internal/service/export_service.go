package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/dto"
	"github.com/dix105/calendly-clone/internal/model"
	"github.com/dix105/calendly-clone/internal/repository"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoBookings   = pkgerrors.NotFound("该时间范围内没有预约")
	ErrExportRangeTooLong = pkgerrors.Input("导出范围不能超过 366 天")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

const maxExportDays = 366

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response。
// Excel 格式：单个 Sheet，每行一条预约，时间按主机时区显示。
type ExportService interface {
	// ExportBookings 导出 [from, to] 日期范围（主机时区）内的预约
	ExportBookings(ctx context.Context, hostID string, req *dto.ExportBookingsRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var statusNames = map[string]string{
	model.BookingStatusPending:   "待付款",
	model.BookingStatusConfirmed: "已确认",
	model.BookingStatusCancelled: "已取消",
}

var exportHeaders = []string{"日期", "开始", "结束", "事件类型", "访客", "邮箱", "电话", "状态", "金额", "备注"}

func (s *exportService) ExportBookings(ctx context.Context, hostID string, req *dto.ExportBookingsRequest) (*bytes.Buffer, string, error) {
	// 1. 解析日期范围
	from, err := availability.ParseDate(req.From)
	if err != nil {
		return nil, "", err
	}
	to, err := availability.ParseDate(req.To)
	if err != nil {
		return nil, "", err
	}
	if to.Before(from) {
		return nil, "", ErrInvalidDateRange
	}
	if from.AddDays(maxExportDays).Before(to) {
		return nil, "", ErrExportRangeTooLong
	}

	loc := time.UTC
	if host, err := s.repo.Host.GetByID(ctx, hostID); err == nil {
		if l, err := loadLocation(host.Timezone); err == nil {
			loc = l
		}
	}
	start := from.Bounds(loc).Start
	end := to.Bounds(loc).End

	// 2. 查询预约
	list, _, err := s.repo.Booking.List(ctx, repository.BookingFilter{
		UserID: hostID,
		From:   &start,
		To:     &end,
	})
	if err != nil {
		s.logger.Error("查询导出预约失败", zap.String("host_id", hostID), zap.Error(err))
		return nil, "", pkgerrors.Persistence(err)
	}
	if len(list) == 0 {
		return nil, "", ErrExportNoBookings
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "预约"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	widths := []float64{12, 8, 8, 24, 16, 28, 16, 10, 12, 40}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("预约记录 %s 至 %s（%s）", from, to, loc))
	f.MergeCell(sheetName, "A1", cell(colName(len(exportHeaders)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range exportHeaders {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(exportHeaders)-1), row), headerStyle)

	// 数据行
	for i := range list {
		b := &list[i]
		row++
		st := b.StartTime.In(loc)
		values := []interface{}{
			st.Format(time.DateOnly),
			st.Format("15:04"),
			b.EndTime.In(loc).Format("15:04"),
			eventTitle(b),
			b.GuestName,
			b.GuestEmail,
			deref(b.GuestPhone),
			statusNames[b.Status],
			formatPrice(b.PriceCents, b.Currency),
			deref(b.GuestNotes),
		}
		for j, v := range values {
			f.SetCellValue(sheetName, cell(colName(j), row), v)
		}
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("bookings_%s_%s.xlsx", from, to)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatPrice(cents int, currency string) string {
	if cents == 0 {
		return "免费"
	}
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
