package service

import (
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// ── 主机资料 ──

var (
	ErrHostNotFound  = pkgerrors.NotFound("主机不存在")
	ErrUsernameTaken = pkgerrors.Conflict("用户名已被占用")
)

// ── 可用时间方案 ──

var (
	ErrScheduleNotFound   = pkgerrors.NotFound("可用时间方案不存在")
	ErrNoDefaultSchedule  = pkgerrors.NotFound("未设置默认可用时间方案")
	ErrScheduleInUse      = pkgerrors.Conflict("方案仍被事件类型使用，无法删除")
	ErrOverrideNotFound   = pkgerrors.NotFound("日期例外不存在")
	ErrInvalidTimezone    = pkgerrors.Input("时区无效")
	ErrOverrideWindowSpec = pkgerrors.Input("不可用的日期不能设置时间窗口，可用的日期必须设置开始与结束时间")
)

// ── 事件类型 ──

var (
	ErrEventTypeNotFound = pkgerrors.NotFound("事件类型不存在")
	ErrSlugTaken         = pkgerrors.Conflict("链接标识已被使用")
)

// ── 时段与预约 ──

var (
	ErrSlotUnavailable   = pkgerrors.Conflict("该时段已不可预约")
	ErrBookingNotFound   = pkgerrors.NotFound("预约不存在")
	ErrBookingState      = pkgerrors.Conflict("当前预约状态不允许此操作")
	ErrInvalidDateRange  = pkgerrors.Input("日期范围无效")
	ErrReservationBusy   = pkgerrors.Conflict("预约请求过多，请稍后重试")
	ErrCalendarNotFound  = pkgerrors.NotFound("日历不存在")
	ErrCalendarSpecError = pkgerrors.Input("日历连接参数不完整")
)
