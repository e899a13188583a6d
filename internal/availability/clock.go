package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// Clock 一天内的墙上时间，单位为自零点起的分钟数，取值 [0, 1440]。
// 1440 即 24:00，仅用于窗口结束时间。
type Clock int

// EndOfDay 24:00
const EndOfDay Clock = 24 * 60

// ParseClock 解析 HH:MM 或 HH:MM:SS（秒必须为 0）
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, pkgerrors.Input(fmt.Sprintf("时间格式错误: %q，应为 HH:MM", s))
	}
	h, errH := strconv.Atoi(parts[0])
	m, errM := strconv.Atoi(parts[1])
	if errH != nil || errM != nil || len(parts[1]) != 2 {
		return 0, pkgerrors.Input(fmt.Sprintf("时间格式错误: %q，应为 HH:MM", s))
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, pkgerrors.Input(fmt.Sprintf("时间精度只支持到分钟: %q", s))
		}
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, pkgerrors.Input(fmt.Sprintf("时间超出范围: %q", s))
	}
	return Clock(h*60 + m), nil
}

// String 格式化为 HH:MM
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ClockWindow 墙上时间窗口 [Start, End)
type ClockWindow struct {
	Start Clock
	End   Clock
}

// Validate 检查 Start < End
func (w ClockWindow) Validate() error {
	if w.Start < 0 || w.End > EndOfDay || w.Start >= w.End {
		return pkgerrors.Input(fmt.Sprintf("时间窗口无效: %s-%s，开始时间必须早于结束时间", w.Start, w.End))
	}
	return nil
}

// ── 日期 ──

// Date 不含时区的日历日期
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, pkgerrors.Input(fmt.Sprintf("日期格式错误: %q，应为 YYYY-MM-DD", s))
	}
	return DateOf(t, time.UTC), nil
}

// DateOf 时刻 t 在 loc 中所属的日期
func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

// String 格式化为 YYYY-MM-DD
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Weekday 星期，周日为 0
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).Weekday()
}

// AddDays 日期加减
func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 12, 0, 0, 0, time.UTC), time.UTC)
}

// Before 日期先后
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// At 该日期在 loc 中的墙上时间 c 对应的时刻。
// 夏令时切换由 time.Date 处理，24:00 归一化为次日零点。
func (d Date) At(c Clock, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, int(c)/60, int(c)%60, 0, 0, loc)
}

// Bounds 该日期在 loc 中的整天区间 [00:00, 次日 00:00)
func (d Date) Bounds(loc *time.Location) Interval {
	return Interval{Start: d.At(0, loc), End: d.At(EndOfDay, loc)}
}
