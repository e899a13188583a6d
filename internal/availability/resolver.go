package availability

import "time"

// DaySchedule 某一天的可用性来源，只有以下三种取值：
//   - Recurring    按周重复的窗口
//   - Unavailable  整天不可用
//   - CustomWindow 当天自定义的单个窗口
type DaySchedule interface {
	isDaySchedule()
}

// Recurring 当天星期对应的每周窗口（可能重叠，解析时合并）
type Recurring struct {
	Windows []ClockWindow
}

// Unavailable 日期例外：整天不可用
type Unavailable struct{}

// CustomWindow 日期例外：当天仅此窗口可用
type CustomWindow struct {
	Window ClockWindow
}

func (Recurring) isDaySchedule()    {}
func (Unavailable) isDaySchedule()  {}
func (CustomWindow) isDaySchedule() {}

// WeeklyWindow 每周重复的可用窗口
type WeeklyWindow struct {
	Weekday time.Weekday
	Window  ClockWindow
}

// Override 指定日期的例外
type Override struct {
	Unavailable bool
	Window      ClockWindow // Unavailable 为 false 时有效
}

// ScheduleSpec 一个可用时间方案：时区、每周窗口与日期例外
type ScheduleSpec struct {
	Location  *time.Location
	Weekly    []WeeklyWindow
	Overrides map[Date]Override
}

// PlanDay 选出 date 当天生效的可用性来源：日期例外优先于每周窗口
func (s ScheduleSpec) PlanDay(date Date) DaySchedule {
	if o, ok := s.Overrides[date]; ok {
		if o.Unavailable {
			return Unavailable{}
		}
		return CustomWindow{Window: o.Window}
	}

	wd := date.Weekday()
	var windows []ClockWindow
	for _, w := range s.Weekly {
		if w.Weekday == wd {
			windows = append(windows, w.Window)
		}
	}
	return Recurring{Windows: windows}
}

// ResolveDate 解析 date 当天的可用区间
func (s ScheduleSpec) ResolveDate(date Date) []Interval {
	return Resolve(s.PlanDay(date), date, s.Location)
}

// Resolve 将当天的可用性来源转换为绝对时刻区间，结果升序且互不重叠。
// 墙上时间按 loc 在 date 当天换算，无可用时间时返回空。
func Resolve(day DaySchedule, date Date, loc *time.Location) []Interval {
	if loc == nil {
		loc = time.UTC
	}

	switch d := day.(type) {
	case Unavailable:
		return nil
	case CustomWindow:
		if d.Window.Validate() != nil {
			return nil
		}
		return []Interval{toInterval(d.Window, date, loc)}
	case Recurring:
		ivs := make([]Interval, 0, len(d.Windows))
		for _, w := range d.Windows {
			if w.Validate() != nil {
				continue
			}
			ivs = append(ivs, toInterval(w, date, loc))
		}
		return Coalesce(ivs)
	default:
		return nil
	}
}

func toInterval(w ClockWindow, date Date, loc *time.Location) Interval {
	return Interval{Start: date.At(w.Start, loc), End: date.At(w.End, loc)}
}
