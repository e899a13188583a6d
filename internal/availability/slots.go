package availability

import (
	"fmt"
	"time"

	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// SlotRule 事件类型的出时段规则
type SlotRule struct {
	Duration     time.Duration
	BufferBefore time.Duration
	BufferAfter  time.Duration
	MinNotice    time.Duration
	Horizon      time.Duration
	MaxPerDay    int // 0 表示不限
}

// Validate 校验规则取值
func (r SlotRule) Validate() error {
	switch {
	case r.Duration <= 0:
		return pkgerrors.Input("时长必须大于 0")
	case r.BufferBefore < 0 || r.BufferAfter < 0:
		return pkgerrors.Input("缓冲时间不能为负")
	case r.MinNotice < 0:
		return pkgerrors.Input("最短提前量不能为负")
	case r.Horizon <= 0:
		return pkgerrors.Input("可预约天数必须大于 0")
	case r.MaxPerDay < 0:
		return pkgerrors.Input(fmt.Sprintf("每日上限无效: %d", r.MaxPerDay))
	}
	return nil
}

// Blocked 以 start 开始的预约连同缓冲占用的区间
func (r SlotRule) Blocked(start time.Time) Interval {
	return Expand(Interval{Start: start, End: start.Add(r.Duration)}, r.BufferBefore, r.BufferAfter)
}

// SlotInput 生成某一主机日候选时段所需的全部输入
type SlotInput struct {
	Rule      SlotRule
	Day       Interval   // 主机时区下的整天区间
	Available []Interval // Resolve 的结果
	Busy      []Interval // 已含各自缓冲的忙碌区间
	DayCount  int        // 当天该事件类型的有效预约数
	Now       time.Time
}

// GenerateSlots 计算候选开始时刻，升序且不重复。相同输入结果相同。
func GenerateSlots(in SlotInput) []time.Time {
	rule := in.Rule
	if rule.Duration <= 0 {
		return nil
	}

	earliest := in.Now.Add(rule.MinNotice).Truncate(time.Minute)
	latest := in.Now.Add(rule.Horizon)
	if !in.Day.End.After(earliest) || in.Day.Start.After(latest) {
		return nil
	}
	if rule.MaxPerDay > 0 && in.DayCount >= rule.MaxPerDay {
		return nil
	}

	// 新预约 [t-前缓冲, t+时长+后缓冲) 与已有占用区间不相交，
	// 等价于 [t, t+时长) 避开 [占用开始-后缓冲, 占用结束+前缓冲)
	busy := make([]Interval, len(in.Busy))
	for i, b := range in.Busy {
		busy[i] = Expand(b, rule.BufferAfter, rule.BufferBefore)
	}

	free := SubtractAll(Coalesce(in.Available), busy)

	var slots []time.Time
	for _, f := range free {
		for t := f.Start; !t.Add(rule.Duration).After(f.End); t = t.Add(rule.Duration) {
			if t.Before(earliest) || t.After(latest) {
				continue
			}
			slots = append(slots, t)
		}
	}
	return slots
}

// ContainsSlot t 是否为候选时刻之一
func ContainsSlot(slots []time.Time, t time.Time) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}
