// Package availability 实现可预约时段计算的纯函数核心：
// 半开区间运算、可用时间解析与候选时段生成。包内不做任何 I/O。
package availability

import (
	"sort"
	"time"
)

// Interval 半开时间区间 [Start, End)，以绝对时刻比较
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid 区间非空
func (iv Interval) Valid() bool { return iv.Start.Before(iv.End) }

// Duration 区间长度
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps 两个半开区间是否相交（首尾相接不算相交）
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Covers 区间是否完整包含 other
func (iv Interval) Covers(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Expand 向前扩展 before、向后扩展 after
func Expand(iv Interval, before, after time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-before), End: iv.End.Add(after)}
}

// Intersect 求交集，无交集时 ok 为 false
func Intersect(a, b Interval) (Interval, bool) {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	iv := Interval{Start: start, End: end}
	return iv, iv.Valid()
}

// Subtract 从 a 中扣除 busy 覆盖的部分，返回按时间升序的剩余片段。
// busy 可以无序、可以相互重叠。
func Subtract(a Interval, busy []Interval) []Interval {
	if !a.Valid() {
		return nil
	}
	sorted := sortedCopy(busy)

	var out []Interval
	cursor := a.Start
	for _, b := range sorted {
		if !b.Valid() || !b.End.After(cursor) {
			continue
		}
		if !b.Start.Before(a.End) {
			break
		}
		if b.Start.After(cursor) {
			out = append(out, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(a.End) {
			return out
		}
	}
	if cursor.Before(a.End) {
		out = append(out, Interval{Start: cursor, End: a.End})
	}
	return out
}

// SubtractAll 对每个可用区间执行 Subtract 并拼接结果
func SubtractAll(available, busy []Interval) []Interval {
	var out []Interval
	for _, a := range available {
		out = append(out, Subtract(a, busy)...)
	}
	return out
}

// Coalesce 按开始时间排序（相同开始时间按结束时间）并合并相交或首尾相接的区间
func Coalesce(ivs []Interval) []Interval {
	sorted := sortedCopy(ivs)
	out := make([]Interval, 0, len(sorted))
	for _, iv := range sorted {
		if !iv.Valid() {
			continue
		}
		if n := len(out); n > 0 && !iv.Start.After(out[n-1].End) {
			if iv.End.After(out[n-1].End) {
				out[n-1].End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// MergeBusy 合并多个来源的忙碌区间
func MergeBusy(sources ...[]Interval) []Interval {
	var all []Interval
	for _, s := range sources {
		all = append(all, s...)
	}
	return Coalesce(all)
}

func sortedCopy(ivs []Interval) []Interval {
	out := make([]Interval, len(ivs))
	copy(out, ivs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
