package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/model"
)

// ── ICS 订阅源 ──────────────────────────────────────────────
//
// 将 iCalendar (RFC 5545) 订阅中的事件展开为忙碌区间：
//   - TRANSP:TRANSPARENT 与 STATUS:CANCELLED 的事件不占用时间
//   - 全天事件按 DTSTART 所在时区的整天计
//   - RRULE 支持 DAILY/WEEKLY（含 BYDAY）及 INTERVAL/COUNT/UNTIL，EXDATE 排除单次
// ─────────────────────────────────────────────────────────────

const (
	defaultMaxFeedBytes = 10 << 20
	maxOccurrences      = 5000
)

// ICSProvider 通过 HTTP 拉取 ICS 订阅
type ICSProvider struct {
	client   *http.Client
	maxBytes int64
}

// NewICSProvider 创建 ICSProvider；client 为 nil 时使用默认客户端
func NewICSProvider(client *http.Client, maxBytes int64) *ICSProvider {
	if client == nil {
		client = &http.Client{}
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxFeedBytes
	}
	return &ICSProvider{client: client, maxBytes: maxBytes}
}

func (p *ICSProvider) Busy(ctx context.Context, cal *model.Calendar, rng availability.Interval) ([]availability.Interval, error) {
	if cal.FeedURL == nil || *cal.FeedURL == "" {
		return nil, fmt.Errorf("ICS 日历缺少订阅地址")
	}

	body, err := p.fetch(ctx, *cal.FeedURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return ParseBusy(body, rng)
}

func (p *ICSProvider) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ICS 地址无效: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, p.maxBytes),
		Closer: resp.Body,
	}, nil
}

// ParseBusy 解析 ICS 内容，返回与 rng 相交的忙碌区间（已合并）
func ParseBusy(r io.Reader, rng availability.Interval) ([]availability.Interval, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	var busy []availability.Interval
	for _, evt := range cal.Events() {
		if !blocksTime(evt) {
			continue
		}
		start, end, ok := eventSpan(evt)
		if !ok {
			continue
		}
		for _, occ := range occurrences(evt, start, rng) {
			iv := availability.Interval{Start: occ, End: occ.Add(end.Sub(start))}
			if clipped, ok := availability.Intersect(iv, rng); ok {
				busy = append(busy, clipped)
			}
		}
	}
	return availability.Coalesce(busy), nil
}

func blocksTime(evt *ics.VEvent) bool {
	if p := evt.GetProperty(ics.ComponentPropertyTransp); p != nil && strings.EqualFold(p.Value, "TRANSPARENT") {
		return false
	}
	if p := evt.GetProperty(ics.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return false
	}
	return true
}

// eventSpan 首次发生的开始与结束
func eventSpan(evt *ics.VEvent) (time.Time, time.Time, bool) {
	start, allDay, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtStart))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}

	if end, _, err := parseICSDateTime(evt.GetProperty(ics.ComponentPropertyDtEnd)); err == nil {
		return start, end, end.After(start)
	}
	if p := evt.GetProperty(ics.ComponentPropertyDuration); p != nil {
		if d, err := parseICSDuration(p.Value); err == nil && d > 0 {
			return start, start.Add(d), true
		}
	}
	if allDay {
		return start, start.AddDate(0, 0, 1), true
	}
	return time.Time{}, time.Time{}, false
}

// occurrences 展开重复规则，返回开始时刻不晚于 rng.End 的发生时刻
func occurrences(evt *ics.VEvent, start time.Time, rng availability.Interval) []time.Time {
	rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
	if rruleProp == nil {
		return []time.Time{start}
	}

	rule := parseRRule(rruleProp.Value)
	exDates := parseExDates(evt)

	var out []time.Time
	emitted := 0
	emit := func(t time.Time) bool {
		if !rule.until.IsZero() && t.After(rule.until) {
			return false
		}
		if rule.count > 0 && emitted >= rule.count {
			return false
		}
		if !t.Before(rng.End) || emitted >= maxOccurrences {
			return false
		}
		emitted++
		if !exDates[t.Unix()] {
			out = append(out, t)
		}
		return true
	}

	switch rule.freq {
	case "DAILY":
		first := start
		if rule.count == 0 {
			first = start.AddDate(0, 0, periodsBefore(start, rng.Start, rule.interval)*rule.interval)
		}
		for t := first; emit(t); t = t.AddDate(0, 0, rule.interval) {
		}
	case "WEEKLY":
		days := rule.byDay
		if len(days) == 0 {
			days = []time.Weekday{start.Weekday()}
		}
		// 以 DTSTART 所在周的周一为锚点
		offset := (int(start.Weekday()) + 6) % 7
		anchor := start.AddDate(0, 0, -offset)
		firstWeek := 0
		if rule.count == 0 {
			firstWeek = periodsBefore(start, rng.Start, 7*rule.interval) * rule.interval
		}
		for week := firstWeek; ; week += rule.interval {
			more := true
			for _, wd := range days {
				t := anchor.AddDate(0, 0, week*7+(int(wd)+6)%7)
				if t.Before(start) {
					continue
				}
				if !emit(t) {
					more = false
					break
				}
			}
			if !more {
				break
			}
		}
	default:
		// 其他频率只计首次
		out = append(out, start)
	}
	return out
}

// periodsBefore 在不计次数的规则下可以直接跳过的周期数，预留两个周期容纳跨天事件
func periodsBefore(start, from time.Time, periodDays int) int {
	days := int(from.Sub(start).Hours() / 24)
	n := days/periodDays - 2
	if n < 0 {
		return 0
	}
	return n
}

// rruleParams RRULE 解析结果
type rruleParams struct {
	freq     string
	interval int
	count    int
	until    time.Time
	byDay    []time.Weekday
}

var icsWeekdays = map[string]time.Weekday{
	"MO": time.Monday, "TU": time.Tuesday, "WE": time.Wednesday, "TH": time.Thursday,
	"FR": time.Friday, "SA": time.Saturday, "SU": time.Sunday,
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;BYDAY=MO,WE;COUNT=16）
func parseRRule(value string) rruleParams {
	r := rruleParams{interval: 1}
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "INTERVAL":
			if n, err := strconv.Atoi(kv[1]); err == nil && n > 0 {
				r.interval = n
			}
		case "COUNT":
			if n, err := strconv.Atoi(kv[1]); err == nil {
				r.count = n
			}
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
				if !t.IsZero() {
					t = t.Add(24*time.Hour - time.Second)
				}
			}
			r.until = t
		case "BYDAY":
			for _, d := range strings.Split(kv[1], ",") {
				d = strings.ToUpper(strings.TrimSpace(d))
				if len(d) > 2 {
					d = d[len(d)-2:] // 忽略序数前缀，如 1MO
				}
				if wd, ok := icsWeekdays[d]; ok {
					r.byDay = append(r.byDay, wd)
				}
			}
			sort.Slice(r.byDay, func(i, j int) bool {
				return (int(r.byDay[i])+6)%7 < (int(r.byDay[j])+6)%7
			})
		}
	}
	return r
}

// parseExDates 解析事件中所有 EXDATE，键为 Unix 秒
func parseExDates(evt *ics.VEvent) map[int64]bool {
	exDates := make(map[int64]bool)
	for i := range evt.Properties {
		prop := &evt.Properties[i]
		if prop.IANAToken != string(ics.ComponentPropertyExdate) {
			continue
		}
		for _, v := range strings.Split(prop.Value, ",") {
			single := *prop
			single.Value = v
			if t, _, err := parseICSDateTime(&single); err == nil {
				exDates[t.Unix()] = true
			}
		}
	}
	return exDates
}

// parseICSDateTime 解析日期时间属性，支持 UTC、TZID 与浮动时间（按 UTC 处理）
func parseICSDateTime(prop *ics.IANAProperty) (time.Time, bool, error) {
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property")
	}
	val := strings.TrimSpace(prop.Value)

	loc := time.UTC
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if tzLoc, err := time.LoadLocation(v[0]); err == nil {
				loc = tzLoc
			}
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", val, loc); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("20060102", val, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

// parseICSDuration 解析 RFC 5545 DURATION（如 PT1H30M、P1D、P1W）
func parseICSDuration(s string) (time.Duration, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(s, "+-")
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("无效的 DURATION: %s", s)
	}
	s = s[1:]

	var d time.Duration
	inTime := false
	num := ""
	for _, ch := range s {
		switch {
		case ch >= '0' && ch <= '9':
			num += string(ch)
		case ch == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, fmt.Errorf("无效的 DURATION: %s", s)
			}
			num = ""
			switch {
			case ch == 'W':
				d += time.Duration(n) * 7 * 24 * time.Hour
			case ch == 'D':
				d += time.Duration(n) * 24 * time.Hour
			case ch == 'H' && inTime:
				d += time.Duration(n) * time.Hour
			case ch == 'M' && inTime:
				d += time.Duration(n) * time.Minute
			case ch == 'S' && inTime:
				d += time.Duration(n) * time.Second
			default:
				return 0, fmt.Errorf("无效的 DURATION: %s", s)
			}
		}
	}
	if num != "" {
		return 0, fmt.Errorf("无效的 DURATION: %s", s)
	}
	if neg {
		d = -d
	}
	return d, nil
}
