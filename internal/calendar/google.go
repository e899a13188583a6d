package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/model"
)

// GoogleProvider 通过 FreeBusy 接口读取 Google 日历的忙碌时间
type GoogleProvider struct {
	oauth *oauth2.Config // 为 nil 时只使用已存储的 access token
	opts  []option.ClientOption
}

// NewGoogleProvider 创建 GoogleProvider
// clientID 为空时不做 token 刷新；opts 追加到每次创建的客户端上（测试中用于替换 endpoint）
func NewGoogleProvider(clientID, clientSecret string, opts ...option.ClientOption) *GoogleProvider {
	p := &GoogleProvider{opts: opts}
	if clientID != "" {
		p.oauth = &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarReadonlyScope},
		}
	}
	return p
}

func (p *GoogleProvider) Busy(ctx context.Context, cal *model.Calendar, rng availability.Interval) ([]availability.Interval, error) {
	if cal.AccessToken == nil || *cal.AccessToken == "" {
		return nil, fmt.Errorf("Google 日历缺少 access token")
	}

	tok := &oauth2.Token{AccessToken: *cal.AccessToken, TokenType: "Bearer"}
	if cal.RefreshToken != nil {
		tok.RefreshToken = *cal.RefreshToken
	}
	if cal.ExpiresAt != nil {
		tok.Expiry = *cal.ExpiresAt
	}

	var ts oauth2.TokenSource = oauth2.StaticTokenSource(tok)
	if p.oauth != nil && tok.RefreshToken != "" {
		ts = p.oauth.TokenSource(ctx, tok)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, p.opts...)
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 Google 日历客户端失败: %w", err)
	}

	calendarID := cal.ProviderAccountID
	if calendarID == "" {
		calendarID = "primary"
	}
	resp, err := svc.Freebusy.Query(&gcal.FreeBusyRequest{
		TimeMin: rng.Start.UTC().Format(time.RFC3339),
		TimeMax: rng.End.UTC().Format(time.RFC3339),
		Items:   []*gcal.FreeBusyRequestItem{{Id: calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("查询 Google 忙碌时间失败: %w", err)
	}

	var busy []availability.Interval
	for id, c := range resp.Calendars {
		if len(c.Errors) > 0 {
			return nil, fmt.Errorf("Google 日历 %s 返回错误: %s", id, c.Errors[0].Reason)
		}
		for _, period := range c.Busy {
			start, err1 := time.Parse(time.RFC3339, period.Start)
			end, err2 := time.Parse(time.RFC3339, period.End)
			if err1 != nil || err2 != nil {
				continue
			}
			busy = append(busy, availability.Interval{Start: start, End: end})
		}
	}
	return busy, nil
}
