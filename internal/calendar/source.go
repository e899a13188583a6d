// Package calendar 从主机已连接的外部日历读取忙碌区间。
// 外部来源仅作参考：单个日历失败时记录并跳过，不影响其余来源。
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dix105/calendly-clone/internal/availability"
	"github.com/dix105/calendly-clone/internal/model"
	pkgerrors "github.com/dix105/calendly-clone/pkg/errors"
)

// Source 主机级外部忙碌来源
type Source interface {
	// FetchBusy 返回与 rng 相交的忙碌区间。
	// 部分来源失败时仍返回其余来源的结果，并返回 ErrUpstreamUnavailable 类别的错误。
	FetchBusy(ctx context.Context, hostID string, rng availability.Interval) ([]availability.Interval, error)
}

// Provider 单个外部日历的忙碌时间读取
type Provider interface {
	Busy(ctx context.Context, cal *model.Calendar, rng availability.Interval) ([]availability.Interval, error)
}

// CalendarLister 列出主机已连接的日历
type CalendarLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.Calendar, error)
}

// MultiSource 按日历类型分派到对应 Provider 并发读取
type MultiSource struct {
	calendars CalendarLister
	providers map[string]Provider
	timeout   time.Duration
	logger    *zap.Logger
}

// NewMultiSource 创建 MultiSource；providers 的键为 model.CalendarProvider*
func NewMultiSource(calendars CalendarLister, providers map[string]Provider, timeout time.Duration, logger *zap.Logger) *MultiSource {
	return &MultiSource{
		calendars: calendars,
		providers: providers,
		timeout:   timeout,
		logger:    logger,
	}
}

func (s *MultiSource) FetchBusy(ctx context.Context, hostID string, rng availability.Interval) ([]availability.Interval, error) {
	cals, err := s.calendars.ListByUser(ctx, hostID)
	if err != nil {
		return nil, pkgerrors.Upstream("calendars", err)
	}
	if len(cals) == 0 {
		return nil, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var (
		mu   sync.Mutex
		busy []availability.Interval
		errs []error
	)

	// 单个日历的失败不取消其余请求，故 goroutine 总是返回 nil
	var g errgroup.Group
	g.SetLimit(4)
	for i := range cals {
		cal := &cals[i]
		p, ok := s.providers[cal.Provider]
		if !ok {
			s.logger.Warn("未知的日历类型，已跳过", zap.String("calendar_id", cal.ID), zap.String("provider", cal.Provider))
			continue
		}
		g.Go(func() error {
			ivs, err := p.Busy(ctx, cal, rng)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", cal.Provider, cal.ID, err))
				return nil
			}
			for _, iv := range ivs {
				if clipped, ok := availability.Intersect(iv, rng); ok {
					busy = append(busy, clipped)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	merged := availability.Coalesce(busy)
	if len(errs) > 0 {
		return merged, pkgerrors.Upstream("calendar", errors.Join(errs...))
	}
	return merged, nil
}
