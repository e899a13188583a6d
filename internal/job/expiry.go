// Package job 后台定时任务
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// HoldExpirer 释放已过期的待支付占位
type HoldExpirer interface {
	ExpireStaleHolds(ctx context.Context) (int, error)
}

// ExpirySweeper 按 cron 表达式周期清理过期占位。
// 清理只影响展示与统计；判定时段占用时过期占位本就不计入。
type ExpirySweeper struct {
	cron    *cron.Cron
	expirer HoldExpirer
	timeout time.Duration
	logger  *zap.Logger
}

// NewExpirySweeper 注册清理任务；上一轮未结束时跳过本轮
func NewExpirySweeper(spec string, expirer HoldExpirer, timeout time.Duration, logger *zap.Logger) (*ExpirySweeper, error) {
	s := &ExpirySweeper{
		expirer: expirer,
		timeout: timeout,
		logger:  logger,
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{logger}),
		cron.SkipIfStillRunning(cronLogger{logger}),
	))
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("注册过期占位清理任务失败: %w", err)
	}
	return s, nil
}

// Start 启动调度
func (s *ExpirySweeper) Start() {
	s.cron.Start()
	s.logger.Info("过期占位清理任务已启动", zap.Int("entries", len(s.cron.Entries())))
}

// Stop 停止调度并等待正在执行的一轮结束
func (s *ExpirySweeper) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("等待清理任务结束超时")
	}
}

// RunOnce 执行一轮清理
func (s *ExpirySweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.expirer.ExpireStaleHolds(ctx)
	if err != nil {
		s.logger.Error("清理过期占位失败", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("已释放过期占位", zap.Int("count", n))
	}
}

// cronLogger 将 cron 内部日志转到 zap
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
