package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type stubExpirer struct {
	mu    sync.Mutex
	calls int
	n     int
	err   error
	hasDL bool
}

func (s *stubExpirer) ExpireStaleHolds(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	_, s.hasDL = ctx.Deadline()
	return s.n, s.err
}

func (s *stubExpirer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestNewExpirySweeper_InvalidSpec(t *testing.T) {
	if _, err := NewExpirySweeper("not a cron", &stubExpirer{}, time.Second, zap.NewNop()); err == nil {
		t.Error("无效的 cron 表达式期望返回错误")
	}
}

func TestExpirySweeper_RunOnce(t *testing.T) {
	exp := &stubExpirer{n: 3}
	s, err := NewExpirySweeper("@every 1h", exp, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	s.RunOnce()
	if exp.callCount() != 1 {
		t.Errorf("期望调用 1 次，实际 %d", exp.callCount())
	}
	if !exp.hasDL {
		t.Error("清理应在带超时的 context 中执行")
	}

	// 失败只记录日志
	exp.err = errors.New("db down")
	s.RunOnce()
	if exp.callCount() != 2 {
		t.Errorf("期望调用 2 次，实际 %d", exp.callCount())
	}
}

func TestExpirySweeper_StartStop(t *testing.T) {
	exp := &stubExpirer{}
	s, err := NewExpirySweeper("@every 1s", exp, time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(3 * time.Second)
	for exp.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if exp.callCount() == 0 {
		t.Error("调度启动后期望至少执行一轮清理")
	}
}
